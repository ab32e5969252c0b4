// Package opaque drives devices whose internals cannot call the bus
// directly. Such a device's core returns a Step describing the bus
// operation it needs, and an Adapter performs the operation and resumes
// the core with the reply.
package opaque

import (
	"fmt"

	"github.com/nf/hwbus/bus"
)

// State is the execution state of an invocation of a Core.
type State byte

const (
	Running State = iota
	Suspended
	Completed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", byte(s))
}

// Step is what a Core returns each time it stops running: either the bus
// operation it is waiting on (Suspended) or its final reply (Completed).
type Step struct {
	State State
	Op    Operation   // Suspended
	Reply bus.Message // Completed
}

// Operation is a bus request a suspended core needs performed.
type Operation struct {
	// Target is the device the request is sent to. If zero the Adapter
	// picks the target from its address map.
	Target  bus.DeviceID
	Message bus.Message
	Resume  *Continuation
}

// Continuation resumes a suspended core. Each may be resumed only once.
type Continuation struct {
	fn   func(reply bus.Message) (Step, error)
	used bool
}

// Then returns a Continuation that calls fn with the reply.
func Then(fn func(reply bus.Message) (Step, error)) *Continuation {
	return &Continuation{fn: fn}
}

// Used reports whether c has been resumed.
func (c *Continuation) Used() bool { return c.used }

func (c *Continuation) resume(reply bus.Message) (Step, error) {
	c.used = true
	return c.fn(reply)
}

// Suspend returns a Step that waits for msg to be dispatched to whichever
// device the address map selects, then continues with fn.
func Suspend(msg bus.Message, fn func(reply bus.Message) (Step, error)) Step {
	return SuspendTo(0, msg, fn)
}

// SuspendTo is like Suspend but names the target device.
func SuspendTo(target bus.DeviceID, msg bus.Message, fn func(reply bus.Message) (Step, error)) Step {
	return Step{State: Suspended, Op: Operation{Target: target, Message: msg, Resume: Then(fn)}}
}

// Complete returns a Step that finishes the invocation with reply.
func Complete(reply bus.Message) Step {
	return Step{State: Completed, Reply: reply}
}

// Core is an opaque device. Start begins handling msg and runs until the
// core needs the bus or is done.
type Core interface {
	Start(msg bus.Message) (Step, error)
}
