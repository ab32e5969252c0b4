package bus

import "fmt"

// Bus dispatches messages to the devices of a Registry.
//
// A Bus is not safe for concurrent use: a machine has a single logical
// timeline and every dispatch runs to completion on the caller's goroutine.
type Bus struct {
	reg    *Registry
	guard  Guard
	tracer Tracer
}

// Option configures a Bus.
type Option func(*Bus)

// WithTracer reports every dispatch to t.
func WithTracer(t Tracer) Option {
	return func(b *Bus) { b.tracer = t }
}

// New returns a Bus routing to the devices in reg. The registry is sealed:
// no devices may be registered once the Bus exists.
func New(reg *Registry, opts ...Option) *Bus {
	reg.seal()
	b := &Bus{reg: reg}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Dispatch delivers msg to the device identified by target and returns its
// reply. The device's handler may itself call Dispatch for any device that
// is not already handling a message further up the chain.
func (b *Bus) Dispatch(target DeviceID, msg Message) (reply Message, err error) {
	if !msg.IsRequest() {
		return Message{}, fmt.Errorf("dispatch %v to %v: %w", msg, target, ErrNotRequest)
	}
	s, ok := b.reg.slots[target]
	if !ok {
		return Message{}, UnknownDeviceError{ID: target}
	}
	f := Frame{Target: target, Msg: msg}
	if err := b.guard.Enter(f); err != nil {
		return Message{}, err
	}
	depth := b.guard.Depth()
	if b.tracer != nil {
		b.tracer.Enter(depth, f)
	}
	s.calls++

	// The frame is popped even if the handler panics, so that a recovered
	// panic leaves the chain as it was.
	defer func() {
		b.guard.Exit()
		if b.tracer != nil {
			b.tracer.Exit(depth, f, reply, err)
		}
	}()

	reply, err = s.dev.Handle(b, msg)
	if err != nil {
		if !isBusError(err) {
			err = DeviceError{ID: target, Msg: msg, Err: err}
		}
		return Message{}, err
	}
	if !reply.Answers(msg) {
		return Message{}, UnexpectedReplyError{Request: msg, Reply: reply}
	}
	return reply, nil
}

// Chain returns the frames of the dispatches currently in flight,
// innermost last.
func (b *Bus) Chain() []Frame { return b.guard.Chain() }

// Stats returns the number of messages delivered to each device.
func (b *Bus) Stats() map[DeviceID]uint64 {
	m := make(map[DeviceID]uint64, len(b.reg.slots))
	for id, s := range b.reg.slots {
		m[id] = s.calls
	}
	return m
}

// Registry returns the registry the Bus routes to.
func (b *Bus) Registry() *Registry { return b.reg }
