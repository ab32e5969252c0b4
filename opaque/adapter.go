package opaque

import "github.com/nf/hwbus/bus"

// DefaultMaxSuspensions bounds the bus operations of a single invocation
// when Adapter.MaxSuspensions is zero.
const DefaultMaxSuspensions = 1 << 16

// Adapter is a bus.Device that runs a Core, performing the bus operations
// the core suspends on and resuming it with their replies.
//
// While a core is suspended on an operation, the device it addressed may
// signal the adapter's own interrupt line; that message is handled as a
// separate, nested invocation of the core.
type Adapter struct {
	Core           Core
	Map            *bus.AddressMap
	MaxSuspensions int

	active      bool
	state       State
	pending     bus.Message
	suspensions uint64
}

// NewAdapter returns an Adapter driving core, resolving untargeted
// operations with amap.
func NewAdapter(core Core, amap *bus.AddressMap) *Adapter {
	return &Adapter{Core: core, Map: amap, state: Completed}
}

// State returns the state of the innermost invocation in progress, or
// Completed if there is none.
func (a *Adapter) State() State { return a.state }

// Pending returns the operation the core is suspended on.
func (a *Adapter) Pending() (bus.Message, bool) {
	return a.pending, a.state == Suspended
}

// Suspensions returns the number of operations performed for the core.
func (a *Adapter) Suspensions() uint64 { return a.suspensions }

func (a *Adapter) Reset() {
	if r, ok := a.Core.(bus.Resetter); ok {
		r.Reset()
	}
	a.state, a.pending, a.suspensions = Completed, bus.Message{}, 0
}

func (a *Adapter) Handle(d bus.Dispatcher, msg bus.Message) (bus.Message, error) {
	if a.active {
		state, pending := a.state, a.pending
		defer func() { a.state, a.pending = state, pending }()
	} else {
		a.active = true
		defer func() { a.active = false }()
	}
	a.state, a.pending = Running, bus.Message{}
	step, err := a.Core.Start(msg)
	return a.run(d, msg, step, err)
}

func (a *Adapter) run(d bus.Dispatcher, msg bus.Message, step Step, err error) (bus.Message, error) {
	limit := a.MaxSuspensions
	if limit <= 0 {
		limit = DefaultMaxSuspensions
	}
	for n := 0; ; n++ {
		if err != nil {
			a.state = Completed
			return bus.Message{}, err
		}
		switch step.State {
		case Completed:
			a.state, a.pending = Completed, bus.Message{}
			return step.Reply, nil
		case Suspended:
		default:
			a.state = Completed
			return bus.Message{}, TrampolineError{Msg: msg, Err: ErrRunning}
		}

		op := step.Op
		fail := func(reply bus.Message, err error) (bus.Message, error) {
			a.state = Completed
			return bus.Message{}, TrampolineError{Msg: msg, Op: op.Message, Reply: reply, Err: err}
		}
		switch {
		case n >= limit:
			return fail(bus.Message{}, ErrTooManySuspensions)
		case !op.Message.IsRequest():
			return fail(bus.Message{}, ErrNotRequestOperation)
		case op.Resume == nil:
			return fail(bus.Message{}, ErrNoContinuation)
		case op.Resume.Used():
			return fail(bus.Message{}, ErrContinuationUsed)
		}
		target := op.Target
		if target == 0 {
			var ok bool
			if a.Map != nil {
				target, ok = a.Map.Route(op.Message)
			}
			if !ok {
				return fail(bus.Message{}, ErrUnroutable)
			}
		}

		a.state, a.pending = Suspended, op.Message
		a.suspensions++
		reply, derr := d.Dispatch(target, op.Message)
		if derr != nil {
			// Returned as is: the core is abandoned, not resumed.
			a.state = Completed
			return bus.Message{}, derr
		}
		if !reply.Answers(op.Message) {
			return fail(reply, ErrMismatchedReply)
		}
		a.state = Running
		step, err = op.Resume.resume(reply)
	}
}
