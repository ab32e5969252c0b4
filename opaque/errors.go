package opaque

import (
	"errors"
	"fmt"

	"github.com/nf/hwbus/bus"
)

var (
	ErrMismatchedReply     = errors.New("reply does not answer pending operation")
	ErrNoContinuation      = errors.New("suspended without a continuation")
	ErrContinuationUsed    = errors.New("continuation already resumed")
	ErrRunning             = errors.New("core returned while running")
	ErrUnroutable          = errors.New("no device mapped for operation")
	ErrTooManySuspensions  = errors.New("too many suspensions")
	ErrNotRequestOperation = errors.New("operation is not a request")
)

// TrampolineError is returned by an Adapter when the core it drives breaks
// the suspend and resume protocol.
type TrampolineError struct {
	Msg   bus.Message // message the adapter was handling
	Op    bus.Message // pending operation, if any
	Reply bus.Message // reply to Op, if any
	Err   error
}

func (e TrampolineError) Error() string {
	s := fmt.Sprintf("trampoline handling %v: %v", e.Msg, e.Err)
	if e.Op.Kind != 0 {
		s += fmt.Sprintf(" (op %v", e.Op)
		if e.Reply.Kind != 0 {
			s += fmt.Sprintf(", reply %v", e.Reply)
		}
		s += ")"
	}
	return s
}

func (e TrampolineError) Unwrap() error { return e.Err }
