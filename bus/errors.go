package bus

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotRequest is returned when a reply is passed to Dispatch.
	ErrNotRequest = errors.New("message is not a request")

	// ErrSealed is returned by Register once the Registry is in use by a Bus.
	ErrSealed = errors.New("registry is sealed")

	// ErrDuplicate is returned by Register for an identifier already taken.
	ErrDuplicate = errors.New("device already registered")
)

// UnknownDeviceError is returned by Dispatch when no device is registered
// under the target identifier.
type UnknownDeviceError struct {
	ID DeviceID
}

func (e UnknownDeviceError) Error() string {
	return fmt.Sprintf("unknown device %v", e.ID)
}

// ReentrantAccessError is returned by Dispatch when the target device is
// already handling a message on the same line further up the call chain.
type ReentrantAccessError struct {
	ID    DeviceID
	Line  Line
	Chain []Frame // active chain at the time of the call, innermost last
}

func (e ReentrantAccessError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "reentrant access to %v", e.ID)
	if e.Line != MainLine {
		fmt.Fprintf(&b, " %v line", e.Line)
	}
	if len(e.Chain) > 0 {
		b.WriteString(" (chain:")
		for _, f := range e.Chain {
			b.WriteByte(' ')
			b.WriteString(f.String())
		}
		b.WriteByte(')')
	}
	return b.String()
}

// DeviceError reports a failure inside a device's handler.
type DeviceError struct {
	ID  DeviceID
	Msg Message
	Err error
}

func (e DeviceError) Error() string {
	return fmt.Sprintf("%v handling %v: %v", e.ID, e.Msg, e.Err)
}

func (e DeviceError) Unwrap() error { return e.Err }

// UnexpectedReplyError is returned when a reply does not answer the request
// that produced it, such as an Ack in response to ReadByte.
type UnexpectedReplyError struct {
	Request Message
	Reply   Message
}

func (e UnexpectedReplyError) Error() string {
	return fmt.Sprintf("unexpected reply %v to %v (want %v)", e.Reply, e.Request, e.Request.Expects())
}

// isBusError reports whether err was produced by a Bus (as opposed to by a
// device handler) and so must be propagated without further wrapping.
func isBusError(err error) bool {
	switch err.(type) {
	case UnknownDeviceError, ReentrantAccessError, UnexpectedReplyError, DeviceError:
		return true
	}
	return false
}
