package bus

import "errors"

// Device is implemented by every hardware component attached to a Bus.
//
// Handle is invoked with exclusive access to the device's own state. It may
// call d.Dispatch to send requests to other devices; those calls return
// before Handle does. Handle must return a reply that answers msg
// (see Message.Answers) or an error.
type Device interface {
	Handle(d Dispatcher, msg Message) (Message, error)
}

// Dispatcher sends a request to the device identified by id and returns its
// reply. It is the only handle on other devices a Device ever receives.
type Dispatcher interface {
	Dispatch(id DeviceID, msg Message) (Message, error)
}

// Resetter is implemented by devices that can return to their power-on state.
type Resetter interface {
	Reset()
}

// ErrUnsupported is returned by a device asked to handle a message it does
// not implement.
var ErrUnsupported = errors.New("unsupported message")

// DeviceFunc adapts a function to the Device interface.
type DeviceFunc func(d Dispatcher, msg Message) (Message, error)

func (f DeviceFunc) Handle(d Dispatcher, msg Message) (Message, error) { return f(d, msg) }
