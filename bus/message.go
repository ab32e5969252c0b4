// Package bus routes messages between emulated hardware devices.
//
// Devices are owned by a Registry and addressed only by DeviceID. A device
// handling a message may dispatch further messages through the Dispatcher it
// is handed, so that a signal can propagate through several devices within a
// single step. The Bus rejects any dispatch that would re-enter a device
// whose handler is still running.
package bus

import "fmt"

// Kind is the tag of a Message.
type Kind byte

const (
	invalidKind Kind = iota

	// Requests.
	StepKind
	ReadByteKind
	WriteByteKind
	ReadPortKind
	WritePortKind
	EnableInterruptKind
	DisableInterruptKind

	// Replies.
	AckKind
	ByteKind
)

var kindNames = [...]string{
	invalidKind:          "Invalid",
	StepKind:             "Step",
	ReadByteKind:         "ReadByte",
	WriteByteKind:        "WriteByte",
	ReadPortKind:         "ReadPort",
	WritePortKind:        "WritePort",
	EnableInterruptKind:  "EnableInterrupt",
	DisableInterruptKind: "DisableInterrupt",
	AckKind:              "Ack",
	ByteKind:             "Byte",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

// Message is a request sent to a device or a device's reply to one.
// Only the fields relevant to Kind are set; the others are zero, so two
// messages describing the same request compare equal.
type Message struct {
	Kind  Kind
	Addr  uint16 // ReadByte, WriteByte
	Port  byte   // ReadPort, WritePort
	Value byte   // WriteByte, WritePort, Byte
}

func Step() Message { return Message{Kind: StepKind} }
func ReadByte(addr uint16) Message { return Message{Kind: ReadByteKind, Addr: addr} }
func ReadPort(port byte) Message { return Message{Kind: ReadPortKind, Port: port} }
func EnableInterrupt() Message { return Message{Kind: EnableInterruptKind} }
func DisableInterrupt() Message { return Message{Kind: DisableInterruptKind} }
func Ack() Message { return Message{Kind: AckKind} }
func Byte(v byte) Message { return Message{Kind: ByteKind, Value: v} }
func WritePort(port, v byte) Message { return Message{Kind: WritePortKind, Port: port, Value: v} }
func WriteByte(addr uint16, v byte) Message {
	return Message{Kind: WriteByteKind, Addr: addr, Value: v}
}

// IsRequest reports whether m may be dispatched to a device.
func (m Message) IsRequest() bool { return m.Kind >= StepKind && m.Kind <= DisableInterruptKind }

// IsReply reports whether m is a reply.
func (m Message) IsReply() bool { return m.Kind == AckKind || m.Kind == ByteKind }

// Expects returns the kind of reply that answers the request m.
// Reads are answered with a Byte, everything else with an Ack.
func (m Message) Expects() Kind {
	switch m.Kind {
	case ReadByteKind, ReadPortKind:
		return ByteKind
	case invalidKind, AckKind, ByteKind:
		return invalidKind
	default:
		return AckKind
	}
}

// Line identifies which input of a device a request arrives on.
type Line byte

const (
	// MainLine carries steps and memory and port accesses.
	MainLine Line = iota
	// InterruptLine carries EnableInterrupt and DisableInterrupt. It
	// models a device's interrupt input pin, which an interrupt source may
	// drive while the device's main handler is still running.
	InterruptLine
)

func (l Line) String() string {
	if l == InterruptLine {
		return "irq"
	}
	return "main"
}

// Line returns the input of the target device that m is delivered on.
func (m Message) Line() Line {
	if m.Kind == EnableInterruptKind || m.Kind == DisableInterruptKind {
		return InterruptLine
	}
	return MainLine
}

// Answers reports whether m is a well-formed reply to req.
func (m Message) Answers(req Message) bool {
	return req.IsRequest() && m.Kind == req.Expects()
}

func (m Message) String() string {
	switch m.Kind {
	case ReadByteKind:
		return fmt.Sprintf("ReadByte(%.4x)", m.Addr)
	case WriteByteKind:
		return fmt.Sprintf("WriteByte(%.4x, %.2x)", m.Addr, m.Value)
	case ReadPortKind:
		return fmt.Sprintf("ReadPort(%.2x)", m.Port)
	case WritePortKind:
		return fmt.Sprintf("WritePort(%.2x, %.2x)", m.Port, m.Value)
	case ByteKind:
		return fmt.Sprintf("Byte(%.2x)", m.Value)
	default:
		return m.Kind.String()
	}
}
