package device

import "github.com/nf/hwbus/bus"

// PPI ports, selected by the low two bits of the port number.
const (
	PPIPortA   = 0x0
	PPIPortB   = 0x1
	PPIPortC   = 0x2
	PPIControl = 0x3

	// ppiResetMode configures all ports as inputs.
	ppiResetMode = 0x9b
)

// PPI is a programmable peripheral interface with three 8-bit ports. Each
// port (port C in two halves) is configured as input or output by a mode
// control word; inputs read the value latched by the host with SetInput,
// outputs read back the last value written.
type PPI struct {
	mode byte
	out  [3]byte
	in   [3]byte
}

func NewPPI() *PPI { return &PPI{mode: ppiResetMode} }

func (p *PPI) Reset() { *p = PPI{mode: ppiResetMode, in: p.in} }

// SetInput latches v as the external input of port (PPIPortA-PPIPortC).
func (p *PPI) SetInput(port, v byte) {
	if port <= PPIPortC {
		p.in[port] = v
	}
}

// Mode returns the current mode control word.
func (p *PPI) Mode() byte { return p.mode }

// Output returns the value latched for output on port.
func (p *PPI) Output(port byte) byte {
	if port > PPIPortC {
		return 0
	}
	return p.out[port]
}

func (p *PPI) Handle(_ bus.Dispatcher, msg bus.Message) (bus.Message, error) {
	switch msg.Kind {
	case bus.ReadPortKind:
		return bus.Byte(p.read(msg.Port & 0x3)), nil
	case bus.WritePortKind:
		p.write(msg.Port&0x3, msg.Value)
		return bus.Ack(), nil
	}
	return bus.Message{}, bus.ErrUnsupported
}

func (p *PPI) read(port byte) byte {
	switch port {
	case PPIPortA:
		return p.pick(port, p.mode&0x10 != 0)
	case PPIPortB:
		return p.pick(port, p.mode&0x02 != 0)
	case PPIPortC:
		hi := p.pick(port, p.mode&0x08 != 0) & 0xf0
		lo := p.pick(port, p.mode&0x01 != 0) & 0x0f
		return hi | lo
	}
	return p.mode
}

func (p *PPI) pick(port byte, input bool) byte {
	if input {
		return p.in[port]
	}
	return p.out[port]
}

func (p *PPI) write(port, v byte) {
	if port != PPIControl {
		p.out[port] = v
		return
	}
	if v&0x80 != 0 {
		// Mode set: outputs are cleared.
		p.mode = v
		p.out = [3]byte{}
		return
	}
	// Bit set/reset of port C.
	bit := byte(1) << (v >> 1 & 0x7)
	if v&0x1 != 0 {
		p.out[PPIPortC] |= bit
	} else {
		p.out[PPIPortC] &^= bit
	}
}
