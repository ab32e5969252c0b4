package device

import (
	"fmt"

	"github.com/nf/hwbus/bus"
)

// CPU executes one instruction of its Program on each Step, issuing memory
// and port accesses to whichever device the address map selects.
type CPU struct {
	prog Program
	amap *bus.AddressMap
	regs Registers
}

// NewCPU returns a CPU that runs prog, routing its accesses with amap.
func NewCPU(prog Program, amap *bus.AddressMap) *CPU {
	return &CPU{prog: prog, amap: amap}
}

func (c *CPU) Registers() Registers { return c.regs }

func (c *CPU) Reset() { c.regs = Registers{} }

func (c *CPU) Handle(d bus.Dispatcher, msg bus.Message) (bus.Message, error) {
	switch msg.Kind {
	case bus.StepKind:
		return bus.Ack(), c.step(d)
	case bus.EnableInterruptKind:
		c.regs.IFF = true
		return bus.Ack(), nil
	case bus.DisableInterruptKind:
		c.regs.IFF = false
		return bus.Ack(), nil
	}
	return bus.Message{}, bus.ErrUnsupported
}

func (c *CPU) step(d bus.Dispatcher) error {
	in, ok := c.regs.Fetch(c.prog)
	if !ok {
		return nil
	}
	req, ok := c.regs.Exec(in)
	if !ok {
		return nil
	}
	id, ok := c.amap.Route(req)
	if !ok {
		return fmt.Errorf("%v at %.4x: %w for %v", in, c.regs.PC-1, ErrUnmapped, req)
	}
	var reply bus.Message
	switch req.Kind {
	case bus.ReadByteKind:
		v, err := bus.ReadByteFrom(d, id, req.Addr)
		if err != nil {
			return err
		}
		reply = bus.Byte(v)
	case bus.ReadPortKind:
		v, err := bus.ReadPortFrom(d, id, req.Port)
		if err != nil {
			return err
		}
		reply = bus.Byte(v)
	case bus.WriteByteKind:
		if err := bus.WriteByteTo(d, id, req.Addr, req.Value); err != nil {
			return err
		}
		reply = bus.Ack()
	case bus.WritePortKind:
		if err := bus.WritePortTo(d, id, req.Port, req.Value); err != nil {
			return err
		}
		reply = bus.Ack()
	}
	c.regs.Retire(in, reply)
	return nil
}
