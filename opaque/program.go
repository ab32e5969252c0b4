package opaque

import (
	"github.com/nf/hwbus/bus"
	"github.com/nf/hwbus/device"
)

// ProgramCore runs a device.Program like device.CPU, except that it never
// touches the bus itself: an instruction that needs the bus suspends on
// the access and retires when resumed with the reply.
type ProgramCore struct {
	prog device.Program
	regs device.Registers
}

func NewProgramCore(prog device.Program) *ProgramCore {
	return &ProgramCore{prog: prog}
}

func (c *ProgramCore) Registers() device.Registers { return c.regs }

func (c *ProgramCore) Reset() { c.regs = device.Registers{} }

func (c *ProgramCore) Start(msg bus.Message) (Step, error) {
	switch msg.Kind {
	case bus.StepKind:
		return c.step(), nil
	case bus.EnableInterruptKind:
		c.regs.IFF = true
		return Complete(bus.Ack()), nil
	case bus.DisableInterruptKind:
		c.regs.IFF = false
		return Complete(bus.Ack()), nil
	}
	return Step{}, bus.ErrUnsupported
}

func (c *ProgramCore) step() Step {
	in, ok := c.regs.Fetch(c.prog)
	if !ok {
		return Complete(bus.Ack())
	}
	req, ok := c.regs.Exec(in)
	if !ok {
		return Complete(bus.Ack())
	}
	return Suspend(req, func(reply bus.Message) (Step, error) {
		c.regs.Retire(in, reply)
		return Complete(bus.Ack()), nil
	})
}
