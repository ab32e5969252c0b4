// Package uxn provides a Uxn CPU, called Core, that runs as an opaque
// device: it executes Uxn bytecode from its own memory and suspends on
// every device read or write, which the bus performs on its behalf.
package uxn

import (
	"fmt"

	"github.com/nf/hwbus/bus"
	"github.com/nf/hwbus/opaque"
)

// Core is an implementation of a Uxn CPU.
type Core struct {
	Mem  [0x10000]byte
	PC   uint16
	Work Stack
	Ret  Stack

	// Vector is the address entered on a Step taken while the core is
	// idle at BRK with interrupts enabled. Zero disables it.
	Vector uint16
	IFF    bool

	rom    []byte
	idle   bool
	halted bool
}

// New returns a Uxn CPU loaded with the given rom at 0x100.
func New(rom []byte) *Core {
	c := &Core{rom: rom}
	c.Reset()
	return c
}

func (c *Core) Reset() {
	*c = Core{rom: c.rom, Vector: c.Vector, PC: 0x100}
	copy(c.Mem[0x100:], c.rom)
}

// Idle reports whether the core has executed BRK and is waiting for an
// interrupt.
func (c *Core) Idle() bool { return c.idle }

// Halted reports whether execution stopped on a HaltError.
func (c *Core) Halted() bool { return c.halted }

func (c *Core) String() string {
	return fmt.Sprintf("pc=%.4x op=%v iff=%v idle=%v work=%v ret=%v",
		c.PC, Op(c.Mem[c.PC]), c.IFF, c.idle, c.Work, c.Ret)
}

func (c *Core) Start(msg bus.Message) (opaque.Step, error) {
	switch msg.Kind {
	case bus.StepKind:
		if c.halted {
			return opaque.Complete(bus.Ack()), nil
		}
		if c.idle {
			if !c.IFF || c.Vector == 0 {
				return opaque.Complete(bus.Ack()), nil
			}
			c.PC, c.idle = c.Vector, false
		}
		return c.exec()
	case bus.EnableInterruptKind:
		c.IFF = true
		return opaque.Complete(bus.Ack()), nil
	case bus.DisableInterruptKind:
		c.IFF = false
		return opaque.Complete(bus.Ack()), nil
	}
	return opaque.Step{}, bus.ErrUnsupported
}

// exec executes the instruction at c.PC. It suspends on the device
// accesses of DEI and DEO, and otherwise only returns a non-nil error if
// it encounters a halt condition.
func (c *Core) exec() (step opaque.Step, err error) {
	var (
		op   = Op(c.Mem[c.PC])
		opPC = c.PC
	)
	defer c.recoverHalt(op, opPC, &err)

	c.PC++

	switch op {
	case BRK:
		c.idle = true
		return opaque.Complete(bus.Ack()), nil
	case JCI, JMI, JSI:
		c.PC += 2
		if op == JCI && c.Work.wrap().Pop() == 0 {
			return done()
		}
		if op == JSI {
			c.Ret.wrap().PushShort(c.PC)
		}
		c.PC += short(c.Mem[c.PC-2], c.Mem[c.PC-1])
		return done()
	}

	var st *stackWrapper
	if op.Return() {
		st = c.Ret.keep(op.Keep())
	} else {
		st = c.Work.keep(op.Keep())
	}

	switch op.Base() {
	case LIT:
		st.Push(c.Mem[c.PC])
		c.PC++
		if op.Short() {
			st.Push(c.Mem[c.PC])
			c.PC++
		}
	case JMP, JSR:
		pc := c.PC
		if op.Short() {
			c.PC = st.PopShort()
		} else {
			c.PC += st.PopOffset()
		}
		if op.Base() == JSR {
			c.Ret.wrap().PushShort(pc)
		}
	case JCN:
		var addr uint16
		if op.Short() {
			addr = st.PopShort()
		} else {
			addr = c.PC + st.PopOffset()
		}
		if st.Pop() != 0 {
			c.PC = addr
		}
	case STH:
		to := c.Ret.wrap()
		if op.Return() {
			to = c.Work.wrap()
		}
		if op.Short() {
			to.PushShort(st.PopShort())
		} else {
			to.Push(st.Pop())
		}
	case LDZ:
		addr := st.Pop()
		c.load(st, op, uint16(addr), uint16(addr+1))
	case STZ:
		addr := st.Pop()
		c.store(st, op, uint16(addr), uint16(addr+1))
	case LDR:
		addr := c.PC + st.PopOffset()
		c.load(st, op, addr, addr+1)
	case STR:
		addr := c.PC + st.PopOffset()
		c.store(st, op, addr, addr+1)
	case LDA:
		addr := st.PopShort()
		c.load(st, op, addr, addr+1)
	case STA:
		addr := st.PopShort()
		c.store(st, op, addr, addr+1)
	case DEI:
		return c.dei(st, op, opPC)
	case DEO:
		return c.deo(st, op)
	case SFT:
		sft := st.Pop()
		left, right := (sft&0xf0)>>4, sft&0x0f
		if op.Short() {
			st.PushShort((st.PopShort() >> right) << left)
		} else {
			st.Push((st.Pop() >> right) << left)
		}
	default:
		if op.Short() {
			execSimple(op, pushPopper[uint16](shortPushPopper{st}))
		} else {
			execSimple(op, pushPopper[byte](st))
		}
	}
	return done()
}

func done() (opaque.Step, error) { return opaque.Complete(bus.Ack()), nil }

func (c *Core) load(st *stackWrapper, op Op, addr, next uint16) {
	st.Push(c.Mem[addr])
	if op.Short() {
		st.Push(c.Mem[next])
	}
}

func (c *Core) store(st *stackWrapper, op Op, addr, next uint16) {
	if op.Short() {
		c.Mem[next] = st.Pop()
	}
	c.Mem[addr] = st.Pop()
}

// dei suspends on a read of the port on top of the stack, or of it and the
// port after it for DEI2, and pushes the result.
func (c *Core) dei(st *stackWrapper, op Op, opPC uint16) (opaque.Step, error) {
	port := st.Pop()
	push := func(reply bus.Message) (step opaque.Step, err error) {
		defer c.recoverHalt(op, opPC, &err)
		st.Push(reply.Value)
		return done()
	}
	if !op.Short() {
		return opaque.Suspend(bus.ReadPort(port), push), nil
	}
	return opaque.Suspend(bus.ReadPort(port), func(hi bus.Message) (opaque.Step, error) {
		return opaque.Suspend(bus.ReadPort(port+1), func(lo bus.Message) (opaque.Step, error) {
			if _, err := push(hi); err != nil {
				return opaque.Step{}, err
			}
			return push(lo)
		}), nil
	}), nil
}

// deo suspends on a write of the value below the port on top of the stack.
func (c *Core) deo(st *stackWrapper, op Op) (opaque.Step, error) {
	port := st.Pop()
	if !op.Short() {
		return opaque.Suspend(bus.WritePort(port, st.Pop()), ack), nil
	}
	v := st.PopShort()
	return opaque.Suspend(bus.WritePort(port, byte(v>>8)), func(bus.Message) (opaque.Step, error) {
		return opaque.Suspend(bus.WritePort(port+1, byte(v)), ack), nil
	}), nil
}

func ack(bus.Message) (opaque.Step, error) { return done() }

// recoverHalt converts a HaltCode panic into a HaltError in *err and
// leaves the core halted.
func (c *Core) recoverHalt(op Op, addr uint16, err *error) {
	if e := recover(); e != nil {
		code, ok := e.(HaltCode)
		if !ok {
			panic(e)
		}
		c.halted = true
		*err = HaltError{HaltCode: code, Op: op, Addr: addr}
	}
}

func execSimple[T byte | uint16](op Op, s pushPopper[T]) {
	switch op.Base() {
	case INC:
		s.Push(s.Pop() + 1)
	case POP:
		s.Pop()
	case NIP:
		v := s.Pop()
		s.Pop()
		s.Push(v)
	case SWP:
		b, a := s.Pop(), s.Pop()
		s.Push(b)
		s.Push(a)
	case ROT:
		c, b, a := s.Pop(), s.Pop(), s.Pop()
		s.Push(b)
		s.Push(c)
		s.Push(a)
	case DUP:
		v := s.Pop()
		s.Push(v)
		s.Push(v)
	case OVR:
		b, a := s.Pop(), s.Pop()
		s.Push(a)
		s.Push(b)
		s.Push(a)
	case EQU:
		s.PushBool(s.Pop() == s.Pop())
	case NEQ:
		s.PushBool(s.Pop() != s.Pop())
	case GTH:
		s.PushBool(s.Pop() < s.Pop())
	case LTH:
		s.PushBool(s.Pop() > s.Pop())
	case ADD:
		s.Push(s.Pop() + s.Pop())
	case SUB:
		b, a := s.Pop(), s.Pop()
		s.Push(a - b)
	case MUL:
		s.Push(s.Pop() * s.Pop())
	case DIV:
		b, a := s.Pop(), s.Pop()
		if b == 0 {
			panic(DivideByZero)
		}
		s.Push(a / b)
	case AND:
		s.Push(s.Pop() & s.Pop())
	case ORA:
		s.Push(s.Pop() | s.Pop())
	case EOR:
		s.Push(s.Pop() ^ s.Pop())
	default:
		panic(fmt.Errorf("internal error: %v not implemented", op))
	}
}

func short(hi, lo byte) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}
