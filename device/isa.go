// Package device implements the devices of a machine: a CPU, a video display
// processor, a peripheral interface and RAM. Each communicates with the
// others only through the bus.Dispatcher it is handed.
package device

import (
	"errors"
	"fmt"

	"github.com/nf/hwbus/bus"
)

// Opcode is an instruction of the CPU's small instruction set. The set only
// exists to give the CPU something to do with the bus on each step.
type Opcode byte

const (
	NOP  Opcode = iota
	LDI         // A = Value
	LD          // A = [Addr]
	ST          // [Addr] = A
	IN          // A = port Port
	OUT         // port Port = Value
	OUTA        // port Port = A
	EI          // enable interrupts
	DI          // disable interrupts
	JMP         // PC = Addr
	HALT
)

var opNames = [...]string{
	NOP: "nop", LDI: "ldi", LD: "ld", ST: "st", IN: "in", OUT: "out",
	OUTA: "outa", EI: "ei", DI: "di", JMP: "jmp", HALT: "halt",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%.2x)", byte(op))
}

// Instr is one instruction of a Program.
type Instr struct {
	Op    Opcode
	Addr  uint16
	Port  byte
	Value byte
}

func (in Instr) String() string {
	switch in.Op {
	case LDI:
		return fmt.Sprintf("%v %.2x", in.Op, in.Value)
	case LD, ST, JMP:
		return fmt.Sprintf("%v %.4x", in.Op, in.Addr)
	case IN, OUTA:
		return fmt.Sprintf("%v %.2x", in.Op, in.Port)
	case OUT:
		return fmt.Sprintf("%v %.2x %.2x", in.Op, in.Port, in.Value)
	default:
		return in.Op.String()
	}
}

// Program is the code run by a CPU, indexed by the program counter.
type Program []Instr

// Registers is the architectural state of a CPU.
type Registers struct {
	PC     uint16
	A      byte
	IFF    bool // interrupts enabled
	Halted bool
	Cycles uint64
}

func (r Registers) String() string {
	return fmt.Sprintf("pc=%.4x a=%.2x iff=%v halted=%v cycles=%d", r.PC, r.A, r.IFF, r.Halted, r.Cycles)
}

// ErrUnmapped is returned when an instruction addresses memory or a port
// that no device is mapped to.
var ErrUnmapped = errors.New("no device mapped")

// Fetch returns the instruction at PC and advances PC. It reports false,
// halting the CPU, if the CPU is halted or PC is past the end of p.
func (r *Registers) Fetch(p Program) (Instr, bool) {
	if r.Halted {
		return Instr{}, false
	}
	if int(r.PC) >= len(p) {
		r.Halted = true
		return Instr{}, false
	}
	in := p[r.PC]
	r.PC++
	r.Cycles++
	return in, true
}

// Exec executes in up to the point where it needs the bus. It returns the
// request in needs dispatched, if any, in which case the instruction is
// finished by passing the reply to Retire.
func (r *Registers) Exec(in Instr) (req bus.Message, ok bool) {
	switch in.Op {
	case LDI:
		r.A = in.Value
	case LD:
		return bus.ReadByte(in.Addr), true
	case ST:
		return bus.WriteByte(in.Addr, r.A), true
	case IN:
		return bus.ReadPort(in.Port), true
	case OUT:
		return bus.WritePort(in.Port, in.Value), true
	case OUTA:
		return bus.WritePort(in.Port, r.A), true
	case EI:
		r.IFF = true
	case DI:
		r.IFF = false
	case JMP:
		r.PC = in.Addr
	case HALT:
		r.Halted = true
	}
	return bus.Message{}, false
}

// Retire completes in with the reply to the request returned by Exec.
func (r *Registers) Retire(in Instr, reply bus.Message) {
	switch in.Op {
	case LD, IN:
		r.A = reply.Value
	}
}
