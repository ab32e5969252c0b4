package uxn

import "fmt"

// Op represents a Uxn opcode: a base operation in the low five bits plus
// the mode flags Op2, Opr and Opk.
type Op byte

// Mode flags.
const (
	Op2 Op = 0x20 // operate on shorts
	Opr Op = 0x40 // operate on the return stack
	Opk Op = 0x80 // keep operands on the stack
)

// Base operations.
const (
	BRK Op = iota
	INC
	POP
	NIP
	SWP
	ROT
	DUP
	OVR
	EQU
	NEQ
	GTH
	LTH
	JMP
	JCN
	JSR
	STH
	LDZ
	STZ
	LDR
	STR
	LDA
	STA
	DEI
	DEO
	ADD
	SUB
	MUL
	DIV
	AND
	ORA
	EOR
	SFT
)

// Immediate operations, which occupy the encodings of BRK with mode
// flags set.
const (
	JCI Op = 0x20
	JMI Op = 0x40
	JSI Op = 0x60
	LIT Op = 0x80
)

// Short reports whether the opcode has the short flag set.
func (op Op) Short() bool { return op&Op2 != 0 && op&0x9f != 0 }

// Return reports whether the opcode has the return flag set.
func (op Op) Return() bool { return op&Opr != 0 && op&0x9f != 0 }

// Keep reports whether the opcode has the keep flag set.
func (op Op) Keep() bool { return op&Opk != 0 && op&0x1f != 0 }

// Base returns the opcode without any flags set.
func (op Op) Base() Op {
	switch {
	case op&0x1f != 0:
		return op & 0x1f
	case op&0x80 != 0:
		return LIT
	default:
		return op
	}
}

var baseNames = [32]string{
	"BRK", "INC", "POP", "NIP", "SWP", "ROT", "DUP", "OVR",
	"EQU", "NEQ", "GTH", "LTH", "JMP", "JCN", "JSR", "STH",
	"LDZ", "STZ", "LDR", "STR", "LDA", "STA", "DEI", "DEO",
	"ADD", "SUB", "MUL", "DIV", "AND", "ORA", "EOR", "SFT",
}

func (op Op) String() string {
	switch op {
	case BRK:
		return "BRK"
	case JCI:
		return "JCI"
	case JMI:
		return "JMI"
	case JSI:
		return "JSI"
	}
	s := "LIT"
	if op.Base() != LIT {
		s = baseNames[op.Base()]
	}
	if op.Short() {
		s += "2"
	}
	if op.Keep() {
		s += "k"
	}
	if op.Return() {
		s += "r"
	}
	return s
}

// HaltCode signifies the type of condition that halted execution.
type HaltCode byte

const (
	Underflow    HaltCode = 0x01
	Overflow     HaltCode = 0x02
	DivideByZero HaltCode = 0x03
)

func (c HaltCode) String() string {
	switch c {
	case Underflow:
		return "stack underflow"
	case Overflow:
		return "stack overflow"
	case DivideByZero:
		return "division by zero"
	}
	return fmt.Sprintf("unknown (%.2x)", byte(c))
}

// HaltError is returned when execution is halted by the program.
type HaltError struct {
	HaltCode
	Op   Op
	Addr uint16
}

func (e HaltError) Error() string {
	return fmt.Sprintf("%s executing %s at %.4x", e.HaltCode, e.Op, e.Addr)
}
