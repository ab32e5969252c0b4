package device

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseProgram reads a program written one instruction per line, with
// hexadecimal operands:
//
//	ldi 7f      # comments run to the end of the line
//	st 0042
//	out 01 ab
//	jmp 0000
func ParseProgram(r io.Reader) (Program, error) {
	var (
		p    Program
		s    = bufio.NewScanner(r)
		line = 0
	)
	for s.Scan() {
		line++
		text, _, _ := strings.Cut(s.Text(), "#")
		f := strings.Fields(text)
		if len(f) == 0 {
			continue
		}
		in, err := parseInstr(f)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", line, err)
		}
		p = append(p, in)
	}
	return p, s.Err()
}

func parseInstr(f []string) (Instr, error) {
	op, ok := lookupOp(f[0])
	if !ok {
		return Instr{}, fmt.Errorf("unknown instruction %q", f[0])
	}
	args := f[1:]
	want := 0
	switch op {
	case LDI, LD, ST, IN, OUTA, JMP:
		want = 1
	case OUT:
		want = 2
	}
	if len(args) != want {
		return Instr{}, fmt.Errorf("%v takes %d operands, got %d", op, want, len(args))
	}
	in := Instr{Op: op}
	switch op {
	case LDI:
		v, err := parseHex(args[0], 8)
		in.Value = byte(v)
		return in, err
	case LD, ST, JMP:
		v, err := parseHex(args[0], 16)
		in.Addr = uint16(v)
		return in, err
	case IN, OUTA:
		v, err := parseHex(args[0], 8)
		in.Port = byte(v)
		return in, err
	case OUT:
		port, err := parseHex(args[0], 8)
		if err != nil {
			return in, err
		}
		v, err := parseHex(args[1], 8)
		in.Port, in.Value = byte(port), byte(v)
		return in, err
	}
	return in, nil
}

func lookupOp(name string) (Opcode, bool) {
	for i, n := range opNames {
		if strings.EqualFold(name, n) {
			return Opcode(i), true
		}
	}
	return 0, false
}

func parseHex(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid operand %q", s)
	}
	return v, nil
}
