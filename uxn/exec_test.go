package uxn

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"

	"github.com/nf/hwbus/bus"
	"github.com/nf/hwbus/device"
	"github.com/nf/hwbus/opaque"
)

func TestNew(t *testing.T) {
	for _, romSize := range []int{0, 1, 0xfeff} {
		t.Run(fmt.Sprintf("%.5x", romSize), func(t *testing.T) {
			c := New(bytes.Repeat([]byte{1}, romSize))
			for i := range c.Mem {
				w := byte(0)
				if i >= 0x100 && i < 0x100+romSize {
					w = 1
				}
				if g := c.Mem[i]; g != w {
					t.Fatalf("Mem[%.4x] == %.2x, want %.2x", i, g, w)
				}
			}
			if c.PC != 0x100 {
				t.Errorf("PC is %.4x, want 0100", c.PC)
			}
		})
	}
}

func TestExec(t *testing.T) {
	c := newExecTestCase
	for i, c := range []*execTestCase{
		c(INC).work(1, 2).want().work(1, 3),
		c(INC).work(0xff).want().work(0),
		c(INC|Opk).work(1, 2).want().work(1, 2, 3),
		c(INC|Op2).work(1, 2).want().work(1, 3),
		c(INC|Op2).work(0, 0xff).want().work(1, 0),
		c(INC|Op2).work(0xff, 0xff).want().work(0, 0),
		c(INC|Op2|Opk).work(1, 2).want().work(1, 2, 1, 3),

		c(POP).work(1, 2).want().work(1),
		c(POP|Opk).work(1, 2).want().work(1, 2),
		c(POP|Op2).work(1, 2),
		c(POP|Opr).ret(1, 2).want().ret(1),

		c(NIP).work(1, 2).want().work(2),
		c(NIP|Op2).work(1, 2, 3, 4).want().work(3, 4),
		c(NIP|Op2|Opk).work(1, 2, 3, 4).want().work(1, 2, 3, 4, 3, 4),

		c(SWP).work(1, 2).want().work(2, 1),
		c(SWP|Opk).work(1, 2).want().work(1, 2, 2, 1),
		c(SWP|Op2).work(1, 2, 3, 4).want().work(3, 4, 1, 2),

		c(ROT).work(1, 2, 3).want().work(2, 3, 1),
		c(ROT|Op2).work(1, 2, 3, 4, 5, 6).want().work(3, 4, 5, 6, 1, 2),

		c(DUP).work(1, 2).want().work(1, 2, 2),
		c(DUP|Op2).work(1, 2).want().work(1, 2, 1, 2),

		c(OVR).work(1, 2).want().work(1, 2, 1),
		c(OVR|Op2).work(1, 2, 3, 4).want().work(1, 2, 3, 4, 1, 2),

		c(EQU).work(42, 42).want().work(1),
		c(EQU).work(1, 2).want().work(0),
		c(EQU|Op2).work(1, 2, 1, 2).want().work(1),
		c(NEQ|Opk).work(1, 2).want().work(1, 2, 1),
		c(GTH).work(2, 1).want().work(1),
		c(GTH|Op2).work(1, 2, 1, 3).want().work(0),
		c(LTH).work(1, 2).want().work(1),
		c(LTH|Op2).work(1, 3, 1, 2).want().work(0),

		c(ADD).work(1, 2).want().work(3),
		c(ADD|Op2).work(0x01, 0xff, 0x00, 0x01).want().work(0x02, 0x00),
		c(SUB).work(3, 2).want().work(1),
		c(MUL).work(2, 3).want().work(6),
		c(DIV).work(6, 3).want().work(2),
		c(AND).work(0x99, 0xb8).want().work(0x98),
		c(ORA).work(0x36, 0x63).want().work(0x77),
		c(EOR).work(0x31, 0x13).want().work(0x22),
		c(SFT).work(9, 0x21).want().work(16),
		c(SFT|Op2).work(1, 9, 0x21).want().work(2, 16),

		c(JCI).mem(0x101, 2, 2).work(0).want().pc(0x103),
		c(JCI).mem(0x101, 7, 5).work(1).want().pc(0x808),
		c(JMI).mem(0x101, 7, 5).want().pc(0x808),
		c(JSI).mem(0x101, 7, 5).want().ret(1, 3).pc(0x808),

		c(LIT).mem(0x101, 1).want().work(1).pc(0x102),
		c(LIT|Op2).mem(0x101, 1, 2).want().work(1, 2).pc(0x103),
		c(LIT|Opr).mem(0x101, 1).want().ret(1).pc(0x102),

		c(JMP).work(1).want().pc(0x102),
		c(JMP).work(rel(-2)).want().pc(0xff),
		c(JMP|Op2).work(3, 4).want().pc(0x304),
		c(JCN).work(0, 4).want(),
		c(JCN).work(1, 4).want().pc(0x105),
		c(JCN|Op2).work(1, 2, 7).want().pc(0x207),
		c(JSR).work(4).want().ret(1, 1).pc(0x105),
		c(JSR|Op2).work(2, 7).want().ret(1, 1).pc(0x207),

		c(STH).work(7).want().ret(7),
		c(STH|Opr).ret(7).want().work(7),
		c(STH|Op2).work(7, 8).want().ret(7, 8),

		c(LDZ).mem(0x71, 0x42).work(0x71).want().work(0x42),
		c(LDZ|Op2).mem(0xff, 0x42).mem(0x00, 0x17).work(0xff).want().work(0x42, 0x17),
		c(STZ).work(0x42, 0x71).want().mem(0x71, 0x42),
		c(STZ|Op2).work(0x42, 0x69, 0x71).want().mem(0x71, 0x42, 0x69),
		c(LDR).mem(0xf1, 0x42).work(rel(-16)).want().work(0x42),
		c(STR|Op2).work(0x42, 0x69, rel(-16)).want().mem(0xf1, 0x42, 0x69),
		c(LDA|Op2).mem(0x109, 0x42, 0x69).work(0x01, 0x09).want().work(0x42, 0x69),
		c(STA).work(0x42, 0x1, 0x09).want().mem(0x109, 0x42),

		c(DIV).work(1, 2, 0).want().work(1).
			error(HaltError{HaltCode: DivideByZero, Op: DIV, Addr: 0x100}),
		c(POP).want().
			error(HaltError{HaltCode: Underflow, Op: POP, Addr: 0x100}),
		c(POP|Op2).work(42).
			error(HaltError{HaltCode: Underflow, Op: POP | Op2, Addr: 0x100}),
		c(POP|Op2|Opk).work(42).want().work(42).
			error(HaltError{HaltCode: Underflow, Op: POP | Op2 | Opk, Addr: 0x100}),
		c(DUP).work(bytes.Repeat([]byte{7}, 255)...).want().work(bytes.Repeat([]byte{7}, 255)...).
			error(HaltError{HaltCode: Overflow, Op: DUP, Addr: 0x100}),
	} {
		t.Run(fmt.Sprintf("%s_%d", Op(c.m.Mem[0x100]), i), func(t *testing.T) {
			step, err := c.m.Start(bus.Step())
			if err != c.err {
				t.Fatalf("got error %v, want %v", err, c.err)
			}
			if err == nil && step != opaque.Complete(bus.Ack()) {
				t.Fatalf("got step %+v, want completion", step)
			}
			if g, w := c.m.Halted(), err != nil; g != w {
				t.Errorf("halted is %v, want %v", g, w)
			}
			if g, w := c.m.Work, c.w.Work; !stackEq(g, w) {
				t.Errorf("work stack is\n\t%v\nwant\n\t%v", g, w)
			}
			if g, w := c.m.Ret, c.w.Ret; !stackEq(g, w) {
				t.Errorf("return stack is %v, want %v", g, w)
			}
			if g, w := c.m.Mem, c.w.Mem; g != w {
				for i := range g {
					if g[i] != w[i] {
						t.Errorf("memory[%.4x] = %.2x, want %.2x", i, g[i], w[i])
					}
				}
			}
			if g, w := c.m.PC, c.w.PC; g != w {
				t.Errorf("PC is %x, want %x", g, w)
			}
		})
	}
}

type execTestCase struct {
	m, w *Core
	err  error
	set  *Core
}

func newExecTestCase(op Op) *execTestCase {
	c := &execTestCase{}
	c.m = New([]byte{byte(op)})
	c.w = New([]byte{byte(op)})
	c.w.PC++
	c.set = c.m
	return c
}

func (c *execTestCase) work(bytes ...byte) *execTestCase {
	setStack(&c.set.Work, bytes)
	return c
}

func (c *execTestCase) ret(bytes ...byte) *execTestCase {
	setStack(&c.set.Ret, bytes)
	return c
}

func (c *execTestCase) mem(addr uint16, bytes ...byte) *execTestCase {
	copy(c.set.Mem[addr:], bytes)
	if c.set == c.m {
		copy(c.w.Mem[addr:], bytes)
	}
	return c
}

func (c *execTestCase) pc(addr uint16) *execTestCase {
	c.set.PC = addr
	return c
}

func (c *execTestCase) want() *execTestCase {
	c.set = c.w
	return c
}

func (c *execTestCase) error(err error) *execTestCase {
	c.err = err
	return c
}

func setStack(s *Stack, bytes []byte) {
	for i, b := range bytes {
		s.Bytes[i] = b
	}
	s.Ptr = byte(len(bytes))
}

func stackEq(a, b Stack) bool {
	return a.Ptr == b.Ptr && bytes.Equal(a.Bytes[:a.Ptr], b.Bytes[:b.Ptr])
}

func rel(i int8) byte { return byte(i) }

// portLog is a dispatcher that answers port reads from in and records
// every port access.
type portLog struct {
	in  map[byte]byte
	log []bus.Message
}

func (p *portLog) Dispatch(_ bus.DeviceID, msg bus.Message) (bus.Message, error) {
	p.log = append(p.log, msg)
	if msg.Kind == bus.ReadPortKind {
		return bus.Byte(p.in[msg.Port]), nil
	}
	return bus.Ack(), nil
}

func TestDeviceIO(t *testing.T) {
	for _, c := range []struct {
		name string
		rom  []byte
		in   map[byte]byte
		log  []bus.Message
		work []byte
	}{
		{
			name: "DEO",
			rom:  []byte{byte(LIT | Op2), 0x20, 0x01, byte(DEO)},
			log:  []bus.Message{bus.WritePort(0x01, 0x20)},
		},
		{
			name: "DEO2",
			rom:  []byte{byte(LIT | Op2), 0xab, 0xcd, byte(LIT), 0x02, byte(DEO | Op2)},
			log:  []bus.Message{bus.WritePort(0x02, 0xab), bus.WritePort(0x03, 0xcd)},
		},
		{
			name: "DEI",
			rom:  []byte{byte(LIT), 0x11, byte(DEI)},
			in:   map[byte]byte{0x11: 0x5a},
			log:  []bus.Message{bus.ReadPort(0x11)},
			work: []byte{0x5a},
		},
		{
			name: "DEIk",
			rom:  []byte{byte(LIT), 0x11, byte(DEI | Opk)},
			in:   map[byte]byte{0x11: 0x5a},
			log:  []bus.Message{bus.ReadPort(0x11)},
			work: []byte{0x11, 0x5a},
		},
		{
			name: "DEI2",
			rom:  []byte{byte(LIT), 0x02, byte(DEI | Op2)},
			in:   map[byte]byte{0x02: 0x12, 0x03: 0x34},
			log:  []bus.Message{bus.ReadPort(0x02), bus.ReadPort(0x03)},
			work: []byte{0x12, 0x34},
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			core := New(c.rom)
			a := opaque.NewAdapter(core, bus.DefaultMap())
			d := &portLog{in: c.in}
			for !core.Idle() {
				if _, err := a.Handle(d, bus.Step()); err != nil {
					t.Fatal(err)
				}
			}
			if !reflect.DeepEqual(d.log, c.log) {
				t.Errorf("port accesses are %v, want %v", d.log, c.log)
			}
			var want Stack
			setStack(&want, c.work)
			if !stackEq(core.Work, want) {
				t.Errorf("work stack is %v, want %v", core.Work, want)
			}
		})
	}
}

func TestDEIOverflow(t *testing.T) {
	core := New([]byte{byte(DEI | Opk)})
	setStack(&core.Work, bytes.Repeat([]byte{0x11}, 255))
	_, err := opaque.NewAdapter(core, bus.DefaultMap()).Handle(&portLog{}, bus.Step())
	want := HaltError{HaltCode: Overflow, Op: DEI | Opk, Addr: 0x100}
	if err != want {
		t.Errorf("got error %v, want %v", err, want)
	}
	if !core.Halted() {
		t.Errorf("core not halted")
	}
}

// The core runs its program, enables the VDP's interrupt, and from then
// on runs the vector whenever it is idle.
func TestInterruptVector(t *testing.T) {
	rom := []byte{
		byte(LIT | Op2), device.VDPModeIE, 0x01, byte(DEO), // enable VDP interrupts
		byte(BRK),
	}
	core := New(rom)
	core.Vector = 0x0200
	copy(core.Mem[0x200:], []byte{
		byte(LIT), 0x00, byte(LDZ), byte(INC), byte(LIT), 0x00, byte(STZ), // count in zero page
		byte(BRK),
	})
	reg := bus.NewRegistry()
	reg.Register(bus.CPU, opaque.NewAdapter(core, bus.DefaultMap()))
	reg.Register(bus.VDP, &device.VDP{})
	b := bus.New(reg)
	for i := 0; i < 3+6*2; i++ {
		if _, err := b.Dispatch(bus.CPU, bus.Step()); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if !core.IFF {
		t.Errorf("interrupts not enabled")
	}
	// 3 steps to reach BRK, then 6 per pass of the vector.
	if g := core.Mem[0]; g != 2 {
		t.Errorf("vector ran %d times, want 2", g)
	}
}
