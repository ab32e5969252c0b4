package device

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/nf/hwbus/bus"
)

type rig struct {
	cpu *CPU
	vdp *VDP
	ppi *PPI
	ram *RAM
	rec *bus.Recorder
	bus *bus.Bus
}

func newRig(t *testing.T, prog Program) *rig {
	t.Helper()
	r := &rig{
		cpu: NewCPU(prog, bus.DefaultMap()),
		vdp: &VDP{},
		ppi: NewPPI(),
		ram: &RAM{},
		rec: &bus.Recorder{},
	}
	reg := bus.NewRegistry()
	for id, dev := range map[bus.DeviceID]bus.Device{
		bus.CPU: r.cpu, bus.VDP: r.vdp, bus.PPI: r.ppi, bus.RAM: r.ram,
	} {
		if err := reg.Register(id, dev); err != nil {
			t.Fatal(err)
		}
	}
	r.bus = bus.New(reg, bus.WithTracer(r.rec))
	return r
}

func (r *rig) step(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := r.bus.Dispatch(bus.CPU, bus.Step()); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestPortWriteRaisesInterrupt(t *testing.T) {
	r := newRig(t, Program{{Op: OUT, Port: 0x01, Value: 0xab}})
	r.step(t, 1)

	if !r.cpu.Registers().IFF {
		t.Errorf("cpu interrupts not enabled")
	}
	if g := r.vdp.Registers()[VDPMode]; g != 0xab {
		t.Errorf("vdp mode register is %.2x, want ab", g)
	}
	var got []bus.Frame
	for _, e := range r.rec.Events {
		if !e.Exit {
			got = append(got, e.Frame)
		} else if e.Reply != bus.Ack() {
			t.Errorf("%v replied %v, want Ack", e.Frame, e.Reply)
		}
	}
	want := []bus.Frame{
		{Target: bus.CPU, Msg: bus.Step()},
		{Target: bus.VDP, Msg: bus.WritePort(0x01, 0xab)},
		{Target: bus.CPU, Msg: bus.EnableInterrupt()},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("dispatches are %v, want %v", got, want)
	}
}

func TestCPUProgram(t *testing.T) {
	prog := Program{
		{Op: LDI, Value: 0x7f},
		{Op: ST, Addr: 0x0042},
		{Op: LDI, Value: 0},
		{Op: LD, Addr: 0x0042},
		{Op: OUTA, Port: 0x10}, // PPI port A, output in mode 80
		{Op: IN, Port: 0x11},   // PPI port B, input
		{Op: DI},
		{Op: JMP, Addr: 0x0009},
		{Op: NOP},
		{Op: HALT},
	}
	r := newRig(t, prog)
	r.ppi.SetInput(PPIPortB, 0x3c)
	r.ppi.write(PPIControl, 0x82) // A out, B in, C out
	r.cpu.regs.IFF = true
	r.step(t, 9)

	if g := r.ram.Peek(0x42); g != 0x7f {
		t.Errorf("ram[0042] is %.2x, want 7f", g)
	}
	if g := r.ppi.Output(PPIPortA); g != 0x7f {
		t.Errorf("ppi port A is %.2x, want 7f", g)
	}
	want := Registers{PC: 0x0a, A: 0x3c, Halted: true, Cycles: 9}
	if g := r.cpu.Registers(); g != want {
		t.Errorf("registers are %v, want %v", g, want)
	}
	// A halted CPU acknowledges steps without touching the bus.
	n := len(r.rec.Events)
	r.step(t, 3)
	if g := len(r.rec.Events) - n; g != 6 {
		t.Errorf("halted steps produced %d events, want 6", g)
	}
}

func TestCPURunsOffEnd(t *testing.T) {
	r := newRig(t, Program{{Op: NOP}})
	r.step(t, 2)
	if g := r.cpu.Registers(); !g.Halted || g.PC != 1 || g.Cycles != 1 {
		t.Errorf("registers are %v, want halted at pc 1 after 1 cycle", g)
	}
}

func TestCPUUnmapped(t *testing.T) {
	r := newRig(t, Program{{Op: OUT, Port: 0x42, Value: 1}})
	_, err := r.bus.Dispatch(bus.CPU, bus.Step())
	var de bus.DeviceError
	if !errors.As(err, &de) || de.ID != bus.CPU || !errors.Is(err, ErrUnmapped) {
		t.Fatalf("got error %v, want DeviceError wrapping ErrUnmapped", err)
	}
}

func TestDeviceUnsupported(t *testing.T) {
	r := newRig(t, nil)
	for _, c := range []struct {
		id  bus.DeviceID
		msg bus.Message
	}{
		{bus.VDP, bus.Step()},
		{bus.VDP, bus.ReadByte(0)},
		{bus.PPI, bus.EnableInterrupt()},
		{bus.RAM, bus.WritePort(0, 0)},
		{bus.CPU, bus.ReadByte(0)},
	} {
		_, err := r.bus.Dispatch(c.id, c.msg)
		if !errors.Is(err, bus.ErrUnsupported) {
			t.Errorf("%v <- %v: got %v, want ErrUnsupported", c.id, c.msg, err)
		}
	}
}

func TestVDP(t *testing.T) {
	r := newRig(t, nil)
	write := func(p, v byte) {
		t.Helper()
		if err := bus.WritePortTo(r.bus, bus.VDP, p, v); err != nil {
			t.Fatal(err)
		}
	}
	read := func(p byte) byte {
		t.Helper()
		v, err := bus.ReadPortFrom(r.bus, bus.VDP, p)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	write(VDPAddrHi, 0x3f)
	write(VDPAddrLo, 0xff)
	write(VDPData, 0x11)
	write(VDPData, 0x22) // wraps to 0000
	if g := r.vdp.Addr(); g != 0x0001 {
		t.Errorf("address is %.4x, want 0001", g)
	}
	write(VDPAddrLo, 0x00)
	write(VDPAddrHi, 0x00)
	if g := read(VDPData); g != 0x22 {
		t.Errorf("vram[0000] is %.2x, want 22", g)
	}

	// Only changes of the enable bit reach the CPU.
	for _, c := range []struct {
		mode byte
		iff  bool
		sigs int
	}{
		{0x20, true, 1},
		{0x21, true, 0},
		{0x01, false, 1},
		{0x01, false, 0},
	} {
		n := len(r.rec.Events)
		write(VDPMode, c.mode)
		if g := r.cpu.Registers().IFF; g != c.iff {
			t.Errorf("mode %.2x: iff is %v, want %v", c.mode, g, c.iff)
		}
		if g := (len(r.rec.Events) - n - 2) / 2; g != c.sigs {
			t.Errorf("mode %.2x: %d signals, want %d", c.mode, g, c.sigs)
		}
	}

	r.vdp.VBlank()
	if g := read(VDPStatus); g&0x80 == 0 {
		t.Errorf("status %.2x after VBlank, want frame bit", g)
	}
	if g := read(VDPStatus); g&0x80 != 0 {
		t.Errorf("status %.2x after read, want frame bit clear", g)
	}
}

func TestVDPIRQTarget(t *testing.T) {
	var got []bus.Message
	ext := bus.DeviceFunc(func(_ bus.Dispatcher, msg bus.Message) (bus.Message, error) {
		got = append(got, msg)
		return bus.Ack(), nil
	})
	reg := bus.NewRegistry()
	reg.Register(bus.VDP, &VDP{IRQ: bus.External(0)})
	reg.Register(bus.External(0), ext)
	b := bus.New(reg)
	bus.WritePortTo(b, bus.VDP, VDPMode, VDPModeIE)
	bus.WritePortTo(b, bus.VDP, VDPMode, 0)
	if w := []bus.Message{bus.EnableInterrupt(), bus.DisableInterrupt()}; !reflect.DeepEqual(got, w) {
		t.Errorf("irq device got %v, want %v", got, w)
	}
}

func TestVDPFrame(t *testing.T) {
	v := &VDP{}
	v.mem[VDPColor] = 0xf4 // white on dark blue
	v.vram[0] = 0x81
	v.vram[32] = 0x40
	m := v.Frame()
	for _, c := range []struct {
		x, y int
		fg   bool
	}{
		{0, 0, true}, {1, 0, false}, {7, 0, true}, {8, 0, false},
		{0, 1, false}, {1, 1, true}, {255, 191, false},
	} {
		want := palette[4]
		if c.fg {
			want = palette[15]
		}
		if g := m.RGBAAt(c.x, c.y); g != want {
			t.Errorf("pixel (%d,%d) is %v, want %v", c.x, c.y, g, want)
		}
	}
}

func TestPPI(t *testing.T) {
	p := NewPPI()
	p.SetInput(PPIPortA, 0xaa)
	p.SetInput(PPIPortC, 0x5a)
	read := func(port byte) byte { return p.read(port) }

	if g := read(PPIPortA); g != 0xaa {
		t.Errorf("reset port A is %.2x, want input aa", g)
	}
	p.write(PPIControl, 0x89) // A out, B out, C in
	p.write(PPIPortA, 0x12)
	if g := read(PPIPortA); g != 0x12 {
		t.Errorf("output port A is %.2x, want 12", g)
	}
	if g := read(PPIPortC); g != 0x5a {
		t.Errorf("input port C is %.2x, want 5a", g)
	}
	p.write(PPIControl, 0x80) // all out
	p.write(PPIControl, 0x07) // set bit 3 of C
	p.write(PPIControl, 0x0f) // set bit 7 of C
	p.write(PPIControl, 0x06) // clear bit 3 of C
	if g := read(PPIPortC); g != 0x80 {
		t.Errorf("port C after bit set/reset is %.2x, want 80", g)
	}
	if g := read(PPIControl); g != 0x80 {
		t.Errorf("mode is %.2x, want 80", g)
	}
	p.Reset()
	if g := read(PPIPortA); g != 0xaa || p.Mode() != ppiResetMode {
		t.Errorf("after reset port A is %.2x mode %.2x", g, p.Mode())
	}
}

func TestRAM(t *testing.T) {
	r := &RAM{}
	r.Load(0xfff0, []byte("rom!"))
	r.Protect(0xfff0, 0xffff)
	r.Handle(nil, bus.WriteByte(0xfff0, 'x'))
	r.Handle(nil, bus.WriteByte(0x0010, 'y'))
	if g, _ := r.Handle(nil, bus.ReadByte(0xfff0)); g != bus.Byte('r') {
		t.Errorf("read of protected byte is %v, want Byte(72)", g)
	}
	if g := r.Peek(0x0010); g != 'y' {
		t.Errorf("ram[0010] is %q, want y", g)
	}
	r.Reset()
	if r.Peek(0x0010) != 0 || r.Peek(0xfff3) != '!' {
		t.Errorf("reset cleared the wrong memory")
	}
}

func TestParseProgram(t *testing.T) {
	src := `
# boot
ldi 7F
st 0x0042   # store
out 01 ab
IN 11
outa 10
ei
di
jmp 0000
nop
halt
`
	p, err := ParseProgram(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	want := Program{
		{Op: LDI, Value: 0x7f},
		{Op: ST, Addr: 0x42},
		{Op: OUT, Port: 0x01, Value: 0xab},
		{Op: IN, Port: 0x11},
		{Op: OUTA, Port: 0x10},
		{Op: EI},
		{Op: DI},
		{Op: JMP},
		{Op: NOP},
		{Op: HALT},
	}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("got %v, want %v", p, want)
	}

	for _, bad := range []string{
		"frob",
		"ldi",
		"ldi 100",
		"out 01",
		"ld 10000",
		"halt 1",
		"st zz",
	} {
		if _, err := ParseProgram(strings.NewReader("nop\n" + bad)); err == nil {
			t.Errorf("%q: no error", bad)
		} else if !strings.HasPrefix(err.Error(), "line 2: ") {
			t.Errorf("%q: error %q lacks line number", bad, err)
		}
	}
}
