package device

import (
	"image"
	"image/color"

	"github.com/nf/hwbus/bus"
)

// VDP register numbers, selected by the low nibble of the port.
const (
	VDPData     = 0x0 // VRAM at the address register, which then increments
	VDPMode     = 0x1
	VDPAddrHi   = 0x2
	VDPAddrLo   = 0x3
	VDPStatus   = 0x4
	VDPColor    = 0x7 // foreground<<4 | background
	VDPModeIE   = 0x20
	vramSize    = 0x4000
	FrameWidth  = 256
	FrameHeight = 192
)

// VDP is a video display processor with a page of 16 registers and 16K of
// VRAM. Toggling the interrupt enable bit of the mode register raises or
// lowers the interrupt line of the IRQ device.
type VDP struct {
	IRQ bus.DeviceID // defaults to bus.CPU

	mem  deviceMem
	vram [vramSize]byte
}

func (v *VDP) Reset() {
	v.mem = deviceMem{}
	v.vram = [vramSize]byte{}
}

// Registers returns a copy of the register file.
func (v *VDP) Registers() [16]byte { return v.mem }

func (v *VDP) Addr() uint16 { return v.mem.short(VDPAddrHi) & (vramSize - 1) }

func (v *VDP) setAddr(a uint16) { v.mem.setShort(VDPAddrHi, a&(vramSize-1)) }

// InterruptsEnabled reports whether the mode register's interrupt enable bit
// is set.
func (v *VDP) InterruptsEnabled() bool { return v.mem[VDPMode]&VDPModeIE != 0 }

func (v *VDP) Handle(d bus.Dispatcher, msg bus.Message) (bus.Message, error) {
	switch msg.Kind {
	case bus.ReadPortKind:
		return bus.Byte(v.in(msg.Port & 0xf)), nil
	case bus.WritePortKind:
		return bus.Ack(), v.out(d, msg.Port&0xf, msg.Value)
	}
	return bus.Message{}, bus.ErrUnsupported
}

func (v *VDP) in(p byte) byte {
	switch p {
	case VDPData:
		a := v.Addr()
		v.setAddr(a + 1)
		return v.vram[a]
	case VDPStatus:
		b := v.mem[p]
		v.mem[p] &^= 0x80
		return b
	}
	return v.mem[p]
}

func (v *VDP) out(d bus.Dispatcher, p, b byte) error {
	switch p {
	case VDPData:
		a := v.Addr()
		v.vram[a] = b
		v.setAddr(a + 1)
	case VDPMode:
		old := v.mem[p]
		if !v.mem.setChanged(p, b) || (old^b)&VDPModeIE == 0 {
			return nil
		}
		irq := v.IRQ
		if irq == 0 {
			irq = bus.CPU
		}
		if b&VDPModeIE != 0 {
			return bus.Signal(d, irq, bus.EnableInterrupt())
		}
		return bus.Signal(d, irq, bus.DisableInterrupt())
	case VDPStatus:
		// read only
	default:
		v.mem[p] = b
	}
	return nil
}

// VBlank marks the end of a frame in the status register.
func (v *VDP) VBlank() { v.mem[VDPStatus] |= 0x80 }

// palette is the TMS9918 palette; colour 0 (transparent) is drawn black.
var palette = [16]color.RGBA{
	{0x00, 0x00, 0x00, 0xff}, {0x00, 0x00, 0x00, 0xff},
	{0x21, 0xc8, 0x42, 0xff}, {0x5e, 0xdc, 0x78, 0xff},
	{0x54, 0x55, 0xed, 0xff}, {0x7d, 0x76, 0xfc, 0xff},
	{0xd4, 0x52, 0x4d, 0xff}, {0x42, 0xeb, 0xf5, 0xff},
	{0xfc, 0x55, 0x54, 0xff}, {0xff, 0x79, 0x78, 0xff},
	{0xd4, 0xc1, 0x54, 0xff}, {0xe6, 0xce, 0x80, 0xff},
	{0x21, 0xb0, 0x3b, 0xff}, {0xc9, 0x5b, 0xba, 0xff},
	{0xcc, 0xcc, 0xcc, 0xff}, {0xff, 0xff, 0xff, 0xff},
}

// Frame renders the first 6K of VRAM as a 256x192 bitmap, one bit per
// pixel, most significant bit leftmost, in the colours of the colour
// register.
func (v *VDP) Frame() *image.RGBA {
	var (
		m  = image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
		fg = palette[v.mem[VDPColor]>>4]
		bg = palette[v.mem[VDPColor]&0xf]
	)
	for i, b := range v.vram[:FrameWidth/8*FrameHeight] {
		x, y := i%(FrameWidth/8)*8, i/(FrameWidth/8)
		for bit := 0; bit < 8; bit++ {
			c := bg
			if b&(0x80>>bit) != 0 {
				c = fg
			}
			m.SetRGBA(x+bit, y, c)
		}
	}
	return m
}
