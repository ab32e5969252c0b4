// Package machine assembles devices on a bus and drives them one tick at a
// time.
package machine

import (
	"fmt"
	"image"

	"github.com/nf/hwbus/bus"
	"github.com/nf/hwbus/device"
	"github.com/nf/hwbus/opaque"
	"github.com/nf/hwbus/uxn"
)

// Machine owns a bus and the devices registered on it. Each Tick steps
// the CPU once; everything else happens as a consequence of that step.
type Machine struct {
	cfg Config
	bus *bus.Bus

	cpu     bus.Device
	adapter *opaque.Adapter // nil for a direct CPU
	vdp     *device.VDP
	ppi     *device.PPI
	ram     *device.RAM

	ticks uint64
}

// New builds the machine described by cfg.
func New(cfg Config) (*Machine, error) {
	if cfg.Core == "" {
		cfg.Core = Direct
	}
	if cfg.Map == nil {
		cfg.Map = bus.DefaultMap()
	}
	m := &Machine{
		cfg: cfg,
		vdp: &device.VDP{IRQ: cfg.IRQ},
		ppi: device.NewPPI(),
		ram: &device.RAM{},
	}
	m.ram.Load(0, cfg.Memory)
	if cfg.ProtectMemory && len(cfg.Memory) > 0 {
		m.ram.Protect(0, uint16(len(cfg.Memory)-1))
	}

	switch cfg.Core {
	case Direct:
		m.cpu = device.NewCPU(cfg.Program, cfg.Map)
	case Program:
		m.adapter = opaque.NewAdapter(opaque.NewProgramCore(cfg.Program), cfg.Map)
	case Lua:
		core, err := opaque.NewLuaCore(cfg.Script)
		if err != nil {
			return nil, err
		}
		m.adapter = opaque.NewAdapter(core, cfg.Map)
	case Uxn:
		core := uxn.New(cfg.ROM)
		core.Vector = cfg.Vector
		m.adapter = opaque.NewAdapter(core, cfg.Map)
	default:
		return nil, fmt.Errorf("unknown core %q", cfg.Core)
	}
	if m.adapter != nil {
		m.cpu = m.adapter
	}

	devs := map[bus.DeviceID]bus.Device{
		bus.CPU: m.cpu,
		bus.VDP: m.vdp,
		bus.PPI: m.ppi,
		bus.RAM: m.ram,
	}
	for id, dev := range cfg.Devices {
		if dev == nil {
			delete(devs, id)
			continue
		}
		devs[id] = dev
	}
	reg := bus.NewRegistry()
	for id, dev := range devs {
		if err := reg.Register(id, dev); err != nil {
			m.Close()
			return nil, fmt.Errorf("registering %v: %w", id, err)
		}
	}
	var opts []bus.Option
	if cfg.Tracer != nil {
		opts = append(opts, bus.WithTracer(cfg.Tracer))
	}
	m.bus = bus.New(reg, opts...)
	return m, nil
}

// Error reports the failure of a tick.
type Error struct {
	Tick uint64
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("tick %d: %v", e.Tick, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Tick steps the CPU once. Device state changed before a failure is kept.
func (m *Machine) Tick() error {
	m.ticks++
	if _, err := m.bus.Dispatch(bus.CPU, bus.Step()); err != nil {
		return &Error{Tick: m.ticks, Err: err}
	}
	if n := m.cfg.FrameTicks; n > 0 && m.ticks%uint64(n) == 0 {
		if v, ok := m.device(bus.VDP).(*device.VDP); ok {
			v.VBlank()
		}
	}
	return nil
}

// Run calls Tick n times, stopping at the first error.
func (m *Machine) Run(n int) error {
	for i := 0; i < n; i++ {
		if err := m.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// Reset resets every device that supports it and the tick count.
func (m *Machine) Reset() {
	for _, id := range m.bus.Registry().IDs() {
		if r, ok := m.device(id).(bus.Resetter); ok {
			r.Reset()
		}
	}
	m.ticks = 0
}

// Close releases the resources of the CPU core.
func (m *Machine) Close() {
	if m.adapter == nil {
		return
	}
	if c, ok := m.adapter.Core.(interface{ Close() }); ok {
		c.Close()
	}
}

func (m *Machine) Ticks() uint64 { return m.ticks }

func (m *Machine) Bus() *bus.Bus { return m.bus }

func (m *Machine) device(id bus.DeviceID) bus.Device {
	d, _ := m.bus.Registry().Lookup(id)
	return d
}

// SetInput latches v on an input port of the PPI.
func (m *Machine) SetInput(port, v byte) {
	if p, ok := m.device(bus.PPI).(*device.PPI); ok {
		p.SetInput(port, v)
	}
}

// Frame renders the VDP's display, or returns nil if the VDP has been
// replaced.
func (m *Machine) Frame() *image.RGBA {
	if v, ok := m.device(bus.VDP).(*device.VDP); ok {
		return v.Frame()
	}
	return nil
}

// Uxn returns the machine's Uxn core, or nil if it has another CPU.
func (m *Machine) Uxn() *uxn.Core {
	if m.adapter == nil {
		return nil
	}
	c, _ := m.adapter.Core.(*uxn.Core)
	return c
}

// Peek returns the byte at addr in the CPU's view of memory: the Uxn
// core's own memory, or RAM otherwise.
func (m *Machine) Peek(addr uint16) byte {
	if c := m.Uxn(); c != nil {
		return c.Mem[addr]
	}
	if r, ok := m.device(bus.RAM).(*device.RAM); ok {
		return r.Peek(addr)
	}
	return 0
}
