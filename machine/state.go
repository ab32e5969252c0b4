package machine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nf/hwbus/bus"
	"github.com/nf/hwbus/device"
	"github.com/nf/hwbus/opaque"
	"github.com/nf/hwbus/uxn"
)

// State is a snapshot of a machine between ticks.
type State struct {
	Ticks      uint64
	Core       CoreKind
	CPU        string       // register dump of the CPU
	Trampoline opaque.State // opaque cores only
	VDP        [16]byte
	PPI        PPIState
	Calls      map[bus.DeviceID]uint64
}

type PPIState struct {
	Mode byte
	Out  [3]byte
}

// State returns a snapshot of m.
func (m *Machine) State() State {
	s := State{
		Ticks: m.ticks,
		Core:  m.cfg.Core,
		Calls: m.bus.Stats(),
	}
	switch c := m.device(bus.CPU).(type) {
	case *device.CPU:
		s.CPU = c.Registers().String()
	case *opaque.Adapter:
		s.Trampoline = c.State()
		switch core := c.Core.(type) {
		case *opaque.ProgramCore:
			s.CPU = core.Registers().String()
		case *opaque.LuaCore:
			s.CPU = fmt.Sprintf("iff=%v", core.IFF())
		case *uxn.Core:
			s.CPU = core.String()
		}
	}
	if v, ok := m.device(bus.VDP).(*device.VDP); ok {
		s.VDP = v.Registers()
	}
	if p, ok := m.device(bus.PPI).(*device.PPI); ok {
		s.PPI.Mode = p.Mode()
		for i := range s.PPI.Out {
			s.PPI.Out[i] = p.Output(byte(i))
		}
	}
	return s
}

func (s State) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tick %d %s: %s\n", s.Ticks, s.Core, s.CPU)
	fmt.Fprintf(&b, "vdp: % x\n", s.VDP[:])
	fmt.Fprintf(&b, "ppi: mode=%.2x out=% x\n", s.PPI.Mode, s.PPI.Out[:])
	ids := make([]bus.DeviceID, 0, len(s.Calls))
	for id := range s.Calls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	b.WriteString("calls:")
	for _, id := range ids {
		fmt.Fprintf(&b, " %v=%d", id, s.Calls[id])
	}
	return b.String()
}
