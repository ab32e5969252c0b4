package bus

import "fmt"

// AddressMap decodes the target device of memory and port requests.
//
// Ports are mapped a page of 16 at a time: the high nibble of the port
// number selects the device and the low nibble one of its registers.
type AddressMap struct {
	mem   []memRange
	ports [16]DeviceID
}

type memRange struct {
	lo, hi uint16
	id     DeviceID
}

// MapMemory routes addresses lo through hi inclusive to id. Later mappings
// take precedence over earlier ones where they overlap.
func (m *AddressMap) MapMemory(lo, hi uint16, id DeviceID) {
	if hi < lo {
		panic(fmt.Sprintf("bus: MapMemory: bad range %.4x-%.4x", lo, hi))
	}
	m.mem = append(m.mem, memRange{lo, hi, id})
}

// MapPorts routes ports page<<4 through page<<4|0xf to id.
func (m *AddressMap) MapPorts(page byte, id DeviceID) {
	m.ports[page&0xf] = id
}

// Route returns the device that should receive msg.
func (m *AddressMap) Route(msg Message) (DeviceID, bool) {
	switch msg.Kind {
	case ReadByteKind, WriteByteKind:
		for i := len(m.mem) - 1; i >= 0; i-- {
			if r := m.mem[i]; msg.Addr >= r.lo && msg.Addr <= r.hi {
				return r.id, true
			}
		}
	case ReadPortKind, WritePortKind:
		if id := m.ports[msg.Port>>4]; id != 0 {
			return id, true
		}
	}
	return 0, false
}

// DefaultMap is the layout used by machine.New: RAM across the whole address
// space, the VDP at ports 00-0f and the PPI at ports 10-1f.
func DefaultMap() *AddressMap {
	m := &AddressMap{}
	m.MapMemory(0x0000, 0xffff, RAM)
	m.MapPorts(0x0, VDP)
	m.MapPorts(0x1, PPI)
	return m
}
