package device

import "github.com/nf/hwbus/bus"

// RAM is 64K of byte-addressable memory. Regions may be marked read only,
// in which case writes to them are ignored.
type RAM struct {
	mem [0x10000]byte
	ro  []span
}

type span struct{ lo, hi uint16 }

// Load copies data into memory starting at addr, ignoring protection.
func (r *RAM) Load(addr uint16, data []byte) {
	copy(r.mem[addr:], data)
}

// Protect makes lo through hi inclusive read only.
func (r *RAM) Protect(lo, hi uint16) { r.ro = append(r.ro, span{lo, hi}) }

// Peek returns the byte at addr without going through the bus.
func (r *RAM) Peek(addr uint16) byte { return r.mem[addr] }

func (r *RAM) readOnly(addr uint16) bool {
	for _, s := range r.ro {
		if addr >= s.lo && addr <= s.hi {
			return true
		}
	}
	return false
}

// Reset clears all writable memory.
func (r *RAM) Reset() {
	for i := range r.mem {
		if !r.readOnly(uint16(i)) {
			r.mem[i] = 0
		}
	}
}

func (r *RAM) Handle(_ bus.Dispatcher, msg bus.Message) (bus.Message, error) {
	switch msg.Kind {
	case bus.ReadByteKind:
		return bus.Byte(r.mem[msg.Addr]), nil
	case bus.WriteByteKind:
		if !r.readOnly(msg.Addr) {
			r.mem[msg.Addr] = msg.Value
		}
		return bus.Ack(), nil
	}
	return bus.Message{}, bus.ErrUnsupported
}
