package bus

import "fmt"

// DeviceID identifies a device attached to a Bus. It is the only way one
// device may refer to another.
type DeviceID byte

const (
	CPU DeviceID = 0x01
	VDP DeviceID = 0x02
	PPI DeviceID = 0x03
	RAM DeviceID = 0x04

	externalBase DeviceID = 0x80
)

// External returns the identifier of the nth externally supplied device.
func External(n byte) DeviceID { return externalBase | DeviceID(n&0x7f) }

// IsExternal reports whether id was returned by External.
func (id DeviceID) IsExternal() bool { return id&externalBase != 0 }

func (id DeviceID) String() string {
	switch id {
	case CPU:
		return "cpu"
	case VDP:
		return "vdp"
	case PPI:
		return "ppi"
	case RAM:
		return "ram"
	}
	if id.IsExternal() {
		return fmt.Sprintf("ext%d", byte(id&^externalBase))
	}
	return fmt.Sprintf("dev(%.2x)", byte(id))
}
