package machine

import (
	"fmt"

	"github.com/nf/hwbus/bus"
	"github.com/nf/hwbus/device"
)

// CoreKind selects the implementation of the machine's CPU.
type CoreKind string

const (
	// Direct is device.CPU, which dispatches its own bus accesses.
	Direct CoreKind = "direct"
	// Program runs the same programs as Direct on an opaque core.
	Program CoreKind = "program"
	// Lua runs a Lua script on an opaque core.
	Lua CoreKind = "lua"
	// Uxn runs a Uxn ROM on an opaque core.
	Uxn CoreKind = "uxn"
)

// ParseCoreKind returns the CoreKind named s.
func ParseCoreKind(s string) (CoreKind, error) {
	switch k := CoreKind(s); k {
	case Direct, Program, Lua, Uxn:
		return k, nil
	}
	return "", fmt.Errorf("unknown core %q (want direct, program, lua or uxn)", s)
}

// Config describes a machine.
type Config struct {
	Core CoreKind // defaults to Direct

	Program device.Program // Direct and Program
	Script  string         // Lua
	ROM     []byte         // Uxn, loaded at 0100
	Vector  uint16         // Uxn interrupt vector

	// Memory is loaded into RAM at address 0. If ProtectMemory is set
	// the loaded region is read only.
	Memory        []byte
	ProtectMemory bool

	// Map routes memory and port accesses. Defaults to bus.DefaultMap.
	Map *bus.AddressMap

	// Devices are registered in addition to, or in place of, the
	// machine's own devices. A nil device leaves that identifier
	// unregistered.
	Devices map[bus.DeviceID]bus.Device

	// IRQ is the device the VDP signals when its interrupt enable bit
	// changes. Defaults to bus.CPU.
	IRQ bus.DeviceID

	// FrameTicks is the number of ticks per video frame; the VDP's frame
	// flag is raised after each. Zero disables it.
	FrameTicks int

	Tracer bus.Tracer
}
