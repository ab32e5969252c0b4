package bus

import (
	"fmt"
	"sort"
)

// Registry owns the devices of a machine. Devices are added once, before the
// Registry is handed to New, and are addressed only by their DeviceID.
type Registry struct {
	slots  map[DeviceID]*slot
	sealed bool
}

type slot struct {
	dev   Device
	calls uint64 // dispatches delivered to dev
}

func NewRegistry() *Registry {
	return &Registry{slots: make(map[DeviceID]*slot)}
}

// Register adds dev under id.
func (r *Registry) Register(id DeviceID, dev Device) error {
	switch {
	case r.sealed:
		return fmt.Errorf("register %v: %w", id, ErrSealed)
	case dev == nil:
		return fmt.Errorf("register %v: nil device", id)
	case r.slots[id] != nil:
		return fmt.Errorf("register %v: %w", id, ErrDuplicate)
	}
	r.slots[id] = &slot{dev: dev}
	return nil
}

// Lookup returns the device registered under id.
func (r *Registry) Lookup(id DeviceID) (Device, bool) {
	s, ok := r.slots[id]
	if !ok {
		return nil, false
	}
	return s.dev, true
}

// IDs returns the registered identifiers in ascending order.
func (r *Registry) IDs() []DeviceID {
	ids := make([]DeviceID, 0, len(r.slots))
	for id := range r.slots {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Registry) Len() int { return len(r.slots) }

func (r *Registry) seal() { r.sealed = true }
