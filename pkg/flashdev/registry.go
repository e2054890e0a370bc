package flashdev

import (
	"fmt"

	"golang.org/x/sync/syncmap"
)

// Registry tracks every mounted Device by volume id, the way a host-side
// tool managing several partitions on one chip needs to. It is safe for
// concurrent use by multiple goroutines -- registration and lookup do not
// go through a Device's own Lock, which only guards a single device's tree.
type Registry struct {
	devices syncmap.Map // uuid string -> *Device
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds d under its VolumeID. It is an error to register a device
// whose VolumeID is already present, since that would silently orphan
// whatever was registered first.
func (r *Registry) Register(d *Device) error {
	key := d.Attrs.VolumeID.String()
	if _, loaded := r.devices.LoadOrStore(key, d); loaded {
		return fmt.Errorf("flashdev: volume %s already registered", key)
	}
	return nil
}

// Unregister removes the device with the given volume id, if present.
func (r *Registry) Unregister(volumeID string) {
	r.devices.Delete(volumeID)
}

// Lookup returns the device registered under volumeID, if any.
func (r *Registry) Lookup(volumeID string) (*Device, bool) {
	v, ok := r.devices.Load(volumeID)
	if !ok {
		return nil, false
	}
	return v.(*Device), true
}

// Range calls fn for every registered device, stopping early if fn returns
// false. The iteration order is unspecified.
func (r *Registry) Range(fn func(d *Device) bool) {
	r.devices.Range(func(_, v interface{}) bool {
		return fn(v.(*Device))
	})
}
