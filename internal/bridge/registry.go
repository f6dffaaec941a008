package bridge

import (
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/platform"
)

// Entry is one cloud device with its ecosystem descriptors.
type Entry struct {
	CloudDeviceID string                `json:"cloud_device_id"`
	Descriptors   []platform.Descriptor `json:"platforms"`
}

// Registry maps cloud device ids to the descriptors registered for them.
// It holds at most one descriptor per ecosystem per device.
type Registry struct {
	mu      sync.RWMutex
	devices map[string][]platform.Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string][]platform.Descriptor)}
}

// Put replaces the descriptors of a device. When descs holds more than one
// descriptor for an ecosystem the last one wins.
func (r *Registry) Put(cloudID string, descs []platform.Descriptor) {
	byPlatform := make(map[string]int, len(descs))
	out := make([]platform.Descriptor, 0, len(descs))
	for _, d := range descs {
		if i, ok := byPlatform[d.Platform]; ok {
			out[i] = d
			continue
		}
		byPlatform[d.Platform] = len(out)
		out = append(out, d)
	}

	r.mu.Lock()
	r.devices[cloudID] = out
	r.mu.Unlock()
}

// Get returns a copy of the descriptors of a device.
func (r *Registry) Get(cloudID string) ([]platform.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descs, ok := r.devices[cloudID]
	if !ok {
		return nil, false
	}
	return append([]platform.Descriptor(nil), descs...), true
}

// Has reports whether a device is registered.
func (r *Registry) Has(cloudID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[cloudID]
	return ok
}

// Find scans every device for the descriptor with the given ecosystem and
// platform device id.
func (r *Registry) Find(platformName, platformDeviceID string) (platform.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, descs := range r.devices {
		for _, d := range descs {
			if d.Platform == platformName && d.PlatformDeviceID == platformDeviceID {
				return d, true
			}
		}
	}
	return platform.Descriptor{}, false
}

// MarkSynced sets LastSync on every descriptor of a device.
func (r *Registry) MarkSynced(cloudID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	descs := r.devices[cloudID]
	for i := range descs {
		descs[i].LastSync = at
	}
}

// CloudIDs returns the registered cloud device ids, sorted.
func (r *Registry) CloudIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered cloud devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Snapshot returns every entry sorted by cloud device id.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.devices))
	for id, descs := range r.devices {
		entries = append(entries, Entry{
			CloudDeviceID: id,
			Descriptors:   append([]platform.Descriptor(nil), descs...),
		})
	}
	r.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CloudDeviceID < entries[j].CloudDeviceID
	})
	return entries
}
