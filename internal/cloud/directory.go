package cloud

import (
	"context"
	"strings"
)

// Categories used by window covering devices.
const (
	CategoryCurtain       = "cl"
	CategoryCurtainSwitch = "clkg"
)

// DeviceLister lists devices from the cloud. *Client satisfies it.
type DeviceLister interface {
	ListDevices(ctx context.Context) []Device
}

// Directory filters the cloud device list down to window coverings.
type Directory struct {
	lister DeviceLister
}

// NewDirectory returns a Directory backed by lister.
func NewDirectory(lister DeviceLister) *Directory {
	return &Directory{lister: lister}
}

// ListBlindDevices returns the devices IsBlind accepts, in listing order.
// It never returns nil.
func (d *Directory) ListBlindDevices(ctx context.Context) []Device {
	blinds := []Device{}
	for _, dev := range d.lister.ListDevices(ctx) {
		if IsBlind(dev) {
			blinds = append(blinds, dev)
		}
	}
	return blinds
}

// IsBlind reports whether a device is a window covering: category cl or
// clkg, or a name containing "blind" or "curtain" in any case.
func IsBlind(d Device) bool {
	if d.Category == CategoryCurtain || d.Category == CategoryCurtainSwitch {
		return true
	}
	name := strings.ToLower(d.Name)
	return strings.Contains(name, "blind") || strings.Contains(name, "curtain")
}
