package platform

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/cloud"
)

// Ecosystem names. Each is also the prefix of its platform device ids.
const (
	Alexa       = "alexa"
	Google      = "google"
	HomeKit     = "homekit"
	SmartThings = "smartthings"
	Matter      = "matter"
)

// Names returns every supported ecosystem in registration order.
func Names() []string {
	return []string{Alexa, Google, HomeKit, SmartThings, Matter}
}

// Descriptor is the per-ecosystem view of one cloud device.
// Payload carries the ecosystem-specific registration document.
type Descriptor struct {
	CloudDeviceID    string    `json:"cloud_device_id"`
	PlatformDeviceID string    `json:"platform_device_id"`
	Platform         string    `json:"platform"`
	DisplayName      string    `json:"display_name"`
	RoomName         string    `json:"room_name"`
	Capabilities     []string  `json:"capabilities"`
	LastSync         time.Time `json:"last_sync"`
	Payload          any       `json:"payload,omitempty"`
}

// State is the cloud-side state of a cover, pushed to every ecosystem.
type State struct {
	Position  int                 `json:"position"`
	Online    bool                `json:"online"`
	WorkState string              `json:"work_state,omitempty"`
	Status    []cloud.StatusEntry `json:"status,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Adapter exposes covers to one ecosystem.
type Adapter interface {
	// Name returns the ecosystem name, e.g. "google".
	Name() string

	// Build derives the ecosystem descriptor for a cloud device.
	Build(d cloud.Device) Descriptor

	// Register announces a device to the ecosystem.
	Register(ctx context.Context, d Descriptor) error

	// PushState reports the device's current state to the ecosystem.
	PushState(ctx context.Context, d Descriptor, s State) error
}

// Publisher delivers adapter documents. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging interface used by adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options are shared by every adapter constructor.
type Options struct {
	// Publisher receives registration and state documents. Optional; without
	// one adapters only log.
	Publisher Publisher
	Logger    Logger

	// Manufacturer is reported where an ecosystem asks for one.
	Manufacturer string

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// DefaultManufacturer is used when Options.Manufacturer is empty.
const DefaultManufacturer = "Tuya"

var constructors = map[string]func(Options) Adapter{
	Alexa:       func(o Options) Adapter { return NewAlexa(o) },
	Google:      func(o Options) Adapter { return NewGoogle(o) },
	HomeKit:     func(o Options) Adapter { return NewHomeKit(o) },
	SmartThings: func(o Options) Adapter { return NewSmartThings(o) },
	Matter:      func(o Options) Adapter { return NewMatter(o) },
}

// New returns adapters for the named ecosystems, in the order given.
// An empty list selects every ecosystem.
//
// Returns:
//   - []Adapter: One adapter per name
//   - error: ErrUnknownPlatform for an unsupported name
func New(names []string, opts Options) ([]Adapter, error) {
	if len(names) == 0 {
		names = Names()
	}
	adapters := make([]Adapter, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		ctor, ok := constructors[name]
		if !ok {
			known := make([]string, 0, len(constructors))
			for k := range constructors {
				known = append(known, k)
			}
			sort.Strings(known)
			return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownPlatform, name, known)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		adapters = append(adapters, ctor(opts))
	}
	return adapters, nil
}
