package platform

import (
	"context"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/cloud"
)

// SmartThings capability ids and device type.
const (
	SmartThingsWindowShade = "windowShade"
	SmartThingsSwitchLevel = "switchLevel"
	SmartThingsRefresh     = "refresh"
	SmartThingsOCFBlind    = "oic.d.blind"
)

// windowShade attribute values.
const (
	ShadeOpen          = "open"
	ShadeClosed        = "closed"
	ShadePartiallyOpen = "partially open"
	ShadeOpening       = "opening"
	ShadeClosing       = "closing"
)

// SmartThingsDevice is the device profile of one cover.
type SmartThingsDevice struct {
	ExternalDeviceID  string                  `json:"externalDeviceId"`
	FriendlyName      string                  `json:"friendlyName"`
	DeviceHandlerType string                  `json:"deviceHandlerType"`
	RoomName          string                  `json:"roomName,omitempty"`
	ManufacturerInfo  SmartThingsManufacturer `json:"manufacturerInfo"`
	Components        []SmartThingsComponent  `json:"components"`
}

// SmartThingsManufacturer carries OCF identity.
type SmartThingsManufacturer struct {
	ManufacturerName string `json:"manufacturerName"`
	ModelName        string `json:"modelName,omitempty"`
	OCFDeviceType    string `json:"ocfDeviceType"`
}

// SmartThingsComponent lists the capabilities of one component.
type SmartThingsComponent struct {
	ID           string   `json:"id"`
	Capabilities []string `json:"capabilities"`
}

// SmartThingsEvent is one attribute event in a state callback.
type SmartThingsEvent struct {
	Component  string `json:"component"`
	Capability string `json:"capability"`
	Attribute  string `json:"attribute"`
	Value      any    `json:"value"`
}

// SmartThingsAdapter exposes covers as SmartThings window shades.
type SmartThingsAdapter struct {
	base
}

// NewSmartThings returns the SmartThings adapter.
func NewSmartThings(opts Options) *SmartThingsAdapter {
	return &SmartThingsAdapter{base: newBase(SmartThings, opts)}
}

// Build returns the descriptor with a SmartThingsDevice payload.
func (st *SmartThingsAdapter) Build(d cloud.Device) Descriptor {
	desc := baseDescriptor(SmartThings, d)
	desc.Payload = SmartThingsDevice{
		ExternalDeviceID:  desc.PlatformDeviceID,
		FriendlyName:      d.Name,
		DeviceHandlerType: "c2c-shade",
		RoomName:          desc.RoomName,
		ManufacturerInfo: SmartThingsManufacturer{
			ManufacturerName: st.manufacturer,
			ModelName:        d.Model,
			OCFDeviceType:    SmartThingsOCFBlind,
		},
		Components: []SmartThingsComponent{{
			ID:           "main",
			Capabilities: []string{SmartThingsWindowShade, SmartThingsSwitchLevel, SmartThingsRefresh},
		}},
	}
	return desc
}

// Register publishes the device profile.
func (st *SmartThingsAdapter) Register(_ context.Context, d Descriptor) error {
	return st.register(d)
}

// PushState publishes windowShade and level events.
func (st *SmartThingsAdapter) PushState(_ context.Context, d Descriptor, s State) error {
	return st.pushState(d, s, SmartThingsEvents(s))
}

// ShadeState returns the windowShade value for a state. Motion takes
// precedence over position.
func ShadeState(s State) string {
	switch MotionOf(s.WorkState) {
	case MotionOpening:
		return ShadeOpening
	case MotionClosing:
		return ShadeClosing
	}
	switch {
	case s.Position <= 0:
		return ShadeClosed
	case s.Position >= 100:
		return ShadeOpen
	default:
		return ShadePartiallyOpen
	}
}

// SmartThingsEvents converts a state to attribute events.
func SmartThingsEvents(s State) []SmartThingsEvent {
	return []SmartThingsEvent{
		{Component: "main", Capability: SmartThingsWindowShade, Attribute: "windowShade", Value: ShadeState(s)},
		{Component: "main", Capability: SmartThingsSwitchLevel, Attribute: "level", Value: s.Position},
	}
}
