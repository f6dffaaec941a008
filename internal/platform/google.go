package platform

import (
	"context"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/cloud"
)

// Google Smart Home vocabulary.
const (
	GoogleTypeBlinds     = "action.devices.types.BLINDS"
	GoogleTraitOpenClose = "action.devices.traits.OpenClose"
	GoogleTraitStartStop = "action.devices.traits.StartStop"
)

// GoogleDevice is the SYNC response entry of one cover.
type GoogleDevice struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	Traits          []string          `json:"traits"`
	Name            GoogleName        `json:"name"`
	WillReportState bool              `json:"willReportState"`
	RoomHint        string            `json:"roomHint"`
	Attributes      GoogleAttributes  `json:"attributes"`
	DeviceInfo      GoogleDeviceInfo  `json:"deviceInfo"`
	CustomData      map[string]string `json:"customData,omitempty"`
}

// GoogleName holds the display names of a device.
type GoogleName struct {
	DefaultNames []string `json:"defaultNames,omitempty"`
	Name         string   `json:"name"`
	Nicknames    []string `json:"nicknames,omitempty"`
}

// GoogleAttributes configures the OpenClose and StartStop traits.
type GoogleAttributes struct {
	DiscreteOnlyOpenClose bool `json:"discreteOnlyOpenClose"`
	QueryOnlyOpenClose    bool `json:"queryOnlyOpenClose"`
	Pausable              bool `json:"pausable"`
}

// GoogleDeviceInfo identifies the hardware.
type GoogleDeviceInfo struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model,omitempty"`
}

// GoogleState is the QUERY / Report State document.
type GoogleState struct {
	Online      bool `json:"online"`
	OpenPercent int  `json:"openPercent"`
	IsRunning   bool `json:"isRunning"`
}

// GoogleAdapter exposes covers as Google blinds.
type GoogleAdapter struct {
	base
}

// NewGoogle returns the Google adapter.
func NewGoogle(opts Options) *GoogleAdapter {
	return &GoogleAdapter{base: newBase(Google, opts)}
}

// Build returns the descriptor with a GoogleDevice payload.
func (g *GoogleAdapter) Build(d cloud.Device) Descriptor {
	desc := baseDescriptor(Google, d)
	name := GoogleName{Name: d.Name}
	if d.ProductName != "" {
		name.DefaultNames = []string{d.ProductName}
	}
	desc.Payload = GoogleDevice{
		ID:              desc.PlatformDeviceID,
		Type:            GoogleTypeBlinds,
		Traits:          []string{GoogleTraitOpenClose, GoogleTraitStartStop},
		Name:            name,
		WillReportState: true,
		RoomHint:        desc.RoomName,
		Attributes: GoogleAttributes{
			// Without percent_control only full open/close can be sent.
			DiscreteOnlyOpenClose: !HasCapability(desc.Capabilities, CapPercentageControl),
			Pausable:              HasCapability(desc.Capabilities, CapOpenClose),
		},
		DeviceInfo: GoogleDeviceInfo{Manufacturer: g.manufacturer, Model: d.Model},
		CustomData: map[string]string{"cloudDeviceId": d.ID},
	}
	return desc
}

// Register publishes the SYNC document.
func (g *GoogleAdapter) Register(_ context.Context, d Descriptor) error {
	return g.register(d)
}

// PushState publishes openPercent, isRunning and online.
func (g *GoogleAdapter) PushState(_ context.Context, d Descriptor, s State) error {
	return g.pushState(d, s, GoogleStateOf(s))
}

// GoogleStateOf converts a State to the Google state document.
func GoogleStateOf(s State) GoogleState {
	return GoogleState{
		Online:      s.Online,
		OpenPercent: s.Position,
		IsRunning:   MotionOf(s.WorkState) != MotionStopped,
	}
}
