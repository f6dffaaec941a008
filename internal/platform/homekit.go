package platform

import (
	"context"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/cloud"
)

// HomeKit service and characteristic names.
const (
	HomeKitServiceInfo           = "AccessoryInformation"
	HomeKitServiceWindowCovering = "WindowCovering"

	HomeKitCurrentPosition = "CurrentPosition"
	HomeKitTargetPosition  = "TargetPosition"
	HomeKitPositionState   = "PositionState"
	HomeKitHoldPosition    = "HoldPosition"
)

// PositionState values of the WindowCovering service.
const (
	HomeKitPositionDecreasing = 0
	HomeKitPositionIncreasing = 1
	HomeKitPositionStopped    = 2
)

// HomeKitAccessory is the bridged accessory of one cover.
type HomeKitAccessory struct {
	AID      string           `json:"aid"`
	Category string           `json:"category"`
	Services []HomeKitService `json:"services"`
}

// HomeKitService is one service with its characteristics.
type HomeKitService struct {
	Type            string         `json:"type"`
	Characteristics map[string]any `json:"characteristics"`
}

// HomeKitState is the WindowCovering characteristic update.
type HomeKitState struct {
	CurrentPosition int  `json:"CurrentPosition"`
	TargetPosition  int  `json:"TargetPosition"`
	PositionState   int  `json:"PositionState"`
	StatusFault     bool `json:"StatusFault"`
}

// HomeKitAdapter exposes covers as HomeKit window coverings.
type HomeKitAdapter struct {
	base
	firmware string
}

// NewHomeKit returns the HomeKit adapter.
func NewHomeKit(opts Options) *HomeKitAdapter {
	return &HomeKitAdapter{base: newBase(HomeKit, opts), firmware: "1.0.0"}
}

// Build returns the descriptor with a HomeKitAccessory payload.
func (h *HomeKitAdapter) Build(d cloud.Device) Descriptor {
	desc := baseDescriptor(HomeKit, d)
	pos, _ := cloud.PositionFromStatus(d.Status)
	model := d.Model
	if model == "" {
		model = d.ProductID
	}
	desc.Payload = HomeKitAccessory{
		AID:      desc.PlatformDeviceID,
		Category: "WINDOW_COVERING",
		Services: []HomeKitService{
			{
				Type: HomeKitServiceInfo,
				Characteristics: map[string]any{
					"Manufacturer":     h.manufacturer,
					"Model":            model,
					"Name":             d.Name,
					"SerialNumber":     d.ID,
					"FirmwareRevision": h.firmware,
				},
			},
			{
				Type: HomeKitServiceWindowCovering,
				Characteristics: map[string]any{
					HomeKitCurrentPosition: pos,
					HomeKitTargetPosition:  pos,
					HomeKitPositionState:   HomeKitPositionStopped,
					HomeKitHoldPosition:    false,
				},
			},
		},
	}
	return desc
}

// Register publishes the accessory document.
func (h *HomeKitAdapter) Register(_ context.Context, d Descriptor) error {
	return h.register(d)
}

// PushState publishes the WindowCovering characteristics.
func (h *HomeKitAdapter) PushState(_ context.Context, d Descriptor, s State) error {
	return h.pushState(d, s, HomeKitStateOf(s))
}

// HomeKitStateOf converts a State. PositionState follows work_state:
// closing is decreasing, opening is increasing, anything else is stopped.
func HomeKitStateOf(s State) HomeKitState {
	ps := HomeKitPositionStopped
	switch MotionOf(s.WorkState) {
	case MotionClosing:
		ps = HomeKitPositionDecreasing
	case MotionOpening:
		ps = HomeKitPositionIncreasing
	}
	return HomeKitState{
		CurrentPosition: s.Position,
		TargetPosition:  s.Position,
		PositionState:   ps,
		StatusFault:     !s.Online,
	}
}
