package platform

import (
	"context"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/cloud"
)

// Matter identifiers for a window covering endpoint.
const (
	MatterDeviceTypeWindowCovering uint16 = 0x0202
	MatterClusterWindowCovering    uint16 = 0x0102
)

// Window Covering cluster attribute ids.
const (
	MatterAttrType                             uint16 = 0x0000
	MatterAttrConfigStatus                     uint16 = 0x0007
	MatterAttrOperationalStatus                uint16 = 0x000A
	MatterAttrTargetPositionLiftPercent100ths  uint16 = 0x000B
	MatterAttrEndProductType                   uint16 = 0x000D
	MatterAttrCurrentPositionLiftPercent100ths uint16 = 0x000E
)

// Window Covering cluster command ids.
const (
	MatterCmdUpOrOpen           uint8 = 0x00
	MatterCmdDownOrClose        uint8 = 0x01
	MatterCmdStopMotion         uint8 = 0x02
	MatterCmdGoToLiftPercentage uint8 = 0x05
)

// Attribute values reported for a roller shade.
const (
	matterTypeRollershade       = 0x00
	matterEndProductRollerShade = 0x00

	matterConfigOperational       = 0x01
	matterConfigLiftPositionAware = 0x08

	matterMotionStopped = 0x00
	matterMotionOpening = 0x01
	matterMotionClosing = 0x02
)

// MatterEndpoint is the bridged endpoint of one cover.
type MatterEndpoint struct {
	NodeLabel  string          `json:"nodeLabel"`
	VendorName string          `json:"vendorName"`
	DeviceType uint16          `json:"deviceType"`
	Clusters   []MatterCluster `json:"clusters"`
}

// MatterCluster is one server cluster on the endpoint.
type MatterCluster struct {
	ID         uint16            `json:"id"`
	Name       string            `json:"name"`
	Attributes []MatterAttribute `json:"attributes"`
	Commands   []MatterCommand   `json:"commands"`
}

// MatterAttribute is one attribute and its current value.
type MatterAttribute struct {
	ID    uint16 `json:"id"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// MatterCommand is one accepted command.
type MatterCommand struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
}

// MatterState is the attribute report for the Window Covering cluster.
type MatterState struct {
	CurrentPositionLiftPercent100ths int  `json:"currentPositionLiftPercent100ths"`
	TargetPositionLiftPercent100ths  int  `json:"targetPositionLiftPercent100ths"`
	OperationalStatus                int  `json:"operationalStatus"`
	Reachable                        bool `json:"reachable"`
}

// MatterAdapter exposes covers as Matter window coverings.
type MatterAdapter struct {
	base
}

// NewMatter returns the Matter adapter.
func NewMatter(opts Options) *MatterAdapter {
	return &MatterAdapter{base: newBase(Matter, opts)}
}

// Build returns the descriptor with a MatterEndpoint payload.
func (m *MatterAdapter) Build(d cloud.Device) Descriptor {
	desc := baseDescriptor(Matter, d)
	pos, _ := cloud.PositionFromStatus(d.Status)
	lift := LiftPercent100ths(pos)

	config := matterConfigOperational
	if HasCapability(desc.Capabilities, CapPercentageControl) {
		config |= matterConfigLiftPositionAware
	}

	desc.Payload = MatterEndpoint{
		NodeLabel:  d.Name,
		VendorName: m.manufacturer,
		DeviceType: MatterDeviceTypeWindowCovering,
		Clusters: []MatterCluster{{
			ID:   MatterClusterWindowCovering,
			Name: "WindowCovering",
			Attributes: []MatterAttribute{
				{ID: MatterAttrType, Name: "Type", Value: matterTypeRollershade},
				{ID: MatterAttrConfigStatus, Name: "ConfigStatus", Value: config},
				{ID: MatterAttrOperationalStatus, Name: "OperationalStatus", Value: matterMotionStopped},
				{ID: MatterAttrEndProductType, Name: "EndProductType", Value: matterEndProductRollerShade},
				{ID: MatterAttrCurrentPositionLiftPercent100ths, Name: "CurrentPositionLiftPercent100ths", Value: lift},
				{ID: MatterAttrTargetPositionLiftPercent100ths, Name: "TargetPositionLiftPercent100ths", Value: lift},
			},
			Commands: []MatterCommand{
				{ID: MatterCmdUpOrOpen, Name: "UpOrOpen"},
				{ID: MatterCmdDownOrClose, Name: "DownOrClose"},
				{ID: MatterCmdStopMotion, Name: "StopMotion"},
				{ID: MatterCmdGoToLiftPercentage, Name: "GoToLiftPercentage"},
			},
		}},
	}
	return desc
}

// Register publishes the endpoint document.
func (m *MatterAdapter) Register(_ context.Context, d Descriptor) error {
	return m.register(d)
}

// PushState publishes the lift position and operational status.
func (m *MatterAdapter) PushState(_ context.Context, d Descriptor, s State) error {
	return m.pushState(d, s, MatterStateOf(s))
}

// LiftPercent100ths converts an open percentage to Matter's closed
// fraction in hundredths of a percent: 100% open is 0, closed is 10000.
func LiftPercent100ths(openPercent int) int {
	switch {
	case openPercent < 0:
		openPercent = 0
	case openPercent > 100:
		openPercent = 100
	}
	return (100 - openPercent) * 100
}

// OpenPercentFromLift reverses LiftPercent100ths, rounding to the nearest percent.
func OpenPercentFromLift(percent100ths int) int {
	closed := (percent100ths + 50) / 100
	switch {
	case closed < 0:
		closed = 0
	case closed > 100:
		closed = 100
	}
	return 100 - closed
}

// MatterStateOf converts a State. OperationalStatus carries the same
// motion in the global (bits 0-1) and lift (bits 2-3) fields.
func MatterStateOf(s State) MatterState {
	motion := matterMotionStopped
	switch MotionOf(s.WorkState) {
	case MotionOpening:
		motion = matterMotionOpening
	case MotionClosing:
		motion = matterMotionClosing
	}
	lift := LiftPercent100ths(s.Position)
	return MatterState{
		CurrentPositionLiftPercent100ths: lift,
		TargetPositionLiftPercent100ths:  lift,
		OperationalStatus:                motion | motion<<2,
		Reachable:                        s.Online,
	}
}
