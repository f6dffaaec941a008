package platform

import (
	"strings"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/cloud"
)

// idInfix separates the ecosystem prefix from the cloud device id.
const idInfix = "_tuya_"

// UnknownRoom is reported when a device name mentions no known room.
const UnknownRoom = "Unknown"

// Capability names.
const (
	CapPositionControl   = "position_control"
	CapOpenClose         = "open_close"
	CapPercentageControl = "percentage_control"
	CapPositionReporting = "position_reporting"
	CapWorkState         = "work_state"
)

// roomKeywords are matched in order; the first hit wins.
var roomKeywords = []string{
	"Living", "Bedroom", "Kitchen", "Bathroom", "Office", "Dining",
	"Guest", "Kids", "Master", "Nursery", "Study", "Hall",
	"Garage", "Basement", "Attic", "Patio",
}

// DeviceID returns the ecosystem id of a cloud device: <platform>_tuya_<cloudID>.
func DeviceID(platform, cloudID string) string {
	return platform + idInfix + cloudID
}

// CloudID reverses DeviceID. The bool is false when id does not belong to
// platform.
func CloudID(platform, id string) (string, bool) {
	cloudID, ok := strings.CutPrefix(id, platform+idInfix)
	if !ok || cloudID == "" {
		return "", false
	}
	return cloudID, true
}

// RoomName returns the first room keyword contained in name, matched
// case-insensitively, or UnknownRoom.
func RoomName(name string) string {
	lower := strings.ToLower(name)
	for _, kw := range roomKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw
		}
	}
	return UnknownRoom
}

// Capabilities derives capability names from a device's status codes.
// position_control is always present.
func Capabilities(status []cloud.StatusEntry) []string {
	caps := []string{CapPositionControl}
	for _, rule := range []struct{ code, capability string }{
		{cloud.CodeControl, CapOpenClose},
		{cloud.CodePercentControl, CapPercentageControl},
		{cloud.CodePosition, CapPositionReporting},
		{cloud.CodeWorkState, CapWorkState},
	} {
		if cloud.HasCode(status, rule.code) {
			caps = append(caps, rule.capability)
		}
	}
	return caps
}

// HasCapability reports whether caps contains c.
func HasCapability(caps []string, c string) bool {
	for _, x := range caps {
		if x == c {
			return true
		}
	}
	return false
}

// baseDescriptor fills the ecosystem-independent descriptor fields.
func baseDescriptor(platform string, d cloud.Device) Descriptor {
	return Descriptor{
		CloudDeviceID:    d.ID,
		PlatformDeviceID: DeviceID(platform, d.ID),
		Platform:         platform,
		DisplayName:      d.Name,
		RoomName:         RoomName(d.Name),
		Capabilities:     Capabilities(d.Status),
	}
}
