package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementCoverState   = "cover_state"
	MeasurementCoverCommand = "cover_command"
)

// WriteCoverState records the position and connectivity of one cover.
//
// Example:
//
//	client.WriteCoverState("bf3a2c", 42, true, time.Now())
func (c *Client) WriteCoverState(cloudDeviceID string, position int, online bool, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementCoverState,
		map[string]string{"cloud_device_id": cloudDeviceID},
		map[string]any{"position": position, "online": online},
		at,
	))
}

// WriteCommand records the outcome of one ecosystem command.
// action is the normalised action (open, close, stop, setPosition).
func (c *Client) WriteCommand(platform, action string, success bool, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementCoverCommand,
		map[string]string{"platform": platform, "action": action},
		map[string]any{"success": success},
		at,
	))
}
