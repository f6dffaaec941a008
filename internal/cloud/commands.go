package cloud

import (
	"context"
	"net/http"
)

// Status codes understood by window covering devices.
const (
	CodeControl        = "control"
	CodePercentControl = "percent_control"
	CodePosition       = "position"
	CodeWorkState      = "work_state"
)

// Values of the control code.
const (
	ControlOpen  = "open"
	ControlClose = "close"
	ControlStop  = "stop"
)

// Command is one data point to set on a device.
type Command struct {
	Code  string `json:"code"`
	Value any    `json:"value"`
}

type commandBody struct {
	Commands []Command `json:"commands"`
}

// SendCommand issues commands to a device and reports whether the cloud
// accepted them. Failures are logged, never returned.
func (c *Client) SendCommand(ctx context.Context, deviceID string, commands []Command) bool {
	err := c.request(ctx, http.MethodPost, devicePath(deviceID)+"/commands", commandBody{Commands: commands}, nil)
	if err != nil {
		c.logger.Warn("device command failed", "device_id", deviceID, "commands", commands, "error", err)
		return false
	}
	c.logger.Debug("device command accepted", "device_id", deviceID, "commands", commands)
	return true
}

// Open sends control=open.
func (c *Client) Open(ctx context.Context, deviceID string) bool {
	return c.SendCommand(ctx, deviceID, []Command{{Code: CodeControl, Value: ControlOpen}})
}

// Close sends control=close.
func (c *Client) Close(ctx context.Context, deviceID string) bool {
	return c.SendCommand(ctx, deviceID, []Command{{Code: CodeControl, Value: ControlClose}})
}

// Stop sends control=stop.
func (c *Client) Stop(ctx context.Context, deviceID string) bool {
	return c.SendCommand(ctx, deviceID, []Command{{Code: CodeControl, Value: ControlStop}})
}

// SetPosition sends percent_control with percent clamped to 0..100.
func (c *Client) SetPosition(ctx context.Context, deviceID string, percent int) bool {
	return c.SendCommand(ctx, deviceID, []Command{{Code: CodePercentControl, Value: clampPercent(percent)}})
}
