package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Device is one device as listed by the cloud. The bridge never mutates it.
type Device struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	LocalKey    string        `json:"local_key,omitempty"`
	Category    string        `json:"category"`
	ProductID   string        `json:"product_id"`
	ProductName string        `json:"product_name,omitempty"`
	Model       string        `json:"model,omitempty"`
	UUID        string        `json:"uuid"`
	Status      []StatusEntry `json:"status"`
	Online      bool          `json:"online"`
	IP          string        `json:"ip,omitempty"`
	TimeZone    string        `json:"time_zone,omitempty"`
	ActiveTime  int64         `json:"active_time,omitempty"`
	UpdateTime  int64         `json:"update_time,omitempty"`
	OwnerID     string        `json:"owner_id,omitempty"`
	UID         string        `json:"uid,omitempty"`
	Sub         bool          `json:"sub,omitempty"`
}

// StatusEntry is a single data point reported by a device.
type StatusEntry struct {
	Code  string `json:"code"`
	Value any    `json:"value"`
}

// HasCode reports whether the device's status list contains code.
func (d Device) HasCode(code string) bool {
	return HasCode(d.Status, code)
}

// HasCode reports whether status contains an entry for code.
func HasCode(status []StatusEntry, code string) bool {
	_, ok := StatusValue(status, code)
	return ok
}

// StatusValue returns the value of the first entry with code.
func StatusValue(status []StatusEntry, code string) (any, bool) {
	for _, s := range status {
		if s.Code == code {
			return s.Value, true
		}
	}
	return nil, false
}

// PositionFromStatus reads percent_control, falling back to position.
// The value is clamped to 0..100.
func PositionFromStatus(status []StatusEntry) (int, bool) {
	for _, code := range []string{CodePercentControl, CodePosition} {
		v, ok := StatusValue(status, code)
		if !ok {
			continue
		}
		if n, ok := toInt(v); ok {
			return clampPercent(n), true
		}
	}
	return 0, false
}

// toInt converts the numeric shapes JSON decoding produces.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

func clampPercent(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	default:
		return n
	}
}

// Function is a controllable data point from the functions endpoint.
type Function struct {
	Code   string `json:"code"`
	Type   string `json:"type"`
	Values string `json:"values"`
	Name   string `json:"name,omitempty"`
	Desc   string `json:"desc,omitempty"`
}

// Functions is the result of GetDeviceFunctions.
type Functions struct {
	Category  string     `json:"category"`
	Functions []Function `json:"functions"`
}

// Specifications is the result of GetDeviceSpecifications.
type Specifications struct {
	Category  string     `json:"category"`
	Functions []Function `json:"functions"`
	Status    []Function `json:"status"`
}

// deviceList accepts both list shapes the cloud returns: a bare array or an
// object carrying the array under "list" or "devices".
type deviceList []Device

func (l *deviceList) UnmarshalJSON(b []byte) error {
	var arr []Device
	if err := json.Unmarshal(b, &arr); err == nil {
		*l = arr
		return nil
	}
	var obj struct {
		List    []Device `json:"list"`
		Devices []Device `json:"devices"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("decoding device list: %w", err)
	}
	if obj.List != nil {
		*l = obj.List
	} else {
		*l = obj.Devices
	}
	return nil
}

// ListDevices returns every device visible to the project.
// On failure it logs and returns an empty, non-nil slice.
func (c *Client) ListDevices(ctx context.Context) []Device {
	var list deviceList
	if err := c.request(ctx, http.MethodGet, "/v1.0/devices", nil, &list); err != nil {
		c.logger.Warn("listing devices failed", "error", err)
		return []Device{}
	}
	if list == nil {
		return []Device{}
	}
	return []Device(list)
}

// GetDeviceStatus returns the device's current data points, or nil on failure.
func (c *Client) GetDeviceStatus(ctx context.Context, deviceID string) []StatusEntry {
	var status []StatusEntry
	if err := c.request(ctx, http.MethodGet, devicePath(deviceID)+"/status", nil, &status); err != nil {
		c.logger.Warn("reading device status failed", "device_id", deviceID, "error", err)
		return nil
	}
	return status
}

// GetDeviceInfo returns the device record, or nil on failure.
func (c *Client) GetDeviceInfo(ctx context.Context, deviceID string) *Device {
	var d Device
	if err := c.request(ctx, http.MethodGet, devicePath(deviceID), nil, &d); err != nil {
		c.logger.Warn("reading device info failed", "device_id", deviceID, "error", err)
		return nil
	}
	return &d
}

// GetDeviceFunctions returns the device's command set, or nil on failure.
func (c *Client) GetDeviceFunctions(ctx context.Context, deviceID string) *Functions {
	var f Functions
	if err := c.request(ctx, http.MethodGet, devicePath(deviceID)+"/functions", nil, &f); err != nil {
		c.logger.Warn("reading device functions failed", "device_id", deviceID, "error", err)
		return nil
	}
	return &f
}

// GetDeviceSpecifications returns the device's instruction set, or nil on failure.
func (c *Client) GetDeviceSpecifications(ctx context.Context, deviceID string) *Specifications {
	var s Specifications
	if err := c.request(ctx, http.MethodGet, devicePath(deviceID)+"/specifications", nil, &s); err != nil {
		c.logger.Warn("reading device specifications failed", "device_id", deviceID, "error", err)
		return nil
	}
	return &s
}

// GetStatistics returns the device's statistics between from and to.
// The result is passed through undecoded; nil on failure.
func (c *Client) GetStatistics(ctx context.Context, deviceID string, from, to time.Time) json.RawMessage {
	q := url.Values{}
	q.Set("start_time", strconv.FormatInt(from.UnixMilli(), 10))
	q.Set("end_time", strconv.FormatInt(to.UnixMilli(), 10))

	var raw json.RawMessage
	path := devicePath(deviceID) + "/statistics?" + q.Encode()
	if err := c.request(ctx, http.MethodGet, path, nil, &raw); err != nil {
		c.logger.Warn("reading device statistics failed", "device_id", deviceID, "error", err)
		return nil
	}
	return raw
}

// GetPosition returns the open percentage from percent_control, else position.
// The bool is false when neither is reported or the status read failed.
func (c *Client) GetPosition(ctx context.Context, deviceID string) (int, bool) {
	return PositionFromStatus(c.GetDeviceStatus(ctx, deviceID))
}

// IsOnline re-lists devices and reports the online flag of deviceID.
// Unknown devices and failed listings report false.
func (c *Client) IsOnline(ctx context.Context, deviceID string) bool {
	for _, d := range c.ListDevices(ctx) {
		if d.ID == deviceID {
			return d.Online
		}
	}
	return false
}

func devicePath(deviceID string) string {
	return "/v1.0/devices/" + url.PathEscape(deviceID)
}
