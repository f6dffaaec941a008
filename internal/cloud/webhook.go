package cloud

import (
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/eventbus"
)

// WebhookPayload is a push notification from the device cloud.
// Status and Online are optional; Online is a pointer so that an explicit
// false can be told apart from an absent field.
type WebhookPayload struct {
	DevID  string        `json:"devId"`
	Status []StatusEntry `json:"status,omitempty"`
	Online *bool         `json:"online,omitempty"`
}

// EventKind distinguishes status and connectivity events.
type EventKind string

const (
	EventStatus EventKind = "status"
	EventOnline EventKind = "online"
)

// Event is published on the client's bus for each webhook-derived change.
type Event struct {
	Kind       EventKind
	DeviceID   string
	Status     []StatusEntry
	Online     bool
	ReceivedAt time.Time
}

// IngestWebhook converts a webhook payload into events and publishes them.
// A payload may yield a status event, an online event, both, or neither.
//
// Returns:
//   - []Event: The events derived from the payload
//   - error: ErrInvalidWebhook if DevID is empty
func (c *Client) IngestWebhook(p WebhookPayload) ([]Event, error) {
	if p.DevID == "" {
		return nil, fmt.Errorf("%w: missing devId", ErrInvalidWebhook)
	}

	now := c.tr.now()
	var events []Event
	if p.Status != nil {
		events = append(events, Event{Kind: EventStatus, DeviceID: p.DevID, Status: p.Status, ReceivedAt: now})
	}
	if p.Online != nil {
		events = append(events, Event{Kind: EventOnline, DeviceID: p.DevID, Online: *p.Online, ReceivedAt: now})
	}

	for _, ev := range events {
		webhookEvents.WithLabelValues(string(ev.Kind)).Inc()
		if c.bus != nil {
			c.bus.Publish(ev)
		}
	}
	c.logger.Debug("webhook ingested", "device_id", p.DevID, "events", len(events))
	return events, nil
}

// Events returns the client's event bus. It may be nil.
func (c *Client) Events() *eventbus.Bus[Event] {
	return c.bus
}
