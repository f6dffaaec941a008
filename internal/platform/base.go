package platform

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/infrastructure/mqtt"
)

// Delivery settings for adapter documents.
const (
	publishQoS = 1
)

// Motion is the direction a cover is moving in.
type Motion int

const (
	MotionStopped Motion = iota
	MotionOpening
	MotionClosing
)

// work_state values reported while the motor runs.
const (
	workStateOpening = "opening"
	workStateClosing = "closing"
)

// MotionOf maps a work_state value to a Motion.
func MotionOf(workState string) Motion {
	switch workState {
	case workStateOpening:
		return MotionOpening
	case workStateClosing:
		return MotionClosing
	default:
		return MotionStopped
	}
}

// Registration is the document published when a device is registered.
type Registration struct {
	Descriptor
	RegisteredAt time.Time `json:"registered_at"`
}

// StateDocument is the document published on every state push.
type StateDocument struct {
	PlatformDeviceID string    `json:"platform_device_id"`
	CloudDeviceID    string    `json:"cloud_device_id"`
	State            any       `json:"state"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// base holds what every adapter shares: identity, publisher and logger.
type base struct {
	name         string
	pub          Publisher
	logger       Logger
	manufacturer string
	now          func() time.Time
	topics       mqtt.Topics
}

func newBase(name string, opts Options) base {
	b := base{
		name:         name,
		pub:          opts.Publisher,
		logger:       opts.Logger,
		manufacturer: opts.Manufacturer,
		now:          opts.Clock,
	}
	if b.logger == nil {
		b.logger = noopLogger{}
	}
	if b.manufacturer == "" {
		b.manufacturer = DefaultManufacturer
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// Name returns the ecosystem name.
func (b *base) Name() string {
	return b.name
}

// register logs the registration and publishes it retained.
func (b *base) register(d Descriptor) error {
	b.logger.Info("registering device",
		"platform", b.name,
		"platform_device_id", d.PlatformDeviceID,
		"room", d.RoomName,
		"capabilities", d.Capabilities,
	)
	err := b.publish(b.topics.PlatformRegister(b.name, d.PlatformDeviceID),
		Registration{Descriptor: d, RegisteredAt: b.now().UTC()})
	observePublish(b.name, "register", err)
	return err
}

// pushState publishes an ecosystem state document retained.
func (b *base) pushState(d Descriptor, s State, state any) error {
	b.logger.Debug("pushing state",
		"platform", b.name,
		"platform_device_id", d.PlatformDeviceID,
		"position", s.Position,
		"online", s.Online,
	)
	at := s.UpdatedAt
	if at.IsZero() {
		at = b.now()
	}
	err := b.publish(b.topics.PlatformState(b.name, d.PlatformDeviceID), StateDocument{
		PlatformDeviceID: d.PlatformDeviceID,
		CloudDeviceID:    d.CloudDeviceID,
		State:            state,
		UpdatedAt:        at.UTC(),
	})
	observePublish(b.name, "state", err)
	return err
}

func (b *base) publish(topic string, doc any) error {
	if b.pub == nil {
		return nil
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrPublishFailed, topic, err)
	}
	if err := b.pub.Publish(topic, payload, publishQoS, true); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}
