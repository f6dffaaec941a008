package mqtt

import "errors"

// Sentinels returned by the broker client. Wrapped errors keep the broker's
// cause after the sentinel, so callers match with errors.Is.
var (
	// ErrNotConnected means the broker link is down; cover state and
	// commands are not relayed until the client reconnects.
	ErrNotConnected = errors.New("mqtt: broker not connected")

	ErrConnectionFailed = errors.New("mqtt: broker connect failed")

	// ErrPublishFailed also covers payloads above maxPayloadSize.
	ErrPublishFailed = errors.New("mqtt: cover publish failed")

	// ErrSubscribeFailed also covers a nil message handler.
	ErrSubscribeFailed   = errors.New("mqtt: command subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: command unsubscribe failed")

	ErrInvalidQoS   = errors.New("mqtt: qos must be 0, 1 or 2")
	ErrInvalidTopic = errors.New("mqtt: empty topic")

	// ErrTimeout means the broker did not acknowledge within the deadline.
	ErrTimeout = errors.New("mqtt: broker ack timed out")
)
