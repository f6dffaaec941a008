package bridge

import (
	"errors"
	"time"
)

// CommandMessage is sent by an ecosystem connector to run a command.
// Topic: cloudbridge/{platform}/command/{platform_device_id}
type CommandMessage struct {
	// ID correlates the command with its acknowledgement.
	ID string `json:"id"`

	// Timestamp is when the connector issued the command.
	Timestamp time.Time `json:"timestamp,omitempty"`

	// Command is an ecosystem command name, e.g. "UpOrOpen" or "setPosition".
	Command string `json:"command"`

	// Parameters carries command values, e.g. {"position": 42}.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source names the connector, e.g. "matter-controller".
	Source string `json:"source,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
)

// AckMessage acknowledges a CommandMessage.
// Topic: cloudbridge/{platform}/ack/{platform_device_id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Platform  string    `json:"platform"`
	Status    AckStatus `json:"status"`
	Action    string    `json:"action,omitempty"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError describes a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for failed commands.
const (
	ErrCodeDeviceNotFound  = "DEVICE_NOT_FOUND"
	ErrCodeInvalidCommand  = "INVALID_COMMAND"
	ErrCodeInvalidPayload  = "INVALID_PAYLOAD"
	ErrCodeCommandRejected = "COMMAND_REJECTED"
	ErrCodeBridgeError     = "BRIDGE_ERROR"
)

// HealthStatus is the operational status of the bridge.
type HealthStatus string

const (
	HealthStarting HealthStatus = "starting"
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published retained on cloudbridge/health.
type HealthMessage struct {
	Bridge         string       `json:"bridge"`
	Timestamp      time.Time    `json:"timestamp"`
	Status         HealthStatus `json:"status"`
	Version        string       `json:"version"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	DevicesManaged int          `json:"devices_managed"`
	Platforms      []string     `json:"platforms,omitempty"`
	Reason         string       `json:"reason,omitempty"`
}

// newAck builds an acknowledgement for res.
func newAck(cmd CommandMessage, platformName, deviceID string, res CommandResult, at time.Time) AckMessage {
	ack := AckMessage{
		CommandID: cmd.ID,
		Timestamp: at.UTC(),
		DeviceID:  deviceID,
		Platform:  platformName,
		Status:    AckAccepted,
		Action:    string(res.Action),
	}
	if !res.Success {
		ack.Status = AckFailed
		ack.Error = &AckError{Code: errorCode(res.Err), Message: errorMessage(res.Err)}
	}
	return ack
}

// newAckError builds a failed acknowledgement for a message that never
// reached the orchestrator.
func newAckError(cmd CommandMessage, platformName, deviceID, code, message string, at time.Time) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: at.UTC(),
		DeviceID:  deviceID,
		Platform:  platformName,
		Status:    AckFailed,
		Error:     &AckError{Code: code, Message: message},
	}
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsUnknownDevice(err):
		return ErrCodeDeviceNotFound
	case errors.Is(err, ErrUnknownCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, ErrCommandRejected):
		return ErrCodeCommandRejected
	default:
		return ErrCodeBridgeError
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
