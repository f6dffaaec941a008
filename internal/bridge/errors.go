package bridge

import "errors"

// Domain errors for the bridge orchestrator.
var (
	// ErrUnknownDevice is returned when a platform device id is not in the
	// registry.
	ErrUnknownDevice = errors.New("bridge: unknown platform device")

	// ErrUnknownCommand is returned when a command name has no alias.
	ErrUnknownCommand = errors.New("bridge: unknown command")

	// ErrCommandRejected is returned when the cloud did not accept a command.
	ErrCommandRejected = errors.New("bridge: command rejected by cloud")

	// ErrAuthentication wraps a failed initial cloud authentication.
	ErrAuthentication = errors.New("bridge: cloud authentication failed")

	// ErrStopped is returned by operations attempted after Stop.
	ErrStopped = errors.New("bridge: orchestrator stopped")
)
