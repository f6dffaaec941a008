package cloud

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for device cloud operations.
//
// Only ErrAuthFailed is expected to escape the package in normal operation:
// reads and commands degrade to empty values or false instead.
var (
	// ErrMissingCredentials is returned when the client id or secret is empty.
	ErrMissingCredentials = errors.New("cloud: client id and secret are required")

	// ErrAuthFailed is returned when a token cannot be obtained. It is fatal.
	ErrAuthFailed = errors.New("cloud: authentication failed")

	// ErrRefreshFailed marks a failed refresh before fallback re-authentication.
	ErrRefreshFailed = errors.New("cloud: token refresh failed")

	// ErrCloudRejected is wrapped by every APIError.
	ErrCloudRejected = errors.New("cloud: request rejected")

	// ErrInvalidWebhook is returned for webhook payloads without a device id.
	ErrInvalidWebhook = errors.New("cloud: invalid webhook payload")

	// ErrHomeRequired is returned by scene operations when no home id is configured.
	ErrHomeRequired = errors.New("cloud: home id is required for scenes")
)

// APIError is a response envelope with success=false.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloud api error %d: %s", e.Code, e.Msg)
}

// Unwrap lets errors.Is(err, ErrCloudRejected) match.
func (e *APIError) Unwrap() error {
	return ErrCloudRejected
}

// HTTPStatusError is returned for non-2xx HTTP responses.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("cloud http error %d: %s", e.Status, strings.TrimSpace(e.Body))
}
