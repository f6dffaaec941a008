package platform

import "errors"

var (
	// ErrUnknownPlatform is returned for an ecosystem name with no adapter.
	ErrUnknownPlatform = errors.New("platform: unknown ecosystem")

	// ErrPublishFailed wraps publisher failures during Register and PushState.
	ErrPublishFailed = errors.New("platform: publish failed")
)
