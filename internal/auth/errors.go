package auth

import "errors"

// Sentinel errors for auth operations.
var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrForbidden    = errors.New("auth: insufficient scope")
	ErrNoSecret     = errors.New("auth: signing secret is empty")
)
