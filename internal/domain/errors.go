package domain

import "errors"

// Credential and session errors. Wrong-password and unknown-email both map to
// ErrInvalidCredentials so callers cannot probe which accounts exist; the same
// reasoning collapses missing, revoked and expired sessions into
// ErrSessionInvalid.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSessionInvalid     = errors.New("session invalid")
	ErrRateLimited        = errors.New("too many attempts")
	ErrUserNotFound       = errors.New("user not found")
)

// Validation errors
var (
	ErrInvalidEmail       = errors.New("email address is malformed")
	ErrWeakPassword       = errors.New("password must be at least 10 characters and mix two of letters, digits and symbols")
	ErrDisplayNameTooLong = errors.New("display name must be at most 64 characters")
)
