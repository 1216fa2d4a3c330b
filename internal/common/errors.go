// Package common defines shared constants and sentinel errors used across
// the platform. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Validation errors carry field-level detail and are safe to return
	// to the caller. Wrap with fmt.Errorf("%w: ...", ErrValidation).
	ErrValidation = errors.New("validation error")

	// Authentication failures are always surfaced with this single
	// generic value so callers cannot tell which factor failed.
	ErrAuthentication = errors.New("invalid credentials")

	// ErrAuthorization means the caller's role is insufficient or the
	// account is disabled.
	ErrAuthorization = errors.New("forbidden")

	// ErrRateLimited means the identity is inside a lockout window.
	ErrRateLimited = errors.New("too many login attempts")

	// ErrIntegrity means stored content no longer matches its recorded
	// hash or a signature check failed. Logged as a security event.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrInvalidToken covers malformed, tampered and expired tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInternal hides storage and infrastructure failures from callers.
	ErrInternal = errors.New("internal error")
)
