// Package loginattempts persists failed login attempts for the sliding
// lockout window.
package loginattempts

import (
	"context"
	"time"
)

// Repository stores and counts failed login attempts per identity.
type Repository interface {
	// Insert records one failed attempt.
	Insert(ctx context.Context, email, ip, reason string) error

	// CountSince returns how many attempts exist for email newer than
	// the given cutoff.
	CountSince(ctx context.Context, email string, since time.Time) (int, error)

	// DeleteForEmail removes all attempts for the identity. Called on
	// successful login; attempts from the same IP against other
	// identities are left in place.
	DeleteForEmail(ctx context.Context, email string) error
}
