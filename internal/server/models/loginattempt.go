package models

import "time"

// LoginAttempt is one failed login, recorded append-only. Rows inside the
// lockout window are counted toward the attempt ceiling; a successful login
// deletes the identity's rows.
type LoginAttempt struct {
	ID        string
	Email     string
	IPAddress string
	Reason    string
	CreatedAt time.Time
}

// Failure reasons stored with login attempts. Reasons never leave the
// audit trail; callers only ever see a generic credentials error.
const (
	FailureUserNotFound    = "user_not_found"
	FailureAccountLocked   = "account_locked"
	FailureAccountDisabled = "account_disabled"
	FailureInvalidPassword = "invalid_password"
	FailureInvalid2FACode  = "invalid_2fa_code"
)
