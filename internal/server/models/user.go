// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account. Accounts are never hard-deleted; disabling
// is done through the Enabled flag.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	TeamName     string
	CountryCode  string
	Role         Role
	Enabled      bool
	Competing    bool

	// TwoFactorSecret is the base32 TOTP secret, empty until 2FA setup.
	TwoFactorSecret string

	// LockedUntil is set when failed logins reach the lockout threshold.
	LockedUntil *time.Time

	VerificationToken string
	ResetToken        string
	ResetTokenExpires *time.Time

	CreatedAt  time.Time
	LastActive time.Time
}

// Requires2FA reports whether the account has completed 2FA setup.
func (u *User) Requires2FA() bool {
	return u.TwoFactorSecret != ""
}

// Locked reports whether an explicit lockout is active at the given time.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}
