package models

import "time"

// SecurityEvent is one row of the append-only security audit trail. The
// Detail payload is JSON; specific failure causes live here, never in
// responses to callers.
type SecurityEvent struct {
	ID        string
	Event     string
	UserID    string
	IPAddress string
	UserAgent string
	Detail    []byte
	CreatedAt time.Time
}

// Audit event names.
const (
	EventUserRegistered   = "user_registered"
	EventUserLogin        = "user_login"
	EventLoginFailed      = "login_failed"
	Event2FASetup         = "2fa_setup"
	Event2FAVerified      = "2fa_verified"
	Event2FAFailed        = "2fa_failed"
	EventPasswordResetReq = "password_reset_requested"
	EventPasswordReset    = "password_reset_completed"
	EventFileUploaded     = "file_uploaded"
	EventFileDownloaded   = "file_downloaded"
	EventFileQuarantined  = "file_quarantined"
	EventFileDeleted      = "file_deleted"
)
