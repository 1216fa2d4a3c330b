package models

import "time"

// File categories accepted by the upload pipeline. Each category carries
// its own content-type allowlist.
const (
	CategoryChallenge = "challenge"
	CategoryImage     = "image"
	CategoryDocument  = "document"
)

// StoredFile describes an attachment that passed every ingestion gate.
// The bytes live on disk under a randomized name; the record is addressed
// externally only through DownloadKey.
type StoredFile struct {
	ID          string
	ChallengeID string

	// OriginalName is the sanitized client-supplied filename.
	OriginalName string
	// SecureFilename is the randomized on-disk name.
	SecureFilename string
	// FilePath is relative to the upload root.
	FilePath string

	FileSize int64
	// FileHash is the SHA-256 of the content recorded at upload time.
	FileHash string
	MimeType string

	// DownloadKey is a 64-char random hex token (256 bits of entropy).
	DownloadKey string
	Category    string

	UploadedBy string
	UploadIP   string

	DownloadCount  int64
	LastDownloaded *time.Time
	CreatedAt      time.Time
}
