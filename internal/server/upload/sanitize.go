// Package upload contains the security checks applied to uploaded files
// before they reach disk: filename sanitization, extension denylisting,
// content-type verification, script-marker scanning and archive limits.
package upload

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxBaseLength = 50

// SanitizeFilename produces a filesystem-safe name from client input.
// Path separators and NUL bytes are stripped, shell-hostile characters
// are replaced with underscores, and leading/trailing dots and spaces
// are trimmed. An input that sanitizes to nothing gets a generated name
// so the pipeline never works with an empty string.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == 0:
			// drop path separators and NULs entirely
		case r < 0x20 || r == 0x7f:
		case strings.ContainsRune(`<>:"|?*`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Trim(b.String(), ". ")
	if cleaned == "" {
		return "file_" + uuid.NewString()
	}
	return cleaned
}

// SecureFilename builds the on-disk name for a sanitized original name:
// the base (letters, digits, hyphen, underscore; 50 chars max) plus a
// timestamp and a random suffix, keeping the original extension.
func SecureFilename(sanitized string, now time.Time, randHex string) string {
	ext := path.Ext(sanitized)
	base := strings.TrimSuffix(sanitized, ext)

	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	safe := b.String()
	if len(safe) > maxBaseLength {
		safe = safe[:maxBaseLength]
	}

	return fmt.Sprintf("%s_%d_%s%s", safe, now.Unix(), randHex, strings.ToLower(ext))
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}
