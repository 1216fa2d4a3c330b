// Package validation implements input validation for registration and
// login requests. Every failure wraps common.ErrValidation with a
// field-level message that is safe to show the caller.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/ecoctf/platform/internal/common"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	minTeamNameLength = 2
	maxTeamNameLength = 50
	maxEmailLength    = 255
)

var (
	teamNameRe    = regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)
	countryCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)
	specialRe     = regexp.MustCompile(`[@$!%*?&#^()\[\]{}.,;:_+=~/\\<>'"|-]`)
)

// Email normalizes and validates an email address, returning the
// lower-cased form.
func Email(email string) (string, error) {
	email = sanitize(email)
	if email == "" || len(email) > maxEmailLength {
		return "", fmt.Errorf("%w: invalid email format", common.ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email format", common.ErrValidation)
	}
	if strings.ContainsAny(email, `<>"'`) {
		return "", fmt.Errorf("%w: invalid characters in email", common.ErrValidation)
	}
	return strings.ToLower(email), nil
}

// Password enforces the platform password policy: 8–128 characters with
// at least one upper-case letter, one lower-case letter, one digit and
// one special character.
func Password(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long",
			common.ErrValidation, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password too long (maximum %d characters)",
			common.ErrValidation, maxPasswordLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !specialRe.MatchString(password) {
		return fmt.Errorf("%w: password must contain at least one uppercase letter, lowercase letter, number, and special character",
			common.ErrValidation)
	}
	return nil
}

// TeamName validates a team name: 2–50 characters of letters, digits,
// spaces, hyphens and underscores.
func TeamName(name string) (string, error) {
	name = sanitize(name)
	if len(name) < minTeamNameLength {
		return "", fmt.Errorf("%w: team name too short (minimum %d characters)",
			common.ErrValidation, minTeamNameLength)
	}
	if len(name) > maxTeamNameLength {
		return "", fmt.Errorf("%w: team name too long (maximum %d characters)",
			common.ErrValidation, maxTeamNameLength)
	}
	if !teamNameRe.MatchString(name) {
		return "", fmt.Errorf("%w: team name contains invalid characters", common.ErrValidation)
	}
	return name, nil
}

// CountryCode validates an optional ISO 3166-1 alpha-2 code, returning the
// upper-cased form. Empty input is allowed and returned as-is.
func CountryCode(code string) (string, error) {
	code = strings.ToUpper(sanitize(code))
	if code == "" {
		return "", nil
	}
	if !countryCodeRe.MatchString(code) {
		return "", fmt.Errorf("%w: invalid country code format", common.ErrValidation)
	}
	return code, nil
}

// sanitize strips NUL/control characters and trims whitespace.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
