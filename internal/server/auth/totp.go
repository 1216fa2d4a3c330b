package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RFC 6238 parameters used by every common authenticator app.
const (
	totpSecretBytes = 20
	totpPeriod      = 30
	totpDigits      = 6

	// totpSkew is the number of adjacent time steps accepted on either
	// side of the current one, tolerating up to 30s of clock drift.
	totpSkew = 1
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTPService generates shared secrets and verifies time-based one-time
// codes against them.
type TOTPService struct {
	issuer string
}

func NewTOTPService(issuer string) *TOTPService {
	return &TOTPService{issuer: issuer}
}

// GenerateSecret returns a fresh 160-bit secret, base32-encoded for
// user-facing display and QR provisioning.
func (s *TOTPService) GenerateSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return b32.EncodeToString(raw), nil
}

// ProvisioningURI builds the otpauth:// URI encoded into a setup QR code.
func (s *TOTPService) ProvisioningURI(secretB32, account string) string {
	label := url.PathEscape(s.issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secretB32)
	v.Set("issuer", s.issuer)
	v.Set("period", strconv.Itoa(totpPeriod))
	v.Set("digits", strconv.Itoa(totpDigits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify checks code against the secret for the current time step and
// ±totpSkew adjacent steps, comparing each candidate in constant time.
// It never reports how close a mismatch was.
func (s *TOTPService) Verify(secretB32, code string, now time.Time) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != totpDigits || !isDigits(trimmed) {
		return false
	}

	secret, err := b32.DecodeString(strings.ToUpper(secretB32))
	if err != nil || len(secret) == 0 {
		return false
	}

	base := now.Unix() / totpPeriod
	matched := false
	for step := int64(-totpSkew); step <= totpSkew; step++ {
		counter := base + step
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(totpCode(secret, counter)), []byte(trimmed)) == 1 {
			matched = true
		}
	}
	return matched
}

// totpCode computes the 6-digit code for one time-step counter: HMAC-SHA1
// over the big-endian counter, dynamic truncation to the lower 31 bits,
// then modulo 10^6, zero-padded.
func totpCode(secret []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	return fmt.Sprintf("%06d", bin%1000000)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
