package auth

import (
	"encoding/base32"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 6238 appendix B vectors, truncated to 6 digits (SHA-1 rows).
func TestTOTP_RFCVectors(t *testing.T) {
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).
		EncodeToString([]byte("12345678901234567890"))
	s := NewTOTPService("EcoCTF")

	tests := []struct {
		unix int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}

	for _, tt := range tests {
		now := time.Unix(tt.unix, 0)
		assert.True(t, s.Verify(secret, tt.code, now), "code %s at %d", tt.code, tt.unix)
	}
}

func TestTOTP_SkewWindow(t *testing.T) {
	s := NewTOTPService("EcoCTF")
	secret, err := s.GenerateSecret()
	require.NoError(t, err)

	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	step := now.Unix() / totpPeriod

	// Current and adjacent steps pass.
	for _, delta := range []int64{-1, 0, 1} {
		assert.True(t, s.Verify(secret, totpCode(raw, step+delta), now), "delta %d", delta)
	}

	// Two steps away is outside the tolerance window.
	for _, delta := range []int64{-2, 2} {
		assert.False(t, s.Verify(secret, totpCode(raw, step+delta), now), "delta %d", delta)
	}
}

func TestTOTP_RejectsBadInput(t *testing.T) {
	s := NewTOTPService("EcoCTF")
	secret, err := s.GenerateSecret()
	require.NoError(t, err)

	now := time.Now()
	assert.False(t, s.Verify(secret, "", now))
	assert.False(t, s.Verify(secret, "12345", now))
	assert.False(t, s.Verify(secret, "1234567", now))
	assert.False(t, s.Verify(secret, "12a456", now))
	assert.False(t, s.Verify("%%%not-base32%%%", "123456", now))
}

func TestTOTP_GenerateSecret(t *testing.T) {
	s := NewTOTPService("EcoCTF")

	secret, err := s.GenerateSecret()
	require.NoError(t, err)

	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	require.NoError(t, err)
	assert.Len(t, raw, totpSecretBytes)

	other, err := s.GenerateSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestTOTP_ProvisioningURI(t *testing.T) {
	s := NewTOTPService("EcoCTF")
	uri := s.ProvisioningURI("SECRETB32", "alice@example.com")

	assert.Contains(t, uri, "otpauth://totp/EcoCTF:alice%40example.com?")
	assert.Contains(t, uri, "secret=SECRETB32")
	assert.Contains(t, uri, "issuer=EcoCTF")
	assert.Contains(t, uri, "period=30")
	assert.Contains(t, uri, "digits=6")
	assert.Contains(t, uri, "algorithm=SHA1")
}
