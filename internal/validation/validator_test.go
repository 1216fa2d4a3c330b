package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoctf/platform/internal/common"
)

func TestEmail(t *testing.T) {
	got, err := Email("Alice@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got)

	got, err = Email("  bob@example.com\x00 ")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got)

	for _, bad := range []string{"", "not-an-email", "a b@example.com", "x@", strings.Repeat("a", 250) + "@b.co"} {
		_, err := Email(bad)
		assert.ErrorIs(t, err, common.ErrValidation, "email %q", bad)
	}
}

func TestPassword(t *testing.T) {
	assert.NoError(t, Password("Str0ng!Pass"))
	assert.NoError(t, Password("Another-G00d-one"))

	tests := []struct {
		name     string
		password string
	}{
		{"too short", "Ab1!x"},
		{"too long", "Aa1!" + strings.Repeat("x", 130)},
		{"no uppercase", "str0ng!pass"},
		{"no lowercase", "STR0NG!PASS"},
		{"no digit", "Strong!Pass"},
		{"no special", "Str0ngPass1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Password(tt.password), common.ErrValidation)
		})
	}
}

func TestTeamName(t *testing.T) {
	got, err := TeamName("Alpha Team-1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Team-1", got)

	for _, bad := range []string{"A", strings.Repeat("x", 51), "bad<name>", "flags;drop"} {
		_, err := TeamName(bad)
		assert.ErrorIs(t, err, common.ErrValidation, "team %q", bad)
	}
}

func TestCountryCode(t *testing.T) {
	got, err := CountryCode("de")
	require.NoError(t, err)
	assert.Equal(t, "DE", got)

	got, err = CountryCode("")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	for _, bad := range []string{"DEU", "1A", "d"} {
		_, err := CountryCode(bad)
		assert.ErrorIs(t, err, common.ErrValidation, "code %q", bad)
	}
}
