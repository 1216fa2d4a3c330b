package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config values from environment variables. A .env file
// in the working directory is loaded first when present; real environment
// variables win over .env entries (godotenv does not override).
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.SecretKey, "JWT_SECRET")
	setString(&config.UploadPath, "UPLOAD_PATH")
	setString(&config.QuarantinePath, "QUARANTINE_PATH")
	setString(&config.TOTPIssuer, "TOTP_ISSUER")

	setDuration(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_VALIDITY")
	setDuration(&config.RememberMeValidityDuration, "REMEMBER_ME_VALIDITY")
	setDuration(&config.ResetTokenValidityDuration, "RESET_TOKEN_VALIDITY")
	setDuration(&config.LockoutWindow, "LOCKOUT_WINDOW")

	if v, ok := lookupInt64("MAX_UPLOAD_SIZE"); ok {
		config.MaxUploadSize = v
	}
	if v, ok := lookupInt64("LOCKOUT_THRESHOLD"); ok {
		config.LockoutThreshold = int(v)
	}
	if v, ok := lookupInt64("ARGON2_MEMORY"); ok {
		config.Argon2Memory = uint32(v)
	}
	if v, ok := lookupInt64("ARGON2_TIME"); ok {
		config.Argon2Time = uint32(v)
	}
	if v, ok := lookupInt64("ARGON2_PARALLELISM"); ok {
		config.Argon2Parallelism = uint8(v)
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func lookupInt64(key string) (int64, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
