package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ecoctf/platform/internal/flagx"
	"github.com/ecoctf/platform/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, non-zero fields are copied
// into the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	RememberMeValidityDuration  timex.Duration `json:"remember_me_validity_duration"`
	ResetTokenValidityDuration  timex.Duration `json:"reset_token_validity_duration"`
	Argon2Memory                uint32         `json:"argon2_memory"`
	Argon2Time                  uint32         `json:"argon2_time"`
	Argon2Parallelism           uint8          `json:"argon2_parallelism"`
	UploadPath                  string         `json:"upload_path"`
	QuarantinePath              string         `json:"quarantine_path"`
	MaxUploadSize               int64          `json:"max_upload_size"`
	LockoutWindow               timex.Duration `json:"lockout_window"`
	LockoutThreshold            int            `json:"lockout_threshold"`
	TOTPIssuer                  string         `json:"totp_issuer"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is the -c or -config
// command-line flags; when neither is set, no JSON file is loaded.
// Only fields present (non-zero) in the file override the current
// values. If the file cannot be read or contains invalid JSON, the
// function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	}
	if c.RememberMeValidityDuration.Duration != 0 {
		config.RememberMeValidityDuration = time.Duration(c.RememberMeValidityDuration.Duration)
	}
	if c.ResetTokenValidityDuration.Duration != 0 {
		config.ResetTokenValidityDuration = time.Duration(c.ResetTokenValidityDuration.Duration)
	}
	if c.Argon2Memory != 0 {
		config.Argon2Memory = c.Argon2Memory
	}
	if c.Argon2Time != 0 {
		config.Argon2Time = c.Argon2Time
	}
	if c.Argon2Parallelism != 0 {
		config.Argon2Parallelism = c.Argon2Parallelism
	}
	if c.UploadPath != "" {
		config.UploadPath = c.UploadPath
	}
	if c.QuarantinePath != "" {
		config.QuarantinePath = c.QuarantinePath
	}
	if c.MaxUploadSize != 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	if c.LockoutWindow.Duration != 0 {
		config.LockoutWindow = time.Duration(c.LockoutWindow.Duration)
	}
	if c.LockoutThreshold != 0 {
		config.LockoutThreshold = c.LockoutThreshold
	}
	if c.TOTPIssuer != "" {
		config.TOTPIssuer = c.TOTPIssuer
	}
}
