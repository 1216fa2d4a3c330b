package config

import (
	"flag"
	"os"
	"time"

	"github.com/ecoctf/platform/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      remember-me token validity, minutes
//	-u string   upload storage root
//	-q string   quarantine storage root
//	-w int      lockout window, minutes
//	-l int      lockout threshold, failed attempts
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-u", "-q", "-w", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	rememberMeValidity := fs.Int("r", int(config.RememberMeValidityDuration.Minutes()), "remember_me_validity_duration (in minutes)")

	fs.StringVar(&config.UploadPath, "u", config.UploadPath, "upload storage root")
	fs.StringVar(&config.QuarantinePath, "q", config.QuarantinePath, "quarantine storage root")

	lockoutWindow := fs.Int("w", int(config.LockoutWindow.Minutes()), "lockout window (in minutes)")
	fs.IntVar(&config.LockoutThreshold, "l", config.LockoutThreshold, "lockout threshold (failed attempts)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	config.RememberMeValidityDuration = time.Duration(*rememberMeValidity) * time.Minute
	config.LockoutWindow = time.Duration(*lockoutWindow) * time.Minute
}
