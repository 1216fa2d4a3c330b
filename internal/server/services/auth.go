// Package services contains server-side business logic. This file implements
// AuthService, which handles registration, login with lockout and optional
// TOTP, bearer token authentication, 2FA enrollment and password resets.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecoctf/platform/internal/common"
	"github.com/ecoctf/platform/internal/dbx"
	"github.com/ecoctf/platform/internal/logging"
	"github.com/ecoctf/platform/internal/server/auth"
	"github.com/ecoctf/platform/internal/server/config"
	"github.com/ecoctf/platform/internal/server/models"
	"github.com/ecoctf/platform/internal/server/repositories/repomanager"
	"github.com/ecoctf/platform/internal/validation"
)

const resetTokenBytes = 32

// RegisterRequest carries the fields of a registration call.
type RegisterRequest struct {
	Email       string
	Password    string
	TeamName    string
	CountryCode string
	IP          string
	UserAgent   string
}

// RegisterResult is returned on successful registration. The verification
// token is handed to the mail delivery layer, never to the HTTP caller.
type RegisterResult struct {
	UserID            string
	VerificationToken string
}

// LoginRequest carries the fields of a login call.
type LoginRequest struct {
	Email      string
	Password   string
	TOTPCode   string
	RememberMe bool
	IP         string
	UserAgent  string
}

// LoginResult bundles the session token with its expiry and the
// authenticated user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// AuthService provides authentication-related operations:
// - Register: create accounts with policy-validated credentials
// - Login: verify credentials under the lockout window and mint tokens
// - Authenticate: resolve a bearer token to a live user
// - Setup2FA / Verify2FA: TOTP enrollment
// - RequestPasswordReset / ResetPassword: token-based recovery
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	tokens      *auth.TokenService
	totp        *auth.TOTPService
	audit       *AuditService
	log         logging.Logger

	accessTokenValidity time.Duration
	rememberMeValidity  time.Duration
	resetTokenValidity  time.Duration
	lockoutWindow       time.Duration
	lockoutThreshold    int
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	audit *AuditService, log logging.Logger) *AuthService {
	params := auth.DefaultPasswordParams()
	params.Memory = cfg.Argon2Memory
	params.Time = cfg.Argon2Time
	params.Parallelism = cfg.Argon2Parallelism

	return &AuthService{
		db:                  db,
		repomanager:         m,
		hasher:              auth.NewPasswordHasher(params),
		tokens:              auth.NewTokenService([]byte(cfg.SecretKey)),
		totp:                auth.NewTOTPService(cfg.TOTPIssuer),
		audit:               audit,
		log:                 log,
		accessTokenValidity: cfg.AccessTokenValidityDuration,
		rememberMeValidity:  cfg.RememberMeValidityDuration,
		resetTokenValidity:  cfg.ResetTokenValidityDuration,
		lockoutWindow:       cfg.LockoutWindow,
		lockoutThreshold:    cfg.LockoutThreshold,
	}
}

// Register creates a new account after validating every field against the
// platform policy. Email and team name must be unique.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	email, err := validation.Email(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validation.Password(req.Password); err != nil {
		return nil, err
	}
	teamName, err := validation.TeamName(req.TeamName)
	if err != nil {
		return nil, err
	}
	countryCode, err := validation.CountryCode(req.CountryCode)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", common.ErrValidation)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInternal
	}
	if _, err := repo.GetByTeamName(ctx, teamName); err == nil {
		return nil, fmt.Errorf("%w: team name already taken", common.ErrValidation)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInternal
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.log.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrInternal
	}
	verificationToken, err := common.MakeRandHexString(resetTokenBytes)
	if err != nil {
		return nil, common.ErrInternal
	}

	user := &models.User{
		Email:             email,
		PasswordHash:      hash,
		TeamName:          teamName,
		CountryCode:       countryCode,
		Role:              models.RoleUser,
		Enabled:           true,
		Competing:         true,
		VerificationToken: verificationToken,
	}
	created, err := repo.Create(ctx, user)
	if err != nil {
		s.log.Error(ctx, "error creating user", "error", err)
		return nil, common.ErrInternal
	}

	s.audit.Record(ctx, models.EventUserRegistered, created.ID, req.IP, req.UserAgent,
		map[string]any{"team_name": teamName})

	return &RegisterResult{UserID: created.ID, VerificationToken: verificationToken}, nil
}

// Login verifies credentials and, when the account has 2FA enabled, the
// TOTP code, then mints a session token. Which factor failed is recorded
// in the attempt trail only; callers always get the same generic error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	now := time.Now()

	if err := s.checkRateLimit(ctx, email, now); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.recordFailure(ctx, email, req.IP, models.FailureUserNotFound)
			return nil, common.ErrAuthentication
		}
		return nil, common.ErrInternal
	}

	if user.Locked(now) {
		s.recordFailure(ctx, email, req.IP, models.FailureAccountLocked)
		return nil, common.ErrRateLimited
	}
	if !user.Enabled {
		s.recordFailure(ctx, email, req.IP, models.FailureAccountDisabled)
		return nil, common.ErrAuthentication
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.recordFailure(ctx, email, req.IP, models.FailureInvalidPassword)
		return nil, common.ErrAuthentication
	}

	if user.Requires2FA() {
		if !s.totp.Verify(user.TwoFactorSecret, req.TOTPCode, now) {
			s.recordFailure(ctx, email, req.IP, models.FailureInvalid2FACode)
			s.audit.Record(ctx, models.Event2FAFailed, user.ID, req.IP, req.UserAgent, nil)
			return nil, common.ErrAuthentication
		}
	}

	s.afterSuccessfulLogin(ctx, user, req.Password, now)

	ttl := s.accessTokenValidity
	if req.RememberMe {
		ttl = s.rememberMeValidity
	}
	token, expiresAt, err := s.tokens.Issue(user.ID, ttl)
	if err != nil {
		s.log.Error(ctx, "token issue failed", "error", err)
		return nil, common.ErrInternal
	}

	s.audit.Record(ctx, models.EventUserLogin, user.ID, req.IP, req.UserAgent,
		map[string]any{"remember_me": req.RememberMe})

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a bearer token to its live user row. Missing and
// disabled accounts fail the same way as a bad token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, common.ErrAuthentication
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrAuthentication
		}
		return nil, common.ErrInternal
	}
	if !user.Enabled {
		return nil, common.ErrAuthentication
	}

	if err := repo.UpdateLastActive(ctx, user.ID, time.Now()); err != nil {
		s.log.Warn(ctx, "last_active update failed", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// Setup2FA generates and stores a TOTP secret for the account and returns
// the secret with its provisioning URI for QR display.
func (s *AuthService) Setup2FA(ctx context.Context, userID, ip, userAgent string) (secret, uri string, err error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", "", common.ErrAuthentication
		}
		return "", "", common.ErrInternal
	}

	secret, err = s.totp.GenerateSecret()
	if err != nil {
		return "", "", common.ErrInternal
	}
	if err := repo.SetTwoFactorSecret(ctx, user.ID, secret); err != nil {
		s.log.Error(ctx, "2fa secret store failed", "user_id", user.ID, "error", err)
		return "", "", common.ErrInternal
	}

	s.audit.Record(ctx, models.Event2FASetup, user.ID, ip, userAgent, nil)
	return secret, s.totp.ProvisioningURI(secret, user.Email), nil
}

// Verify2FA checks a code against the account's stored secret, confirming
// enrollment. Failures are audited and surface as a generic error.
func (s *AuthService) Verify2FA(ctx context.Context, userID, code, ip, userAgent string) error {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrAuthentication
		}
		return common.ErrInternal
	}
	if !user.Requires2FA() {
		return fmt.Errorf("%w: 2fa not set up", common.ErrValidation)
	}

	if !s.totp.Verify(user.TwoFactorSecret, code, time.Now()) {
		s.audit.Record(ctx, models.Event2FAFailed, user.ID, ip, userAgent, nil)
		return common.ErrAuthentication
	}

	s.audit.Record(ctx, models.Event2FAVerified, user.ID, ip, userAgent, nil)
	return nil
}

// RequestPasswordReset stores a recovery token for the account and returns
// it for mail delivery. Unknown emails succeed outwardly with an empty
// token so callers cannot probe for registered addresses.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, ip, userAgent string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", nil
		}
		return "", common.ErrInternal
	}

	token, err := common.MakeRandHexString(resetTokenBytes)
	if err != nil {
		return "", common.ErrInternal
	}
	expires := time.Now().Add(s.resetTokenValidity)
	if err := repo.SetResetToken(ctx, user.ID, token, expires); err != nil {
		s.log.Error(ctx, "reset token store failed", "user_id", user.ID, "error", err)
		return "", common.ErrInternal
	}

	s.audit.Record(ctx, models.EventPasswordResetReq, user.ID, ip, userAgent, nil)
	return token, nil
}

// ResetPassword swaps the password hash for a valid, unexpired reset
// token and clears the token fields in the same statement.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword, ip, userAgent string) error {
	if err := validation.Password(newPassword); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByResetToken(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidToken
		}
		return common.ErrInternal
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return common.ErrInternal
	}
	if err := repo.CompletePasswordReset(ctx, user.ID, hash); err != nil {
		s.log.Error(ctx, "password reset failed", "user_id", user.ID, "error", err)
		return common.ErrInternal
	}

	s.audit.Record(ctx, models.EventPasswordReset, user.ID, ip, userAgent, nil)
	return nil
}

// --- helpers below ---

// checkRateLimit rejects the login before any credential work when the
// identity already has too many failures inside the sliding window.
func (s *AuthService) checkRateLimit(ctx context.Context, email string, now time.Time) error {
	repo := s.repomanager.LoginAttempts(s.db)
	count, err := repo.CountSince(ctx, email, now.Add(-s.lockoutWindow))
	if err != nil {
		return common.ErrInternal
	}
	if count >= s.lockoutThreshold {
		return common.ErrRateLimited
	}
	return nil
}

// recordFailure appends one attempt row and, when the identity reaches the
// threshold, sets the account lockout. Both run in one transaction so
// concurrent failures cannot race past the ceiling.
func (s *AuthService) recordFailure(ctx context.Context, email, ip, reason string) {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		attempts := s.repomanager.LoginAttempts(tx)
		if err := attempts.Insert(ctx, email, ip, reason); err != nil {
			return err
		}
		count, err := attempts.CountSince(ctx, email, time.Now().Add(-s.lockoutWindow))
		if err != nil {
			return err
		}
		if count >= s.lockoutThreshold {
			users := s.repomanager.Users(tx)
			return users.SetLockedUntilByEmail(ctx, email, time.Now().Add(s.lockoutWindow))
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "failed login not recorded", "error", err)
	}
}

// afterSuccessfulLogin clears the identity's attempt rows, bumps
// last_active and upgrades the stored hash when cost parameters have been
// raised. None of these may fail the login itself.
func (s *AuthService) afterSuccessfulLogin(ctx context.Context, user *models.User, password string, now time.Time) {
	attempts := s.repomanager.LoginAttempts(s.db)
	if err := attempts.DeleteForEmail(ctx, user.Email); err != nil {
		s.log.Warn(ctx, "attempt cleanup failed", "user_id", user.ID, "error", err)
	}

	users := s.repomanager.Users(s.db)
	if err := users.UpdateLastActive(ctx, user.ID, now); err != nil {
		s.log.Warn(ctx, "last_active update failed", "user_id", user.ID, "error", err)
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		hash, err := s.hasher.Hash(password)
		if err == nil {
			err = users.UpdatePasswordHash(ctx, user.ID, hash)
		}
		if err != nil {
			s.log.Warn(ctx, "hash upgrade failed", "user_id", user.ID, "error", err)
		}
	}
}
