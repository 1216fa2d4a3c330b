// Package users persists user accounts.
package users

import (
	"context"
	"time"

	"github.com/ecoctf/platform/internal/server/models"
)

// Repository is the credential store adapter for user rows. All lookups
// return common.ErrNotFound when no row matches.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByTeamName(ctx context.Context, teamName string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)

	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateLastActive(ctx context.Context, id string, at time.Time) error
	SetTwoFactorSecret(ctx context.Context, id, secret string) error
	SetLockedUntilByEmail(ctx context.Context, email string, until time.Time) error
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	CompletePasswordReset(ctx context.Context, id, hash string) error
}
