// Package challenges persists CTF challenges, solves and the scoreboard
// aggregation.
package challenges

import (
	"context"

	"github.com/ecoctf/platform/internal/server/models"
)

// Repository stores challenges and accepted solves.
type Repository interface {
	Create(ctx context.Context, c *models.Challenge) (*models.Challenge, error)
	Update(ctx context.Context, c *models.Challenge) error
	GetByID(ctx context.Context, id string) (*models.Challenge, error)
	List(ctx context.Context) ([]*models.Challenge, error)

	// InsertSolve records an accepted submission. The (challenge, user)
	// pair is unique; a duplicate returns common.ErrValidation.
	InsertSolve(ctx context.Context, challengeID, userID string, points int) error
	HasSolve(ctx context.Context, challengeID, userID string) (bool, error)

	Scoreboard(ctx context.Context) ([]*models.ScoreboardEntry, error)
}
