package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ecoctf/platform/internal/common"
	"github.com/ecoctf/platform/internal/logging"
	"github.com/ecoctf/platform/internal/server/models"
	"github.com/ecoctf/platform/internal/server/repositories/repomanager"
)

// ChallengeService manages challenges, flag submissions and the
// scoreboard. Participants never see flags or unreleased challenges;
// moderators and admins see everything.
type ChallengeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	authz       *AuthzService
	log         logging.Logger
}

// NewChallengeService constructs a ChallengeService.
func NewChallengeService(db *sql.DB, m repomanager.RepositoryManager,
	authz *AuthzService, log logging.Logger) *ChallengeService {
	return &ChallengeService{db: db, repomanager: m, authz: authz, log: log}
}

// List returns the challenges visible to the requester. For participants,
// hidden and not-yet-released challenges are filtered out and flags are
// blanked.
func (s *ChallengeService) List(ctx context.Context, requesterID string) ([]*models.Challenge, error) {
	staff, err := s.authz.HasPermission(ctx, requesterID, models.RoleModerator)
	if err != nil {
		return nil, common.ErrInternal
	}

	repo := s.repomanager.Challenges(s.db)
	all, err := repo.List(ctx)
	if err != nil {
		s.log.Error(ctx, "challenge list failed", "error", err)
		return nil, common.ErrInternal
	}
	if staff {
		return all, nil
	}

	now := time.Now()
	visible := make([]*models.Challenge, 0, len(all))
	for _, c := range all {
		if !c.Available(now) {
			continue
		}
		c.Flag = ""
		visible = append(visible, c)
	}
	return visible, nil
}

// Get returns one challenge with the same visibility rules as List.
// Challenges the requester may not see read as not found.
func (s *ChallengeService) Get(ctx context.Context, id, requesterID string) (*models.Challenge, error) {
	staff, err := s.authz.HasPermission(ctx, requesterID, models.RoleModerator)
	if err != nil {
		return nil, common.ErrInternal
	}

	c, err := s.getChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	if !staff {
		if !c.Available(time.Now()) {
			return nil, common.ErrNotFound
		}
		c.Flag = ""
	}
	return c, nil
}

// Create stores a new challenge. Moderator role required.
func (s *ChallengeService) Create(ctx context.Context, c *models.Challenge, requesterID string) (*models.Challenge, error) {
	if err := s.requireStaff(ctx, requesterID); err != nil {
		return nil, err
	}
	if err := validateChallenge(c); err != nil {
		return nil, err
	}

	c.CreatedBy = requesterID
	repo := s.repomanager.Challenges(s.db)
	created, err := repo.Create(ctx, c)
	if err != nil {
		s.log.Error(ctx, "challenge create failed", "error", err)
		return nil, common.ErrInternal
	}
	return created, nil
}

// Update replaces a challenge's fields. Moderator role required.
func (s *ChallengeService) Update(ctx context.Context, c *models.Challenge, requesterID string) error {
	if err := s.requireStaff(ctx, requesterID); err != nil {
		return err
	}
	if err := validateChallenge(c); err != nil {
		return err
	}
	if _, err := s.getChallenge(ctx, c.ID); err != nil {
		return err
	}

	repo := s.repomanager.Challenges(s.db)
	if err := repo.Update(ctx, c); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		s.log.Error(ctx, "challenge update failed", "challenge_id", c.ID, "error", err)
		return common.ErrInternal
	}
	return nil
}

// SubmitFlag checks a submitted flag in constant time and records the
// first solve per user. It returns whether the flag was correct; an
// already-solved challenge surfaces as a validation error.
func (s *ChallengeService) SubmitFlag(ctx context.Context, challengeID, userID, flag string) (bool, error) {
	c, err := s.getChallenge(ctx, challengeID)
	if err != nil {
		return false, err
	}
	if !c.Available(time.Now()) {
		staff, err := s.authz.HasPermission(ctx, userID, models.RoleModerator)
		if err != nil {
			return false, common.ErrInternal
		}
		if !staff {
			return false, common.ErrNotFound
		}
	}

	if subtle.ConstantTimeCompare([]byte(flag), []byte(c.Flag)) != 1 {
		return false, nil
	}

	repo := s.repomanager.Challenges(s.db)
	if err := repo.InsertSolve(ctx, c.ID, userID, c.Points); err != nil {
		if errors.Is(err, common.ErrValidation) {
			return true, fmt.Errorf("%w: challenge already solved", common.ErrValidation)
		}
		s.log.Error(ctx, "solve insert failed", "challenge_id", c.ID, "error", err)
		return true, common.ErrInternal
	}
	return true, nil
}

// Scoreboard returns the aggregated team standings.
func (s *ChallengeService) Scoreboard(ctx context.Context) ([]*models.ScoreboardEntry, error) {
	repo := s.repomanager.Challenges(s.db)
	entries, err := repo.Scoreboard(ctx)
	if err != nil {
		s.log.Error(ctx, "scoreboard query failed", "error", err)
		return nil, common.ErrInternal
	}
	return entries, nil
}

func (s *ChallengeService) getChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	repo := s.repomanager.Challenges(s.db)
	c, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}
	return c, nil
}

func (s *ChallengeService) requireStaff(ctx context.Context, requesterID string) error {
	staff, err := s.authz.HasPermission(ctx, requesterID, models.RoleModerator)
	if err != nil {
		return common.ErrInternal
	}
	if !staff {
		return common.ErrAuthorization
	}
	return nil
}

func validateChallenge(c *models.Challenge) error {
	if c.Title == "" {
		return fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	if c.Flag == "" {
		return fmt.Errorf("%w: flag is required", common.ErrValidation)
	}
	if c.Points <= 0 {
		return fmt.Errorf("%w: points must be positive", common.ErrValidation)
	}
	return nil
}
