package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ecoctf/platform/internal/common"
	"github.com/ecoctf/platform/internal/server/models"
	"github.com/ecoctf/platform/internal/server/repositories/repomanager"
)

// AuthzService answers role checks against the live user row. Every call
// re-reads the store so role changes and account disabling take effect
// immediately, not at next login.
type AuthzService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewAuthzService constructs an AuthzService.
func NewAuthzService(db *sql.DB, m repomanager.RepositoryManager) *AuthzService {
	return &AuthzService{db: db, repomanager: m}
}

// HasPermission reports whether the user currently holds at least the
// required role. Unknown and disabled accounts are always denied.
func (s *AuthzService) HasPermission(ctx context.Context, userID string, required models.Role) (bool, error) {
	if userID == "" {
		return false, nil
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error loading user: %v", err)
	}
	if !user.Enabled {
		return false, nil
	}
	return user.Role.Meets(required), nil
}
