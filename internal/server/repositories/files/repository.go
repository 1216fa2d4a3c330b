// Package files persists metadata of uploaded challenge attachments.
package files

import (
	"context"
	"time"

	"github.com/ecoctf/platform/internal/server/models"
)

// Repository stores attachment metadata. Lookups return
// common.ErrNotFound when no row matches.
type Repository interface {
	Create(ctx context.Context, f *models.StoredFile) (*models.StoredFile, error)
	GetByID(ctx context.Context, id string) (*models.StoredFile, error)
	GetByDownloadKey(ctx context.Context, key string) (*models.StoredFile, error)
	ListByChallenge(ctx context.Context, challengeID string) ([]*models.StoredFile, error)

	// RecordDownload bumps download_count and last_downloaded.
	RecordDownload(ctx context.Context, id string, at time.Time) error

	Delete(ctx context.Context, id string) error
}
