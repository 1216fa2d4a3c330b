package securitylog

import (
	"context"
	"fmt"

	"github.com/ecoctf/platform/internal/dbx"
	"github.com/ecoctf/platform/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, ev *models.SecurityEvent) error {
	query := `INSERT INTO security_events (event, user_id, ip_address, user_agent, detail)
		 VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5::text, '')::jsonb, '{}'::jsonb))`

	_, err := r.db.ExecContext(ctx, query,
		ev.Event, ev.UserID, ev.IPAddress, ev.UserAgent, string(ev.Detail))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
