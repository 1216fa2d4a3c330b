package loginattempts

import (
	"context"
	"fmt"
	"time"

	"github.com/ecoctf/platform/internal/dbx"
)

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, email, ip, reason string) error {
	query := `INSERT INTO login_attempts (email, ip_address, reason) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, email, ip, reason); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountSince(ctx context.Context, email string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM login_attempts WHERE email = $1 AND created_at > $2`

	var n int
	if err := r.db.QueryRowContext(ctx, query, email, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) DeleteForEmail(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE email = $1`, email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
