package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ecoctf/platform/internal/common"
	"github.com/ecoctf/platform/internal/dbx"
	"github.com/ecoctf/platform/internal/server/models"
)

const userColumns = `id, email, password_hash, team_name, country_code, role, enabled, competing,
	two_factor_secret, locked_until, verification_token, reset_token, reset_token_expires,
	created_at, last_active`

// PostgresRepository implements Repository over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `INSERT INTO users (email, password_hash, team_name, country_code, role, enabled, competing, verification_token)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, last_active`

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.TeamName, user.CountryCode,
		int(user.Role), user.Enabled, user.Competing, user.VerificationToken).
		Scan(&user.ID, &user.CreatedAt, &user.LastActive)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByTeamName(ctx context.Context, teamName string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE team_name = $1`, teamName)
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1 AND reset_token_expires > $2`
	return r.getOne(ctx, query, token, now)
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
}

func (r *PostgresRepository) UpdateLastActive(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `UPDATE users SET last_active = $1 WHERE id = $2`, at, id)
}

func (r *PostgresRepository) SetTwoFactorSecret(ctx context.Context, id, secret string) error {
	return r.execOne(ctx, `UPDATE users SET two_factor_secret = $1 WHERE id = $2`, secret, id)
}

// SetLockedUntilByEmail marks an explicit lockout. Keyed by email rather
// than id because the account may be locked while the password check has
// not run yet. Missing rows are not an error here: attempts against
// unknown emails are recorded too.
func (r *PostgresRepository) SetLockedUntilByEmail(ctx context.Context, email string, until time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET locked_until = $1 WHERE email = $2`, until, email)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	return r.execOne(ctx,
		`UPDATE users SET reset_token = $1, reset_token_expires = $2 WHERE id = $3`,
		token, expires, id)
}

// CompletePasswordReset swaps the hash and clears the reset token fields
// in a single statement so a failed update cannot leave partial state.
func (r *PostgresRepository) CompletePasswordReset(ctx context.Context, id, hash string) error {
	return r.execOne(ctx,
		`UPDATE users SET password_hash = $1, reset_token = '', reset_token_expires = NULL WHERE id = $2`,
		hash, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	var role int
	var lockedUntil, resetExpires sql.NullTime

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.TeamName, &user.CountryCode,
		&role, &user.Enabled, &user.Competing,
		&user.TwoFactorSecret, &lockedUntil, &user.VerificationToken,
		&user.ResetToken, &resetExpires,
		&user.CreatedAt, &user.LastActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Role = models.Role(role)
	if lockedUntil.Valid {
		user.LockedUntil = &lockedUntil.Time
	}
	if resetExpires.Valid {
		user.ResetTokenExpires = &resetExpires.Time
	}
	return user, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
