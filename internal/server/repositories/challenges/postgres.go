package challenges

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ecoctf/platform/internal/common"
	"github.com/ecoctf/platform/internal/dbx"
	"github.com/ecoctf/platform/internal/server/models"
)

const challengeColumns = `id, title, description, category, flag, points, hidden, available_from, created_by, created_at`

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Challenge) (*models.Challenge, error) {
	query := `INSERT INTO challenges (title, description, category, flag, points, hidden, available_from, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		c.Title, c.Description, c.Category, c.Flag, c.Points, c.Hidden, c.AvailableFrom, c.CreatedBy).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.Challenge) error {
	query := `UPDATE challenges SET title = $1, description = $2, category = $3, flag = $4,
			points = $5, hidden = $6, available_from = $7
		 WHERE id = $8`

	res, err := r.db.ExecContext(ctx, query,
		c.Title, c.Description, c.Category, c.Flag, c.Points, c.Hidden, c.AvailableFrom, c.ID)
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

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	c := &models.Challenge{}
	var availableFrom sql.NullTime
	var createdBy sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.Flag, &c.Points, &c.Hidden,
			&availableFrom, &createdBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if availableFrom.Valid {
		c.AvailableFrom = &availableFrom.Time
	}
	c.CreatedBy = createdBy.String
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Challenge, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges ORDER BY category, points, title`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Challenge
	for rows.Next() {
		c := &models.Challenge{}
		var availableFrom sql.NullTime
		var createdBy sql.NullString
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.Flag, &c.Points,
			&c.Hidden, &availableFrom, &createdBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		if availableFrom.Valid {
			c.AvailableFrom = &availableFrom.Time
		}
		c.CreatedBy = createdBy.String
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) InsertSolve(ctx context.Context, challengeID, userID string, points int) error {
	query := `INSERT INTO solves (challenge_id, user_id, points) VALUES ($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, challengeID, userID, points); err != nil {
		// Unique violation on (challenge_id, user_id) means already solved.
		if strings.Contains(err.Error(), "duplicate key") {
			return fmt.Errorf("%w: challenge already solved", common.ErrValidation)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) HasSolve(ctx context.Context, challengeID, userID string) (bool, error) {
	query := `SELECT COUNT(*) FROM solves WHERE challenge_id = $1 AND user_id = $2`

	var n int
	if err := r.db.QueryRowContext(ctx, query, challengeID, userID).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) Scoreboard(ctx context.Context) ([]*models.ScoreboardEntry, error) {
	query := `SELECT u.team_name, COALESCE(SUM(s.points), 0) AS points, MAX(s.created_at) AS last_solve
		 FROM users u
		 JOIN solves s ON s.user_id = u.id
		 WHERE u.enabled AND u.competing
		 GROUP BY u.team_name
		 ORDER BY points DESC, last_solve ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.ScoreboardEntry
	for rows.Next() {
		e := &models.ScoreboardEntry{}
		if err := rows.Scan(&e.TeamName, &e.Points, &e.LastSolve); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
