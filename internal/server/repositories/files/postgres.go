package files

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

const fileColumns = `id, challenge_id, original_name, secure_filename, file_path, file_size,
	file_hash, mime_type, download_key, category, uploaded_by, upload_ip,
	download_count, last_downloaded, created_at`

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.StoredFile) (*models.StoredFile, error) {
	query := `INSERT INTO files (challenge_id, original_name, secure_filename, file_path, file_size,
			file_hash, mime_type, download_key, category, uploaded_by, upload_ip)
		 VALUES (NULLIF($1, ''), $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		f.ChallengeID, f.OriginalName, f.SecureFilename, f.FilePath, f.FileSize,
		f.FileHash, f.MimeType, f.DownloadKey, f.Category, f.UploadedBy, f.UploadIP).
		Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return f, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.StoredFile, error) {
	return r.getOne(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByDownloadKey(ctx context.Context, key string) (*models.StoredFile, error) {
	return r.getOne(ctx, `SELECT `+fileColumns+` FROM files WHERE download_key = $1`, key)
}

func (r *PostgresRepository) ListByChallenge(ctx context.Context, challengeID string) ([]*models.StoredFile, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE challenge_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.StoredFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) RecordDownload(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE files SET download_count = download_count + 1, last_downloaded = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, at, id)
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

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.StoredFile, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func scanFile(row rowScanner) (*models.StoredFile, error) {
	f := &models.StoredFile{}
	var challengeID, uploadedBy sql.NullString
	var lastDownloaded sql.NullTime

	err := row.Scan(
		&f.ID, &challengeID, &f.OriginalName, &f.SecureFilename, &f.FilePath, &f.FileSize,
		&f.FileHash, &f.MimeType, &f.DownloadKey, &f.Category, &uploadedBy, &f.UploadIP,
		&f.DownloadCount, &lastDownloaded, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	f.ChallengeID = challengeID.String
	f.UploadedBy = uploadedBy.String
	if lastDownloaded.Valid {
		f.LastDownloaded = &lastDownloaded.Time
	}
	return f, nil
}
