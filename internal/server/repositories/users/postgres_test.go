package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoctf/platform/internal/common"
	"github.com/ecoctf/platform/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userRows(lockedUntil any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "team_name", "country_code", "role", "enabled", "competing",
		"two_factor_secret", "locked_until", "verification_token", "reset_token", "reset_token_expires",
		"created_at", "last_active",
	}).AddRow("u-1", "alice@example.com", "$argon2id$...", "Alpha", "DE", 1, true, true,
		"", lockedUntil, "vtok", "", nil, now, now)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\s*\(email, password_hash, team_name, country_code, role, enabled, competing, verification_token\)`).
		WithArgs("alice@example.com", "hash", "Alpha", "DE", 1, true, true, "vtok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "last_active"}).AddRow("u-1", now, now))

	u := &models.User{
		Email: "alice@example.com", PasswordHash: "hash", TeamName: "Alpha",
		CountryCode: "DE", Role: models.RoleUser, Enabled: true, Competing: true,
		VerificationToken: "vtok",
	}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{})
	assert.ErrorContains(t, err, "db error")
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(userRows(nil))

	got, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.Nil(t, got.LockedUntil)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByEmail_LockedUntilScans(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	until := time.Now().Add(15 * time.Minute)
	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(userRows(until))

	got, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got.LockedUntil)
	assert.WithinDuration(t, until, *got.LockedUntil, time.Second)
}

func TestUpdatePasswordHash_NoRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET password_hash = \$1 WHERE id = \$2`).
		WithArgs("newhash", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePasswordHash(context.Background(), "missing", "newhash")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSetLockedUntilByEmail_ToleratesUnknownEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET locked_until = \$1 WHERE email = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetLockedUntilByEmail(context.Background(), "ghost@example.com", time.Now())
	assert.NoError(t, err)
}

func TestCompletePasswordReset_ClearsTokenFields(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET password_hash = \$1, reset_token = '', reset_token_expires = NULL WHERE id = \$2`).
		WithArgs("newhash", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CompletePasswordReset(context.Background(), "u-1", "newhash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
