package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ecoctf/platform/internal/common"
	"github.com/ecoctf/platform/internal/dbx"
	"github.com/ecoctf/platform/internal/logging"
	"github.com/ecoctf/platform/internal/server/models"
	challengesrepo "github.com/ecoctf/platform/internal/server/repositories/challenges"
	filesrepo "github.com/ecoctf/platform/internal/server/repositories/files"
	attemptsrepo "github.com/ecoctf/platform/internal/server/repositories/loginattempts"
	securitylogrepo "github.com/ecoctf/platform/internal/server/repositories/securitylog"
	usersrepo "github.com/ecoctf/platform/internal/server/repositories/users"
)

// --- shared test fakes ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeUsersRepo struct {
	byID       map[string]*models.User
	byEmail    map[string]*models.User
	byTeamName map[string]*models.User
	byReset    map[string]*models.User

	created       *models.User
	createErr     error
	lockedEmail   string
	lockedUntil   time.Time
	updatedHash   map[string]string
	resetToken    string
	resetDoneID   string
	twoFactorSets map[string]string
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{
		byID:          map[string]*models.User{},
		byEmail:       map[string]*models.User{},
		byTeamName:    map[string]*models.User{},
		byReset:       map[string]*models.User{},
		updatedHash:   map[string]string{},
		twoFactorSets: map[string]string{},
	}
}

func (f *fakeUsersRepo) add(u *models.User) {
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	f.byTeamName[u.TeamName] = u
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	out := *u
	out.ID = "new-id"
	f.created = &out
	return &out, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByTeamName(ctx context.Context, teamName string) (*models.User, error) {
	if u, ok := f.byTeamName[teamName]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	if u, ok := f.byReset[token]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	f.updatedHash[id] = hash
	return nil
}

func (f *fakeUsersRepo) UpdateLastActive(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (f *fakeUsersRepo) SetTwoFactorSecret(ctx context.Context, id, secret string) error {
	f.twoFactorSets[id] = secret
	return nil
}

func (f *fakeUsersRepo) SetLockedUntilByEmail(ctx context.Context, email string, until time.Time) error {
	f.lockedEmail = email
	f.lockedUntil = until
	return nil
}

func (f *fakeUsersRepo) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	f.resetToken = token
	return nil
}

func (f *fakeUsersRepo) CompletePasswordReset(ctx context.Context, id, hash string) error {
	f.resetDoneID = id
	f.updatedHash[id] = hash
	return nil
}

type fakeAttemptsRepo struct {
	inserted   []string // reasons
	count      int
	countErr   error
	deletedFor string
}

func (f *fakeAttemptsRepo) Insert(ctx context.Context, email, ip, reason string) error {
	f.inserted = append(f.inserted, reason)
	f.count++
	return nil
}

func (f *fakeAttemptsRepo) CountSince(ctx context.Context, email string, since time.Time) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.count, nil
}

func (f *fakeAttemptsRepo) DeleteForEmail(ctx context.Context, email string) error {
	f.deletedFor = email
	return nil
}

type fakeFilesRepo struct {
	created    *models.StoredFile
	createErr  error
	byKey      map[string]*models.StoredFile
	byID       map[string]*models.StoredFile
	byChall    map[string][]*models.StoredFile
	downloads  []string
	deletedIDs []string
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{
		byKey:   map[string]*models.StoredFile{},
		byID:    map[string]*models.StoredFile{},
		byChall: map[string][]*models.StoredFile{},
	}
}

func (f *fakeFilesRepo) Create(ctx context.Context, sf *models.StoredFile) (*models.StoredFile, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	out := *sf
	out.ID = "file-id"
	f.created = &out
	f.byKey[out.DownloadKey] = &out
	f.byID[out.ID] = &out
	return &out, nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.StoredFile, error) {
	if sf, ok := f.byID[id]; ok {
		return sf, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeFilesRepo) GetByDownloadKey(ctx context.Context, key string) (*models.StoredFile, error) {
	if sf, ok := f.byKey[key]; ok {
		return sf, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeFilesRepo) ListByChallenge(ctx context.Context, challengeID string) ([]*models.StoredFile, error) {
	return f.byChall[challengeID], nil
}

func (f *fakeFilesRepo) RecordDownload(ctx context.Context, id string, at time.Time) error {
	f.downloads = append(f.downloads, id)
	return nil
}

func (f *fakeFilesRepo) Delete(ctx context.Context, id string) error {
	f.deletedIDs = append(f.deletedIDs, id)
	delete(f.byID, id)
	return nil
}

type fakeChallengesRepo struct {
	byID      map[string]*models.Challenge
	list      []*models.Challenge
	created   *models.Challenge
	updated   *models.Challenge
	solves    map[string]bool // challengeID+"/"+userID
	solveErr  error
	board     []*models.ScoreboardEntry
}

func newFakeChallengesRepo() *fakeChallengesRepo {
	return &fakeChallengesRepo{
		byID:   map[string]*models.Challenge{},
		solves: map[string]bool{},
	}
}

func (f *fakeChallengesRepo) add(c *models.Challenge) {
	f.byID[c.ID] = c
	f.list = append(f.list, c)
}

func (f *fakeChallengesRepo) Create(ctx context.Context, c *models.Challenge) (*models.Challenge, error) {
	out := *c
	out.ID = "chal-id"
	f.created = &out
	return &out, nil
}

func (f *fakeChallengesRepo) Update(ctx context.Context, c *models.Challenge) error {
	f.updated = c
	return nil
}

func (f *fakeChallengesRepo) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	if c, ok := f.byID[id]; ok {
		out := *c
		return &out, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeChallengesRepo) List(ctx context.Context) ([]*models.Challenge, error) {
	out := make([]*models.Challenge, 0, len(f.list))
	for _, c := range f.list {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeChallengesRepo) InsertSolve(ctx context.Context, challengeID, userID string, points int) error {
	if f.solveErr != nil {
		return f.solveErr
	}
	key := challengeID + "/" + userID
	if f.solves[key] {
		return common.ErrValidation
	}
	f.solves[key] = true
	return nil
}

func (f *fakeChallengesRepo) HasSolve(ctx context.Context, challengeID, userID string) (bool, error) {
	return f.solves[challengeID+"/"+userID], nil
}

func (f *fakeChallengesRepo) Scoreboard(ctx context.Context) ([]*models.ScoreboardEntry, error) {
	return f.board, nil
}

type fakeSecurityLogRepo struct {
	events []*models.SecurityEvent
}

func (f *fakeSecurityLogRepo) Insert(ctx context.Context, ev *models.SecurityEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeSecurityLogRepo) hasEvent(name string) bool {
	for _, ev := range f.events {
		if ev.Event == name {
			return true
		}
	}
	return false
}

type fakeRepoManager struct {
	users      *fakeUsersRepo
	attempts   *fakeAttemptsRepo
	files      *fakeFilesRepo
	challenges *fakeChallengesRepo
	seclog     *fakeSecurityLogRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:      newFakeUsersRepo(),
		attempts:   &fakeAttemptsRepo{},
		files:      newFakeFilesRepo(),
		challenges: newFakeChallengesRepo(),
		seclog:     &fakeSecurityLogRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.users }
func (m *fakeRepoManager) LoginAttempts(db dbx.DBTX) attemptsrepo.Repository {
	return m.attempts
}
func (m *fakeRepoManager) Files(db dbx.DBTX) filesrepo.Repository { return m.files }
func (m *fakeRepoManager) Challenges(db dbx.DBTX) challengesrepo.Repository {
	return m.challenges
}
func (m *fakeRepoManager) SecurityLog(db dbx.DBTX) securitylogrepo.Repository {
	return m.seclog
}
