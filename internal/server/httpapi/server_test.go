package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoctf/platform/internal/common"
	"github.com/ecoctf/platform/internal/logging"
	"github.com/ecoctf/platform/internal/server/models"
	"github.com/ecoctf/platform/internal/server/services"
)

// --- fakes ---

type fakeAuthAPI struct {
	user     *models.User
	loginErr error
	regErr   error
}

func (f *fakeAuthAPI) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "good-token" && f.user != nil {
		return f.user, nil
	}
	return nil, common.ErrAuthentication
}

func (f *fakeAuthAPI) Register(ctx context.Context, req services.RegisterRequest) (*services.RegisterResult, error) {
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &services.RegisterResult{UserID: "new-id", VerificationToken: "tok"}, nil
}

func (f *fakeAuthAPI) Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.LoginResult{Token: "jwt", ExpiresAt: time.Now().Add(time.Hour), User: f.user}, nil
}

func (f *fakeAuthAPI) Setup2FA(ctx context.Context, userID, ip, ua string) (string, string, error) {
	return "SECRET", "otpauth://totp/x", nil
}

func (f *fakeAuthAPI) Verify2FA(ctx context.Context, userID, code, ip, ua string) error {
	if code != "123456" {
		return common.ErrAuthentication
	}
	return nil
}

func (f *fakeAuthAPI) RequestPasswordReset(ctx context.Context, email, ip, ua string) (string, error) {
	return "", nil
}

func (f *fakeAuthAPI) ResetPassword(ctx context.Context, token, newPassword, ip, ua string) error {
	if token != "good-reset" {
		return common.ErrInvalidToken
	}
	return nil
}

type fakeChallengeAPI struct {
	list      []*models.Challenge
	submitOK  bool
	submitErr error
	board     []*models.ScoreboardEntry
}

func (f *fakeChallengeAPI) List(ctx context.Context, requesterID string) ([]*models.Challenge, error) {
	return f.list, nil
}

func (f *fakeChallengeAPI) Get(ctx context.Context, id, requesterID string) (*models.Challenge, error) {
	for _, c := range f.list {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeChallengeAPI) Create(ctx context.Context, c *models.Challenge, requesterID string) (*models.Challenge, error) {
	out := *c
	out.ID = "chal-id"
	return &out, nil
}

func (f *fakeChallengeAPI) Update(ctx context.Context, c *models.Challenge, requesterID string) error {
	return nil
}

func (f *fakeChallengeAPI) SubmitFlag(ctx context.Context, challengeID, userID, flag string) (bool, error) {
	return f.submitOK, f.submitErr
}

func (f *fakeChallengeAPI) Scoreboard(ctx context.Context) ([]*models.ScoreboardEntry, error) {
	return f.board, nil
}

type fakeFileAPI struct {
	uploaded  *services.UploadRequest
	stored    *models.StoredFile
	download  *services.DownloadResult
	deleteErr error
}

func (f *fakeFileAPI) Upload(ctx context.Context, req services.UploadRequest) (*models.StoredFile, error) {
	f.uploaded = &req
	return f.stored, nil
}

func (f *fakeFileAPI) Download(ctx context.Context, key, requesterID, ip, ua string) (*services.DownloadResult, error) {
	if f.download == nil {
		return nil, common.ErrNotFound
	}
	return f.download, nil
}

func (f *fakeFileAPI) Delete(ctx context.Context, fileID, requesterID, ip, ua string) error {
	return f.deleteErr
}

func (f *fakeFileAPI) ListChallengeFiles(ctx context.Context, challengeID, requesterID string) ([]*models.StoredFile, error) {
	return nil, nil
}

func newTestServer(auth *fakeAuthAPI, ch *fakeChallengeAPI, files *fakeFileAPI) *Server {
	if auth == nil {
		auth = &fakeAuthAPI{}
	}
	if ch == nil {
		ch = &fakeChallengeAPI{}
	}
	if files == nil {
		files = &fakeFileAPI{}
	}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewServer(":0", 1024*1024, log, auth, ch, files)
}

func testUser() *models.User {
	return &models.User{ID: "u1", Email: "a@b.cd", TeamName: "Team", Role: models.RoleUser, Enabled: true}
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- tests ---

func TestRegisterEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil, nil)
	h := srv.Router()

	rr := doJSON(t, h, http.MethodPost, "/api/auth/register", "",
		map[string]string{"email": "a@b.cd", "password": "Sup3r$ecret", "team_name": "Team"})
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "new-id")
	assert.Contains(t, rr.Body.String(), `"verification_token":"tok"`)
}

func TestRegisterEndpoint_ValidationError(t *testing.T) {
	auth := &fakeAuthAPI{regErr: common.ErrValidation}
	srv := newTestServer(auth, nil, nil)

	rr := doJSON(t, srv.Router(), http.MethodPost, "/api/auth/register", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginEndpoint(t *testing.T) {
	auth := &fakeAuthAPI{user: testUser()}
	srv := newTestServer(auth, nil, nil)

	rr := doJSON(t, srv.Router(), http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": "a@b.cd", "password": "x"})
	require.Equal(t, http.StatusOK, rr.Code)

	var res loginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "jwt", res.Token)
	assert.Equal(t, "u1", res.User.ID)
}

func TestLoginEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"bad credentials", common.ErrAuthentication, http.StatusUnauthorized},
		{"rate limited", common.ErrRateLimited, http.StatusTooManyRequests},
		{"internal", common.ErrInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&fakeAuthAPI{loginErr: tc.err}, nil, nil)
			rr := doJSON(t, srv.Router(), http.MethodPost, "/api/auth/login", "",
				map[string]string{"email": "a@b.cd", "password": "x"})
			assert.Equal(t, tc.code, rr.Code)
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	auth := &fakeAuthAPI{user: testUser()}
	srv := newTestServer(auth, nil, nil)
	h := srv.Router()

	rr := doJSON(t, h, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/auth/me", "bad-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/auth/me", "good-token", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var res userResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "u1", res.ID)
	assert.Equal(t, "user", res.Role)
}

func TestChallengeListEndpoint_FlagOmittedWhenBlank(t *testing.T) {
	auth := &fakeAuthAPI{user: testUser()}
	ch := &fakeChallengeAPI{list: []*models.Challenge{
		{ID: "c1", Title: "Open", Points: 100}, // flag already blanked by the service
	}}
	srv := newTestServer(auth, ch, nil)

	rr := doJSON(t, srv.Router(), http.MethodGet, "/api/challenges", "good-token", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), `"flag"`)
}

func TestFlagSubmitEndpoint(t *testing.T) {
	auth := &fakeAuthAPI{user: testUser()}
	ch := &fakeChallengeAPI{submitOK: true}
	srv := newTestServer(auth, ch, nil)

	rr := doJSON(t, srv.Router(), http.MethodPost, "/api/challenges/c1/submit", "good-token",
		map[string]string{"flag": "eco{x}"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"correct":true`)
}

func TestFileUploadEndpoint(t *testing.T) {
	auth := &fakeAuthAPI{user: testUser()}
	files := &fakeFileAPI{stored: &models.StoredFile{ID: "file-id", OriginalName: "notes.txt", DownloadKey: "key"}}
	srv := newTestServer(auth, nil, files)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("category", models.CategoryDocument))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer good-token")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, files.uploaded)
	assert.Equal(t, "notes.txt", files.uploaded.Filename)
	assert.Equal(t, int64(5), files.uploaded.DeclaredSize)
	assert.Equal(t, models.CategoryDocument, files.uploaded.Category)
	assert.Equal(t, "u1", files.uploaded.UploadedBy)
	// the forwarded client address reaches the audit trail without any
	// RemoteAddr-rewriting middleware in the chain
	assert.Equal(t, "203.0.113.7", files.uploaded.UploadIP)
}

func TestFileDownloadEndpoint(t *testing.T) {
	auth := &fakeAuthAPI{user: testUser()}
	files := &fakeFileAPI{download: &services.DownloadResult{
		Content:      []byte("payload"),
		OriginalName: "notes.txt",
		MimeType:     "text/plain",
		Size:         7,
	}}
	srv := newTestServer(auth, nil, files)

	rr := doJSON(t, srv.Router(), http.MethodGet, "/api/files/somekey", "good-token", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="notes.txt"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "payload", rr.Body.String())
}

func TestFileDownloadEndpoint_Integrity(t *testing.T) {
	auth := &fakeAuthAPI{user: testUser()}
	files := &fakeFileAPI{}
	srv := newTestServer(auth, nil, files)

	rr := doJSON(t, srv.Router(), http.MethodGet, "/api/files/missing", "good-token", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFileDeleteEndpoint_Forbidden(t *testing.T) {
	auth := &fakeAuthAPI{user: testUser()}
	files := &fakeFileAPI{deleteErr: common.ErrAuthorization}
	srv := newTestServer(auth, nil, files)

	rr := doJSON(t, srv.Router(), http.MethodDelete, "/api/files/f1", "good-token", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestScoreboardEndpoint_Public(t *testing.T) {
	ch := &fakeChallengeAPI{board: []*models.ScoreboardEntry{
		{TeamName: "Alpha", Points: 500, LastSolve: time.Now()},
	}}
	srv := newTestServer(nil, ch, nil)

	rr := doJSON(t, srv.Router(), http.MethodGet, "/api/scoreboard", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"rank":1`)
	assert.Contains(t, rr.Body.String(), "Alpha")
}

func TestResetPasswordEndpoint_BadToken(t *testing.T) {
	srv := newTestServer(&fakeAuthAPI{}, nil, nil)

	rr := doJSON(t, srv.Router(), http.MethodPost, "/api/auth/reset-password", "",
		map[string]string{"token": "wrong", "password": "N3w$ecret!"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestForgotPasswordEndpoint_AlwaysGeneric(t *testing.T) {
	srv := newTestServer(&fakeAuthAPI{}, nil, nil)

	rr := doJSON(t, srv.Router(), http.MethodPost, "/api/auth/forgot-password", "",
		map[string]string{"email": "ghost@b.cd"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "if the address is registered"))
}
