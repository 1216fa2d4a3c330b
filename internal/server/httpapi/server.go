// Package httpapi is the HTTP transport shim over the service layer: a
// chi router, bearer-token authentication, per-IP throttling and JSON
// request/response glue. No business rules live here.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/ecoctf/platform/internal/logging"
	"github.com/ecoctf/platform/internal/server/models"
	"github.com/ecoctf/platform/internal/server/services"
)

// AuthAPI is the slice of the auth service the transport needs.
type AuthAPI interface {
	Authenticator
	Register(ctx context.Context, req services.RegisterRequest) (*services.RegisterResult, error)
	Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
	Setup2FA(ctx context.Context, userID, ip, userAgent string) (secret, uri string, err error)
	Verify2FA(ctx context.Context, userID, code, ip, userAgent string) error
	RequestPasswordReset(ctx context.Context, email, ip, userAgent string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword, ip, userAgent string) error
}

// ChallengeAPI is the slice of the challenge service the transport needs.
type ChallengeAPI interface {
	List(ctx context.Context, requesterID string) ([]*models.Challenge, error)
	Get(ctx context.Context, id, requesterID string) (*models.Challenge, error)
	Create(ctx context.Context, c *models.Challenge, requesterID string) (*models.Challenge, error)
	Update(ctx context.Context, c *models.Challenge, requesterID string) error
	SubmitFlag(ctx context.Context, challengeID, userID, flag string) (bool, error)
	Scoreboard(ctx context.Context) ([]*models.ScoreboardEntry, error)
}

// FileAPI is the slice of the file service the transport needs.
type FileAPI interface {
	Upload(ctx context.Context, req services.UploadRequest) (*models.StoredFile, error)
	Download(ctx context.Context, downloadKey, requesterID, ip, userAgent string) (*services.DownloadResult, error)
	Delete(ctx context.Context, fileID, requesterID, ip, userAgent string) error
	ListChallengeFiles(ctx context.Context, challengeID, requesterID string) ([]*models.StoredFile, error)
}

// Server serves the public HTTP API.
type Server struct {
	addr          string
	maxUploadSize int64
	log           logging.Logger

	auth       AuthAPI
	challenges ChallengeAPI
	files      FileAPI
}

// NewServer constructs a Server around the given services.
func NewServer(addr string, maxUploadSize int64, log logging.Logger,
	auth AuthAPI, challenges ChallengeAPI, files FileAPI) *Server {
	return &Server{
		addr:          addr,
		maxUploadSize: maxUploadSize,
		log:           log,
		auth:          auth,
		challenges:    challenges,
		files:         files,
	}
}

// Router builds the chi routing tree. Auth endpoints sit behind a strict
// per-IP limiter on top of the global one.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// No RealIP middleware: the limiter must key on the socket address,
	// not client-supplied forwarded headers. The audit trail resolves the
	// forwarded address itself via httpx.ClientIP.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(httprate.LimitByIP(100, time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(10, time.Minute))
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)
			r.Post("/auth/forgot-password", s.handleForgotPassword)
			r.Post("/auth/reset-password", s.handleResetPassword)
		})

		r.Get("/scoreboard", s.handleScoreboard)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(s.auth))

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/2fa/setup", s.handle2FASetup)
			r.Post("/auth/2fa/verify", s.handle2FAVerify)

			r.Get("/challenges", s.handleChallengeList)
			r.Post("/challenges", s.handleChallengeCreate)
			r.Get("/challenges/{id}", s.handleChallengeGet)
			r.Put("/challenges/{id}", s.handleChallengeUpdate)
			r.Post("/challenges/{id}/submit", s.handleFlagSubmit)
			r.Get("/challenges/{id}/files", s.handleChallengeFiles)

			r.Post("/files", s.handleFileUpload)
			r.Get("/files/{downloadKey}", s.handleFileDownload)
			r.Delete("/files/{id}", s.handleFileDelete)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info(ctx, "http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
