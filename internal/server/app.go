// Package server initializes and runs the platform server: it opens the
// database, runs migrations, wires repositories into services and serves
// the HTTP API until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ecoctf/platform/internal/logging"
	"github.com/ecoctf/platform/internal/server/config"
	"github.com/ecoctf/platform/internal/server/httpapi"
	"github.com/ecoctf/platform/internal/server/repositories/repomanager"
	"github.com/ecoctf/platform/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	audit := services.NewAuditService(db, rm, logger)
	authz := services.NewAuthzService(db, rm)
	authService := services.NewAuthService(db, rm, c, audit, logger)
	challengeService := services.NewChallengeService(db, rm, authz, logger)
	fileService, err := services.NewFileService(db, rm, c, authz, audit, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	srv := httpapi.NewServer(c.EndpointAddrHTTP, c.MaxUploadSize, logger,
		authService, challengeService, fileService)

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server error", "error", err)
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
