package repomanager

import (
	"context"
	"database/sql"

	"github.com/ecoctf/platform/internal/dbx"
	"github.com/ecoctf/platform/internal/server/repositories/challenges"
	"github.com/ecoctf/platform/internal/server/repositories/files"
	"github.com/ecoctf/platform/internal/server/repositories/loginattempts"
	"github.com/ecoctf/platform/internal/server/repositories/securitylog"
	"github.com/ecoctf/platform/internal/server/repositories/users"
)

// RepositoryManager vends per-table repositories bound to a DBTX, so the
// same repository code runs against *sql.DB and inside transactions.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	LoginAttempts(db dbx.DBTX) loginattempts.Repository
	Files(db dbx.DBTX) files.Repository
	Challenges(db dbx.DBTX) challenges.Repository
	SecurityLog(db dbx.DBTX) securitylog.Repository
}
