// Package securitylog persists the append-only security audit trail.
package securitylog

import (
	"context"

	"github.com/ecoctf/platform/internal/server/models"
)

// Repository appends security events. There are no read paths in the
// server; the table is queried out-of-band by operators.
type Repository interface {
	Insert(ctx context.Context, ev *models.SecurityEvent) error
}
