package services

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/ecoctf/platform/internal/logging"
	"github.com/ecoctf/platform/internal/server/models"
	"github.com/ecoctf/platform/internal/server/repositories/repomanager"
)

// AuditService appends rows to the security audit trail. Recording is
// best-effort: a failed insert is logged and never fails the operation
// being audited.
type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *AuditService {
	return &AuditService{db: db, repomanager: m, log: log}
}

// Record writes one security event. The detail map is stored as JSON and
// is the only place specific failure causes are allowed to appear.
func (s *AuditService) Record(ctx context.Context, event, userID, ip, userAgent string, detail map[string]any) {
	var payload []byte
	if len(detail) > 0 {
		b, err := json.Marshal(detail)
		if err != nil {
			s.log.Warn(ctx, "audit detail not serializable", "event", event, "error", err)
		} else {
			payload = b
		}
	}

	repo := s.repomanager.SecurityLog(s.db)
	ev := &models.SecurityEvent{
		Event:     event,
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		Detail:    payload,
	}
	if err := repo.Insert(ctx, ev); err != nil {
		s.log.Warn(ctx, "audit insert failed", "event", event, "error", err)
		return
	}
	s.log.Debug(ctx, "security event recorded", "event", event, "user_id", userID)
}
