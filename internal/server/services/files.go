package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ecoctf/platform/internal/common"
	"github.com/ecoctf/platform/internal/filex"
	"github.com/ecoctf/platform/internal/logging"
	"github.com/ecoctf/platform/internal/server/config"
	"github.com/ecoctf/platform/internal/server/models"
	"github.com/ecoctf/platform/internal/server/repositories/repomanager"
	"github.com/ecoctf/platform/internal/server/upload"
)

const (
	uploadDirMode  = os.FileMode(0o750)
	uploadFileMode = os.FileMode(0o644)
	secureNameRand = 8
	downloadKeyLen = 32
)

// UploadRequest carries one file through the ingestion pipeline.
type UploadRequest struct {
	Content      []byte
	Filename     string
	DeclaredSize int64
	ChallengeID  string
	Category     string
	UploadedBy   string
	UploadIP     string
	UserAgent    string
}

// DownloadResult is a verified attachment ready to stream to the caller.
type DownloadResult struct {
	Content      []byte
	OriginalName string
	MimeType     string
	Size         int64
}

// FileService runs the secure ingestion pipeline for challenge
// attachments: every upload passes size, name, type, content and archive
// gates before any byte reaches the storage root, and every download is
// re-verified against the recorded hash.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	authz       *AuthzService
	audit       *AuditService
	log         logging.Logger

	uploadPath     string
	quarantinePath string
	maxUploadSize  int64
}

// NewFileService constructs a FileService and makes sure both storage
// roots exist.
func NewFileService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	authz *AuthzService, audit *AuditService, log logging.Logger) (*FileService, error) {
	if err := filex.EnsureDir(cfg.UploadPath, uploadDirMode); err != nil {
		return nil, err
	}
	if err := filex.EnsureDir(cfg.QuarantinePath, uploadDirMode); err != nil {
		return nil, err
	}
	return &FileService{
		db:             db,
		repomanager:    m,
		authz:          authz,
		audit:          audit,
		log:            log,
		uploadPath:     cfg.UploadPath,
		quarantinePath: cfg.QuarantinePath,
		maxUploadSize:  cfg.MaxUploadSize,
	}, nil
}

// Upload runs the full gate sequence and stores the file with its
// metadata row. Any gate failure leaves no partial state behind.
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (*models.StoredFile, error) {
	if err := s.requireStaff(ctx, req.UploadedBy); err != nil {
		return nil, err
	}

	actualSize := int64(len(req.Content))
	if req.DeclaredSize > s.maxUploadSize || actualSize > s.maxUploadSize {
		return nil, fmt.Errorf("%w: file too large", common.ErrValidation)
	}
	if req.DeclaredSize != actualSize {
		return nil, fmt.Errorf("%w: declared size mismatch", common.ErrValidation)
	}
	if actualSize == 0 {
		return nil, fmt.Errorf("%w: empty file", common.ErrValidation)
	}
	if !upload.KnownCategory(req.Category) {
		return nil, fmt.Errorf("%w: unknown category", common.ErrValidation)
	}

	sanitized := upload.SanitizeFilename(req.Filename)
	if !upload.ExtensionAllowed(sanitized) {
		return nil, fmt.Errorf("%w: file type not allowed", common.ErrValidation)
	}

	mimeType := upload.DetectContentType(req.Content)
	if !upload.TypeAllowed(mimeType, req.Category) {
		return nil, fmt.Errorf("%w: content type not allowed", common.ErrValidation)
	}

	if reason := upload.Scan(req.Content); reason != "" {
		s.quarantineContent(ctx, req.Content, sanitized, reason, req.UploadedBy, req.UploadIP, req.UserAgent)
		return nil, fmt.Errorf("%w: file rejected", common.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if upload.IsZip(mimeType) {
		if err := upload.CheckArchive(req.Content); err != nil {
			return nil, err
		}
	}

	randHex, err := common.MakeRandHexString(secureNameRand)
	if err != nil {
		return nil, common.ErrInternal
	}
	downloadKey, err := common.MakeRandHexString(downloadKeyLen)
	if err != nil {
		return nil, common.ErrInternal
	}

	now := time.Now()
	secureName := upload.SecureFilename(sanitized, now, randHex)
	subDir := s.subDir(req.ChallengeID, now)
	targetDir := filepath.Join(s.uploadPath, subDir)
	if err := filex.EnsureDir(targetDir, uploadDirMode); err != nil {
		s.log.Error(ctx, "upload dir create failed", "dir", targetDir, "error", err)
		return nil, common.ErrInternal
	}

	targetPath := filepath.Join(targetDir, secureName)
	if err := os.WriteFile(targetPath, req.Content, uploadFileMode); err != nil {
		s.log.Error(ctx, "upload write failed", "path", targetPath, "error", err)
		return nil, common.ErrInternal
	}

	sum := sha256.Sum256(req.Content)
	stored := &models.StoredFile{
		ChallengeID:    req.ChallengeID,
		OriginalName:   sanitized,
		SecureFilename: secureName,
		FilePath:       filepath.Join(subDir, secureName),
		FileSize:       actualSize,
		FileHash:       hex.EncodeToString(sum[:]),
		MimeType:       mimeType,
		DownloadKey:    downloadKey,
		Category:       req.Category,
		UploadedBy:     req.UploadedBy,
		UploadIP:       req.UploadIP,
	}

	repo := s.repomanager.Files(s.db)
	created, err := repo.Create(ctx, stored)
	if err != nil {
		// no orphan bytes without a metadata row
		if rmErr := os.Remove(targetPath); rmErr != nil {
			s.log.Error(ctx, "orphan cleanup failed", "path", targetPath, "error", rmErr)
		}
		s.log.Error(ctx, "file metadata insert failed", "error", err)
		return nil, common.ErrInternal
	}

	s.audit.Record(ctx, models.EventFileUploaded, req.UploadedBy, req.UploadIP, req.UserAgent,
		map[string]any{
			"file_id":       created.ID,
			"original_name": sanitized,
			"file_size":     actualSize,
			"challenge_id":  req.ChallengeID,
		})

	return created, nil
}

// Download resolves a download key, enforces release gating and verifies
// on-disk content against the recorded hash before handing bytes out.
// A hash mismatch quarantines the file and fails with an integrity error.
func (s *FileService) Download(ctx context.Context, downloadKey, requesterID, ip, userAgent string) (*DownloadResult, error) {
	repo := s.repomanager.Files(s.db)
	f, err := repo.GetByDownloadKey(ctx, downloadKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}

	if f.ChallengeID != "" {
		if err := s.checkChallengeRelease(ctx, f.ChallengeID, requesterID); err != nil {
			return nil, err
		}
	}

	fullPath := filepath.Join(s.uploadPath, f.FilePath)
	content, err := os.ReadFile(fullPath)
	if err != nil {
		s.log.Error(ctx, "stored file unreadable", "file_id", f.ID, "error", err)
		return nil, common.ErrNotFound
	}

	sum := sha256.Sum256(content)
	if hex.EncodeToString(sum[:]) != f.FileHash {
		s.quarantineContent(ctx, content, f.SecureFilename, "integrity_check_failed", requesterID, ip, userAgent)
		return nil, common.ErrIntegrity
	}

	if err := repo.RecordDownload(ctx, f.ID, time.Now()); err != nil {
		s.log.Warn(ctx, "download counter update failed", "file_id", f.ID, "error", err)
	}
	s.audit.Record(ctx, models.EventFileDownloaded, requesterID, ip, userAgent,
		map[string]any{"file_id": f.ID, "challenge_id": f.ChallengeID})

	return &DownloadResult{
		Content:      content,
		OriginalName: f.OriginalName,
		MimeType:     f.MimeType,
		Size:         f.FileSize,
	}, nil
}

// Delete removes a file for good: the bytes are overwritten with random
// data before the unlink so the content cannot be recovered from disk.
// Moderator role required.
func (s *FileService) Delete(ctx context.Context, fileID, requesterID, ip, userAgent string) error {
	if err := s.requireStaff(ctx, requesterID); err != nil {
		return err
	}

	repo := s.repomanager.Files(s.db)
	f, err := repo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return common.ErrInternal
	}

	fullPath := filepath.Join(s.uploadPath, f.FilePath)
	if filex.Exists(fullPath) {
		if err := secureDelete(fullPath); err != nil {
			s.log.Error(ctx, "secure delete failed", "file_id", f.ID, "error", err)
			return common.ErrInternal
		}
	}

	if err := repo.Delete(ctx, f.ID); err != nil {
		s.log.Error(ctx, "file row delete failed", "file_id", f.ID, "error", err)
		return common.ErrInternal
	}

	s.audit.Record(ctx, models.EventFileDeleted, requesterID, ip, userAgent,
		map[string]any{"file_id": f.ID, "original_name": f.OriginalName})
	return nil
}

// ListChallengeFiles returns the attachments of one challenge, subject to
// the same release gating as Download.
func (s *FileService) ListChallengeFiles(ctx context.Context, challengeID, requesterID string) ([]*models.StoredFile, error) {
	if err := s.checkChallengeRelease(ctx, challengeID, requesterID); err != nil {
		return nil, err
	}

	repo := s.repomanager.Files(s.db)
	list, err := repo.ListByChallenge(ctx, challengeID)
	if err != nil {
		s.log.Error(ctx, "file list failed", "challenge_id", challengeID, "error", err)
		return nil, common.ErrInternal
	}
	return list, nil
}

// --- helpers below ---

func (s *FileService) requireStaff(ctx context.Context, requesterID string) error {
	staff, err := s.authz.HasPermission(ctx, requesterID, models.RoleModerator)
	if err != nil {
		return common.ErrInternal
	}
	if !staff {
		return common.ErrAuthorization
	}
	return nil
}

func (s *FileService) checkChallengeRelease(ctx context.Context, challengeID, requesterID string) error {
	repo := s.repomanager.Challenges(s.db)
	c, err := repo.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return common.ErrInternal
	}
	if c.Available(time.Now()) {
		return nil
	}

	staff, err := s.authz.HasPermission(ctx, requesterID, models.RoleModerator)
	if err != nil {
		return common.ErrInternal
	}
	if !staff {
		return common.ErrNotFound
	}
	return nil
}

func (s *FileService) subDir(challengeID string, now time.Time) string {
	if challengeID != "" {
		return "challenge_" + challengeID
	}
	return filepath.Join(now.Format("2006"), now.Format("01"))
}

// quarantineContent copies rejected bytes into the quarantine root for
// later inspection and records the event. Quarantine failures are logged
// only; the rejection itself already protects the storage root.
func (s *FileService) quarantineContent(ctx context.Context, content []byte, name, reason, userID, ip, userAgent string) {
	qName := fmt.Sprintf("%s_%d", filepath.Base(name), time.Now().Unix())
	qPath := filepath.Join(s.quarantinePath, qName)
	if err := os.WriteFile(qPath, content, 0o600); err != nil {
		s.log.Error(ctx, "quarantine write failed", "path", qPath, "error", err)
		qPath = ""
	}

	s.audit.Record(ctx, models.EventFileQuarantined, userID, ip, userAgent,
		map[string]any{
			"original_name":   name,
			"quarantine_path": qPath,
			"reason":          reason,
		})
}

// secureDelete overwrites the file with random bytes and syncs before
// removing it.
func secureDelete(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	fd, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if _, err := fd.Write(common.GenerateRandByteArray(int(info.Size()))); err != nil {
		fd.Close()
		return err
	}
	if err := fd.Sync(); err != nil {
		fd.Close()
		return err
	}
	if err := fd.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}
