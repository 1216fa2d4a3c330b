package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ecoctf/platform/internal/httpx"
	"github.com/ecoctf/platform/internal/server/models"
	"github.com/ecoctf/platform/internal/server/services"
)

type fileResponse struct {
	ID            string    `json:"id"`
	ChallengeID   string    `json:"challenge_id,omitempty"`
	OriginalName  string    `json:"original_name"`
	FileSize      int64     `json:"file_size"`
	MimeType      string    `json:"mime_type"`
	DownloadKey   string    `json:"download_key"`
	Category      string    `json:"category"`
	DownloadCount int64     `json:"download_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func toFileResponse(f *models.StoredFile) *fileResponse {
	return &fileResponse{
		ID:            f.ID,
		ChallengeID:   f.ChallengeID,
		OriginalName:  f.OriginalName,
		FileSize:      f.FileSize,
		MimeType:      f.MimeType,
		DownloadKey:   f.DownloadKey,
		Category:      f.Category,
		DownloadCount: f.DownloadCount,
		CreatedAt:     f.CreatedAt,
	}
}

// handleFileUpload accepts one multipart file under the "file" field with
// optional "challenge_id" and "category" fields.
func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	// slack for the multipart framing around the payload itself
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart request"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file field"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable file"})
		return
	}

	category := r.FormValue("category")
	if category == "" {
		category = models.CategoryChallenge
	}

	user := userFrom(r.Context())
	stored, err := s.files.Upload(r.Context(), services.UploadRequest{
		Content:      content,
		Filename:     header.Filename,
		DeclaredSize: header.Size,
		ChallengeID:  r.FormValue("challenge_id"),
		Category:     category,
		UploadedBy:   user.ID,
		UploadIP:     httpx.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toFileResponse(stored))
}

func (s *Server) handleFileDownload(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	res, err := s.files.Download(r.Context(), chi.URLParam(r, "downloadKey"),
		user.ID, httpx.ClientIP(r), r.UserAgent())
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", res.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(res.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.OriginalName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Content)
}

func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	err := s.files.Delete(r.Context(), chi.URLParam(r, "id"),
		user.ID, httpx.ClientIP(r), r.UserAgent())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "file deleted"})
}
