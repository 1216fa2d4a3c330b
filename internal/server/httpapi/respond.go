package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ecoctf/platform/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps the service error taxonomy onto HTTP status codes.
// Validation messages are safe by construction; everything else gets a
// fixed generic body so internals never leak.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrAuthentication), errors.Is(err, common.ErrInvalidToken):
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
	case errors.Is(err, common.ErrAuthorization):
		respondJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, common.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, common.ErrRateLimited):
		respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many attempts, try again later"})
	case errors.Is(err, common.ErrIntegrity):
		respondJSON(w, http.StatusConflict, errorResponse{Error: "file failed integrity verification"})
	default:
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
