package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ecoctf/platform/internal/server/models"
)

type challengePayload struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Flag          string     `json:"flag"`
	Points        int        `json:"points"`
	Hidden        bool       `json:"hidden"`
	AvailableFrom *time.Time `json:"available_from"`
}

type challengeResponse struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Flag          string     `json:"flag,omitempty"`
	Points        int        `json:"points"`
	Hidden        bool       `json:"hidden"`
	AvailableFrom *time.Time `json:"available_from,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toChallengeResponse(c *models.Challenge) *challengeResponse {
	return &challengeResponse{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Category:      c.Category,
		Flag:          c.Flag,
		Points:        c.Points,
		Hidden:        c.Hidden,
		AvailableFrom: c.AvailableFrom,
		CreatedAt:     c.CreatedAt,
	}
}

func (s *Server) handleChallengeList(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	list, err := s.challenges.List(r.Context(), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]*challengeResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toChallengeResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleChallengeGet(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	c, err := s.challenges.Get(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toChallengeResponse(c))
}

func (s *Server) handleChallengeCreate(w http.ResponseWriter, r *http.Request) {
	var req challengePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user := userFrom(r.Context())
	created, err := s.challenges.Create(r.Context(), &models.Challenge{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Flag:          req.Flag,
		Points:        req.Points,
		Hidden:        req.Hidden,
		AvailableFrom: req.AvailableFrom,
	}, user.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toChallengeResponse(created))
}

func (s *Server) handleChallengeUpdate(w http.ResponseWriter, r *http.Request) {
	var req challengePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user := userFrom(r.Context())
	err := s.challenges.Update(r.Context(), &models.Challenge{
		ID:            chi.URLParam(r, "id"),
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Flag:          req.Flag,
		Points:        req.Points,
		Hidden:        req.Hidden,
		AvailableFrom: req.AvailableFrom,
	}, user.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "challenge updated"})
}

func (s *Server) handleFlagSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Flag string `json:"flag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user := userFrom(r.Context())
	correct, err := s.challenges.SubmitFlag(r.Context(), chi.URLParam(r, "id"), user.ID, req.Flag)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"correct": correct})
}

func (s *Server) handleChallengeFiles(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	list, err := s.files.ListChallengeFiles(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]*fileResponse, 0, len(list))
	for _, f := range list {
		out = append(out, toFileResponse(f))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleScoreboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.challenges.Scoreboard(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	type row struct {
		Rank      int       `json:"rank"`
		TeamName  string    `json:"team_name"`
		Points    int       `json:"points"`
		LastSolve time.Time `json:"last_solve"`
	}
	out := make([]row, 0, len(entries))
	for i, e := range entries {
		out = append(out, row{Rank: i + 1, TeamName: e.TeamName, Points: e.Points, LastSolve: e.LastSolve})
	}
	respondJSON(w, http.StatusOK, out)
}
