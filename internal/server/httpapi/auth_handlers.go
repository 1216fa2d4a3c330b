package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ecoctf/platform/internal/httpx"
	"github.com/ecoctf/platform/internal/server/models"
	"github.com/ecoctf/platform/internal/server/services"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	TeamName    string `json:"team_name"`
	CountryCode string `json:"country_code"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	TOTPCode   string `json:"totp_code"`
	RememberMe bool   `json:"remember_me"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *userResponse `json:"user"`
}

type userResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	TeamName         string `json:"team_name"`
	CountryCode      string `json:"country_code,omitempty"`
	Role             string `json:"role"`
	Competing        bool   `json:"competing"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
}

func toUserResponse(u *models.User) *userResponse {
	return &userResponse{
		ID:               u.ID,
		Email:            u.Email,
		TeamName:         u.TeamName,
		CountryCode:      u.CountryCode,
		Role:             u.Role.String(),
		Competing:        u.Competing,
		TwoFactorEnabled: u.Requires2FA(),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := s.auth.Register(r.Context(), services.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		TeamName:    req.TeamName,
		CountryCode: req.CountryCode,
		IP:          httpx.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"user_id":            res.UserID,
		"verification_token": res.VerificationToken,
		"message":            "registration successful",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := s.auth.Login(r.Context(), services.LoginRequest{
		Email:      req.Email,
		Password:   req.Password,
		TOTPCode:   req.TOTPCode,
		RememberMe: req.RememberMe,
		IP:         httpx.ClientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      toUserResponse(res.User),
	})
}

// handleLogout acknowledges the logout; tokens are stateless, the client
// discards its copy.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toUserResponse(userFrom(r.Context())))
}

func (s *Server) handle2FASetup(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	secret, uri, err := s.auth.Setup2FA(r.Context(), user.ID, httpx.ClientIP(r), r.UserAgent())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"secret":           secret,
		"provisioning_uri": uri,
	})
}

func (s *Server) handle2FAVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user := userFrom(r.Context())
	if err := s.auth.Verify2FA(r.Context(), user.ID, req.Code, httpx.ClientIP(r), r.UserAgent()); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "2fa verified"})
}

// handleForgotPassword always answers the same way so the endpoint cannot
// be used to probe for registered emails.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if _, err := s.auth.RequestPasswordReset(r.Context(), req.Email, httpx.ClientIP(r), r.UserAgent()); err != nil {
		s.log.Error(r.Context(), "password reset request failed", "error", err)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "if the address is registered, a reset link has been sent",
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.auth.ResetPassword(r.Context(), req.Token, req.Password, httpx.ClientIP(r), r.UserAgent()); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
