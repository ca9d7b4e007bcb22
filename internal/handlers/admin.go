package handlers

import (
	"errors"
	"net/http"

	"transport-register/internal/services"

	"github.com/rs/zerolog/log"
)

// AdminHandler handles coordinator login
type AdminHandler struct {
	authService *services.AuthService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService *services.AuthService) *AdminHandler {
	return &AdminHandler{
		authService: authService,
	}
}

// LoginRequest represents the request body for admin login
type LoginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/v1/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		respondError(w, "password is required", http.StatusBadRequest)
		return
	}

	token, err := h.authService.Login(req.Password)
	switch {
	case errors.Is(err, services.ErrLoginDisabled):
		respondError(w, err.Error(), http.StatusForbidden)
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		log.Warn().Str("remote_addr", r.RemoteAddr).Msg("Rejected admin login")
		respondError(w, "invalid credentials", http.StatusUnauthorized)
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to issue admin token")
		respondError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	log.Info().Str("remote_addr", r.RemoteAddr).Msg("Admin logged in")
	respondJSON(w, token, http.StatusOK)
}
