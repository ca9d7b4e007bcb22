package handlers

import (
	"net/http"
	"strconv"

	"transport-register/internal/export"
	"transport-register/internal/middleware"
	"transport-register/internal/models"
	"transport-register/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// RegistrationHandler handles registration-related HTTP requests
type RegistrationHandler struct {
	registrationService *services.RegistrationService
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(registrationService *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
	}
}

// ListRegistrations handles GET /api/v1/registrations
func (h *RegistrationHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	opts := services.ListOptions{
		Page: queryInt(r, "page", 1),
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			respondError(w, "page_size must be a positive integer", http.StatusBadRequest)
			return
		}
		opts.PageSize = size
	}
	if raw := r.URL.Query().Get("recent"); raw != "" {
		recent, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, "recent must be true or false", http.StatusBadRequest)
			return
		}
		opts.RecentOnly = recent
	}

	page, err := h.registrationService.List(r.Context(), opts)
	if err != nil {
		respondServiceError(w, r, err, "list registrations")
		return
	}

	respondJSON(w, page, http.StatusOK)
}

// CreateRegistration handles POST /api/v1/registrations
func (h *RegistrationHandler) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationFields
	if err := decodeBody(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	reg, err := h.registrationService.Submit(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "create registration")
		return
	}

	log.Info().
		Str("registration_id", reg.ID).
		Int("to_church", reg.WorshippersToChurch).
		Msg("Registration created")

	respondJSON(w, reg, http.StatusCreated)
}

// SignOut handles PATCH /api/v1/registrations/{id}/sign-out
func (h *RegistrationHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.SignOutFields
	if err := decodeBody(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	reg, err := h.registrationService.SignOut(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, r, err, "sign out registration")
		return
	}

	log.Info().
		Str("registration_id", reg.ID).
		Int("from_church", reg.WorshippersFromChurch).
		Msg("Registration signed out")

	respondJSON(w, reg, http.StatusOK)
}

// DeleteRegistration handles DELETE /api/v1/registrations/{id}
func (h *RegistrationHandler) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.registrationService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, err, "delete registration")
		return
	}

	log.Info().
		Str("registration_id", id).
		Str("admin", middleware.GetSubject(r.Context())).
		Msg("Registration deleted")
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/v1/registrations/export
func (h *RegistrationHandler) Export(w http.ResponseWriter, r *http.Request) {
	res, err := h.registrationService.Export(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "export registrations")
		return
	}

	log.Info().
		Str("sink", res.Sink).
		Int("rows", res.Rows).
		Str("admin", middleware.GetSubject(r.Context())).
		Msg("Registrations exported")

	respondJSON(w, res, http.StatusOK)
}

// ExportCSV handles GET /api/v1/registrations/export.csv
func (h *RegistrationHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrationService.All(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "load registrations for CSV")
		return
	}

	body, err := export.BuildCSV(regs)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build CSV")
		respondError(w, "Failed to build CSV", http.StatusInternalServerError)
		return
	}

	log.Info().
		Int("rows", len(regs)).
		Str("admin", middleware.GetSubject(r.Context())).
		Msg("Registrations downloaded as CSV")

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="registrations.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
