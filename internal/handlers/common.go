package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"transport-register/internal/services"
	"transport-register/internal/validation"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

// respondJSON sends a JSON body with the given status
func respondJSON(w http.ResponseWriter, body any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// respondServiceError maps a service error to a status code. Anything the
// services do not classify came from the remote store.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		respondJSON(w, ErrorResponse{Error: "validation failed", Fields: verrs}, http.StatusBadRequest)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, "not found", http.StatusNotFound)
	case errors.Is(err, services.ErrExportDisabled):
		respondError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Failed to " + action)
		respondError(w, "remote call failed", http.StatusBadGateway)
	}
}

// decodeBody decodes a JSON request body, rejecting unknown fields
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// queryInt reads a positive integer query parameter, falling back to def
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
