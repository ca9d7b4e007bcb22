package handlers

import (
	"net/http"

	"transport-register/internal/middleware"
	"transport-register/internal/models"
	"transport-register/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// WalletHandler handles wallet-address HTTP requests
type WalletHandler struct {
	walletService *services.WalletService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// CreateWallet handles POST /api/v1/wallets
func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req models.WalletFields
	if err := decodeBody(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	wallet, err := h.walletService.Submit(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "store wallet address")
		return
	}

	respondJSON(w, wallet, http.StatusCreated)
}

// ListWallets handles GET /api/v1/wallets
func (h *WalletHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.walletService.List(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "list wallet addresses")
		return
	}

	respondJSON(w, map[string]any{
		"wallets": wallets,
		"total":   len(wallets),
	}, http.StatusOK)
}

// DeleteWallet handles DELETE /api/v1/wallets/{id}
func (h *WalletHandler) DeleteWallet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.walletService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, err, "delete wallet address")
		return
	}

	log.Info().
		Str("wallet_id", id).
		Str("admin", middleware.GetSubject(r.Context())).
		Msg("Wallet address deleted")
	w.WriteHeader(http.StatusNoContent)
}
