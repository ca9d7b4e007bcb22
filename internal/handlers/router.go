package handlers

import (
	"net/http"

	"transport-register/internal/middleware"
	"transport-register/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterDeps are the services exposed over HTTP
type RouterDeps struct {
	Registrations *services.RegistrationService
	Wallets       *services.WalletService
	Auth          *services.AuthService
	Hub           *services.WSHub
	Metrics       http.Handler
}

// NewRouter builds the chi router with every route of the API
func NewRouter(deps RouterDeps) chi.Router {
	registrationHandler := NewRegistrationHandler(deps.Registrations)
	walletHandler := NewWalletHandler(deps.Wallets)
	adminHandler := NewAdminHandler(deps.Auth)
	wsHandler := NewWebSocketHandler(deps.Hub)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/registrations", registrationHandler.ListRegistrations)
		r.Post("/registrations", registrationHandler.CreateRegistration)
		r.Patch("/registrations/{id}/sign-out", registrationHandler.SignOut)
		r.Post("/wallets", walletHandler.CreateWallet)
		r.Post("/admin/login", adminHandler.Login)

		// Coordinator routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminOnly(deps.Auth))
			r.Get("/registrations/export", registrationHandler.Export)
			r.Get("/registrations/export.csv", registrationHandler.ExportCSV)
			r.Delete("/registrations/{id}", registrationHandler.DeleteRegistration)
			r.Get("/wallets", walletHandler.ListWallets)
			r.Delete("/wallets/{id}", walletHandler.DeleteWallet)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
