package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sveitser/node-telemetry/internal/state"
)

// Handler holds the dependencies for API handlers
type Handler struct {
	State      *state.State
	Logger     *zap.Logger
	AdminToken string
}

// NewHandler creates a new Handler instance
func NewHandler(st *state.State, logger *zap.Logger, adminToken string) *Handler {
	return &Handler{
		State:      st,
		Logger:     logger,
		AdminToken: adminToken,
	}
}

// NewRouter creates and configures the HTTP router with all API routes
func (h *Handler) NewRouter() *mux.Router {
	r := mux.NewRouter()

	// Public health check endpoint
	r.HandleFunc("/api/health", h.HandleHealth).Methods(http.MethodGet)

	// Public read surface over the shared state
	r.HandleFunc("/api/blocks", h.HandleBlocksList).Methods(http.MethodGet)
	r.HandleFunc("/api/voters", h.HandleVotersList).Methods(http.MethodGet)
	r.HandleFunc("/api/stake-table", h.HandleStakeTable).Methods(http.MethodGet)
	r.HandleFunc("/api/nodes", h.HandleNodesList).Methods(http.MethodGet)

	// Protected collaborator mutation endpoints
	r.HandleFunc("/api/nodes", h.RequireAuth(h.HandleNodeRegister)).Methods(http.MethodPost)
	r.HandleFunc("/api/stake-table", h.RequireAuth(h.HandleStakeTableReplace)).Methods(http.MethodPut)

	return r
}

// RequireAuth is a middleware that validates the bearer token
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		expected := "Bearer " + h.AdminToken

		if auth != expected {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}

		next(w, r)
	}
}

// HandleHealth returns a simple health check response
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
