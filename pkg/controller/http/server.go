package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"

	"github.com/civicpulse/pulse/pkg/cli/config"
	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/civicpulse/pulse/pkg/service/broadcast"
)

// Server represents the HTTP server
type Server struct {
	*http.Server
	router chi.Router
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	addr string,
	registry *model.IssueRegistry,
	voteUC interfaces.Vote,
	archiveUC interfaces.Archive,
	analyticsUC interfaces.Analytics,
	hub *broadcast.Hub,
	authConfig *config.Auth,
) (*Server, error) {
	router := chi.NewRouter()
	authMiddleware := NewMiddleware(authConfig)

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	pollHandler := NewPollHandler(voteUC, registry)
	analyticsHandler := NewAnalyticsHandler(analyticsUC)
	adminHandler := NewAdminHandler(archiveUC)

	// Health check
	router.Get("/health", handleHealth)

	// API routes
	router.Route("/api", func(r chi.Router) {
		r.Post("/vote", pollHandler.HandleVote)
		r.Post("/vote/status", pollHandler.HandleVoteStatus)
		r.Get("/results", pollHandler.HandleResults)
		r.Get("/analytics", analyticsHandler.HandleAnalytics)

		// Operator routes (protected)
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware.RequireOperator)
			r.Post("/reset-week", adminHandler.HandleResetWeek)
			r.Get("/export/{year}/{month}", analyticsHandler.HandleMonthlyExport)
		})
	})

	// Live results stream
	router.Get("/ws/results", hub.HandleWS)

	server := &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router: router,
	}

	return server, nil
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "pulse",
	})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode response", "error", err)
	}
}

// handleError maps domain errors onto HTTP statuses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	logger := ctxlog.From(r.Context())

	switch {
	case errors.Is(err, model.ErrInvalidVote), errors.Is(err, model.ErrInvalidWeekID):
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, model.ErrVoteConflict):
		writeJSON(w, r, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, model.ErrNoArchivedWeeks), errors.Is(err, model.ErrAnalyticsNotFound):
		writeJSON(w, r, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		logger.Error("Request failed", "error", err)
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
