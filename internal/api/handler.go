// Package api provides HTTP handlers for the brain dump API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ashureev/braindump/internal/config"
	"github.com/ashureev/braindump/internal/domain"
	"github.com/ashureev/braindump/internal/identity"
	"github.com/go-chi/chi/v5"
)

// SessionSource reads live session state without creating sessions.
type SessionSource interface {
	Lookup(sessionID string) (domain.SessionState, bool)
	Len() int
}

// ExportLister reads archived exports.
type ExportLister interface {
	ListExports(ctx context.Context, sessionID string, limit int) ([]*domain.ExportRecord, error)
}

// Handler serves the session and config endpoints.
type Handler struct {
	sessions SessionSource
	archive  ExportLister
	cfg      *config.Config
}

// NewHandler creates a Handler. archive may be nil when archiving is off.
func NewHandler(sessions SessionSource, archive ExportLister, cfg *config.Config) *Handler {
	return &Handler{
		sessions: sessions,
		archive:  archive,
		cfg:      cfg,
	}
}

// RegisterRoutes registers the /api routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.GetConfig)
		r.Route("/sessions/{session_id}", func(r chi.Router) {
			r.Use(identity.Middleware)
			r.Get("/", h.GetSession)
			r.Get("/exports", h.ListExports)
		})
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]interface{}{
		"transcription_enabled": false,
		"completion_provider":   "",
	}
	if h.cfg != nil {
		resp["transcription_enabled"] = h.cfg.TranscriptionEnabled()
		resp["completion_provider"] = h.cfg.Model.CompletionProvider
		resp["max_audio_bytes"] = h.cfg.MaxAudioBytes
	}
	JSON(w, http.StatusOK, resp)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
