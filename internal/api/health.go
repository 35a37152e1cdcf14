package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// Pinger checks a dependency's connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker reports the model sidecar's status.
type ModelChecker interface {
	Health(ctx context.Context) (string, error)
}

// SocketCounter reports open gateway sockets.
type SocketCounter interface {
	Total() int
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db       Pinger
	model    ModelChecker
	sessions SessionSource
	sockets  SocketCounter
}

// NewHealthHandler creates a new health handler. Any dependency may be nil.
func NewHealthHandler(db Pinger, model ModelChecker, sessions SessionSource, sockets SocketCounter) *HealthHandler {
	return &HealthHandler{db: db, model: model, sessions: sessions, sockets: sockets}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			status["status"] = "degraded"
			checks["database"] = "unreachable"
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}
	if h.model != nil {
		if state, err := h.model.Health(ctx); err != nil {
			slog.Error("Model sidecar health check failed", "error", err)
			status["status"] = "degraded"
			checks["model"] = "unreachable"
			statusCode = http.StatusServiceUnavailable
		} else if state == "" {
			checks["model"] = "ok"
		} else {
			checks["model"] = state
		}
	}
	if h.sessions != nil {
		status["sessions"] = h.sessions.Len()
	}
	if h.sockets != nil {
		status["sockets"] = h.sockets.Total()
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
