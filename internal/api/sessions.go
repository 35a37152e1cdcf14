package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/braindump/internal/identity"
)

// GetSession returns the live snapshot of a session. Unknown sessions are 404;
// sessions are only created by gateway events.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	state, ok := h.sessions.Lookup(sessionID)
	if !ok {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, state)
}

// ListExports returns archived exports for a session, newest first.
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		Error(w, http.StatusServiceUnavailable, "export archive disabled")
		return
	}

	sessionID := identity.SessionIDFromContext(r.Context())
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.archive.ListExports(r.Context(), sessionID, limit)
	if err != nil {
		slog.Error("Failed to list exports", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list exports")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"exports":    records,
	})
}
