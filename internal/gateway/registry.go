// Package gateway exposes the brain dump pipeline over a per-session
// WebSocket.
package gateway

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// closer is the part of *websocket.Conn the registry needs.
type closer interface {
	Close(code websocket.StatusCode, reason string) error
}

// Registry tracks open sockets per session. A session may have several
// sockets open at once; their pipelines are serialized downstream.
type Registry struct {
	mu     sync.RWMutex
	active map[string]map[closer]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active: make(map[string]map[closer]struct{}),
	}
}

// Register records conn as open for sessionID.
func (r *Registry) Register(sessionID string, conn closer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[sessionID]; !exists {
		r.active[sessionID] = make(map[closer]struct{})
	}
	r.active[sessionID][conn] = struct{}{}
	slog.Info("Socket registered", "session_id", sessionID, "open", len(r.active[sessionID]))
}

// Unregister forgets conn. Unknown connections are ignored.
func (r *Registry) Unregister(sessionID string, conn closer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.active[sessionID]
	if !ok {
		return
	}
	if _, exists := conns[conn]; !exists {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(r.active, sessionID)
	}
	slog.Info("Socket unregistered", "session_id", sessionID, "open", len(conns))
}

// Count returns the number of open sockets for sessionID.
func (r *Registry) Count(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active[sessionID])
}

// Total returns the number of open sockets across all sessions.
func (r *Registry) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, conns := range r.active {
		n += len(conns)
	}
	return n
}

// CloseAll closes every registered socket, typically on shutdown. Sockets are
// closed outside the lock so their handlers can unregister concurrently.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	active := r.active
	r.active = make(map[string]map[closer]struct{})
	r.mu.Unlock()

	for sid, conns := range active {
		for conn := range conns {
			_ = conn.Close(websocket.StatusGoingAway, reason)
		}
		slog.Info("Session sockets closed", "session_id", sid, "count", len(conns))
	}
}
