// Package session holds per-session conversation history and the latest
// task/schedule snapshot in process memory.
package session

import (
	"sync"
	"time"

	"github.com/ashureev/braindump/internal/domain"
	"github.com/google/uuid"
)

// Store maps session IDs to their state. Different sessions never contend on
// anything but the map lookup; operations on one session ID are serialized by
// that session's own mutex.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

type entry struct {
	mu    sync.Mutex
	state domain.SessionState
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

func (s *Store) entry(sessionID string) *entry {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sessionID]; ok {
		return e
	}
	e = &entry{state: domain.NewSessionState(sessionID, s.now())}
	s.sessions[sessionID] = e
	return e
}

// GetOrCreate returns the session's current state, creating it on first use.
func (s *Store) GetOrCreate(sessionID string) domain.SessionState {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// AppendTurn records one exchange at the end of the session's history.
func (s *Store) AppendTurn(sessionID, userText, conversationText string) domain.ConversationTurn {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.appendLocked(e, userText, conversationText)
}

// MergeStructured replaces the task and schedule snapshots and updates mood and
// energy when reply carries a payload. Replies without one leave all four as they were.
func (s *Store) MergeStructured(sessionID string, reply domain.ParsedReply) {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	s.mergeLocked(e, reply)
}

// Apply appends the turn and merges the reply atomically, returning the
// resulting state.
func (s *Store) Apply(sessionID, userText string, reply domain.ParsedReply) domain.SessionState {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	s.appendLocked(e, userText, reply.ConversationText)
	s.mergeLocked(e, reply)
	return e.state.Clone()
}

// ContextWindow returns up to n of the most recent turns, oldest first.
func (s *Store) ContextWindow(sessionID string, n int) []domain.ConversationTurn {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.RecentTurns(n)
}

// Export returns a full snapshot of the session.
func (s *Store) Export(sessionID string) domain.SessionState {
	return s.GetOrCreate(sessionID)
}

// Lookup returns a snapshot of an existing session without creating one.
func (s *Store) Lookup(sessionID string) (domain.SessionState, bool) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.SessionState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), true
}

// Len reports how many sessions exist.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) appendLocked(e *entry, userText, conversationText string) domain.ConversationTurn {
	now := s.now()
	turn := domain.ConversationTurn{
		ID:            uuid.NewString(),
		UserText:      userText,
		AssistantText: conversationText,
		CreatedAt:     now,
	}
	e.state.Conversation = append(e.state.Conversation, turn)
	e.state.UpdatedAt = now
	return turn
}

func (s *Store) mergeLocked(e *entry, reply domain.ParsedReply) {
	if !reply.StructuredPayloadFound {
		return
	}
	e.state.Tasks = append(make([]domain.Task, 0, len(reply.Tasks)), reply.Tasks...)
	e.state.Schedule = append(make([]domain.ScheduleEntry, 0, len(reply.Schedule)), reply.Schedule...)
	e.state.Mood = domain.ParseMood(string(reply.Mood))
	e.state.EnergyLevel = domain.ParseEnergyLevel(string(reply.EnergyLevel))
	e.state.UpdatedAt = s.now()
}
