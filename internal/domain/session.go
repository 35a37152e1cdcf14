package domain

import (
	"time"
)

// ConversationTurn is one user utterance and the conversational part of the reply.
type ConversationTurn struct {
	ID            string    `json:"id" yaml:"id"`
	UserText      string    `json:"user" yaml:"user"`
	AssistantText string    `json:"assistant" yaml:"assistant"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}

// SessionState holds everything the server knows about one client session.
type SessionState struct {
	SessionID    string             `json:"session_id" yaml:"session_id"`
	Conversation []ConversationTurn `json:"conversation" yaml:"conversation"`
	Tasks        []Task             `json:"tasks" yaml:"tasks"`
	Schedule     []ScheduleEntry    `json:"schedule" yaml:"schedule"`
	Mood         Mood               `json:"mood" yaml:"mood"`
	EnergyLevel  EnergyLevel        `json:"energy_level" yaml:"energy_level"`
	CreatedAt    time.Time          `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" yaml:"updated_at"`
}

// NewSessionState returns an empty session with default mood and energy.
func NewSessionState(sessionID string, now time.Time) SessionState {
	return SessionState{
		SessionID:    sessionID,
		Conversation: []ConversationTurn{},
		Tasks:        []Task{},
		Schedule:     []ScheduleEntry{},
		Mood:         MoodNeutral,
		EnergyLevel:  EnergyMedium,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a copy that shares no slices with s.
func (s SessionState) Clone() SessionState {
	out := s
	out.Conversation = append(make([]ConversationTurn, 0, len(s.Conversation)), s.Conversation...)
	out.Tasks = append(make([]Task, 0, len(s.Tasks)), s.Tasks...)
	out.Schedule = append(make([]ScheduleEntry, 0, len(s.Schedule)), s.Schedule...)
	return out
}

// RecentTurns returns the last n turns in chronological order.
func (s SessionState) RecentTurns(n int) []ConversationTurn {
	if n <= 0 || len(s.Conversation) == 0 {
		return []ConversationTurn{}
	}
	start := 0
	if n < len(s.Conversation) {
		start = len(s.Conversation) - n
	}
	return append([]ConversationTurn(nil), s.Conversation[start:]...)
}

// ExportRecord is an archived copy of a session export.
type ExportRecord struct {
	ID         string       `json:"id"`
	SessionID  string       `json:"session_id"`
	Snapshot   SessionState `json:"snapshot"`
	ExportedAt time.Time    `json:"exported_at"`
}
