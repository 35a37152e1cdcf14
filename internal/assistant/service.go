package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/braindump/internal/domain"
	"github.com/ashureev/braindump/internal/parser"
	"github.com/ashureev/braindump/internal/session"
	"github.com/google/uuid"
)

// DefaultContextTurns is how many past turns are replayed into each prompt.
const DefaultContextTurns = 5

// Deps wires a Service. Store and Completer are required.
type Deps struct {
	Store           *session.Store
	Completer       Completer
	Transcriber     Transcriber
	Archive         Archiver
	ConversationLog ConversationLogger
	Logger          *slog.Logger
	ContextTurns    int
}

// Service runs utterances through transcription, completion, parsing and the
// session store.
type Service struct {
	store        *session.Store
	completer    Completer
	transcriber  Transcriber
	archive      Archiver
	log          ConversationLogger
	logger       *slog.Logger
	contextTurns int

	// pipelines serializes whole Handle calls per session ID so two sockets on
	// the same session cannot interleave their history reads and writes.
	pipelines sync.Map
}

// NewService creates a pipeline service.
func NewService(deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Completer == nil {
		return nil, errors.New("completer is required")
	}
	if deps.Transcriber == nil {
		deps.Transcriber = disabledTranscriber{}
	}
	if deps.ConversationLog == nil {
		deps.ConversationLog = noopConversationLogger{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.ContextTurns <= 0 {
		deps.ContextTurns = DefaultContextTurns
	}

	return &Service{
		store:        deps.Store,
		completer:    deps.Completer,
		transcriber:  deps.Transcriber,
		archive:      deps.Archive,
		log:          deps.ConversationLog,
		logger:       deps.Logger,
		contextTurns: deps.ContextTurns,
	}, nil
}

func (s *Service) pipelineLock(sessionID string) *sync.Mutex {
	lock, _ := s.pipelines.LoadOrStore(sessionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Handle processes one utterance. On completion failure the session is left
// untouched and the error wraps ErrCompletion.
func (s *Service) Handle(ctx context.Context, in Input) (*Result, error) {
	lock := s.pipelineLock(in.SessionID)
	lock.Lock()
	defer lock.Unlock()

	userInput := in.Text
	if in.FromAudio() {
		userInput = s.transcriber.Transcribe(ctx, in.Audio)
		s.logger.Info("Audio transcribed", "session_id", in.SessionID, "audio_bytes", len(in.Audio), "text_length", len(userInput))
	}
	if strings.TrimSpace(userInput) == "" {
		return nil, ErrEmptyInput
	}

	history := s.store.ContextWindow(in.SessionID, s.contextTurns)
	prompt := BuildPrompt(history, userInput)

	channel := "text"
	if in.FromAudio() {
		channel = "audio"
	}
	s.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		SessionID:  in.SessionID,
		Channel:    channel,
		Direction:  "inbound",
		EventType:  "user_message",
		ContentRaw: userInput,
		Meta: map[string]any{
			"history_turns": len(history),
		},
	})

	started := time.Now()
	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		s.logger.Error("Completion failed", "session_id", in.SessionID, "error", err)
		s.log.Log(ConversationLogEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			SessionID: in.SessionID,
			Channel:   channel,
			Direction: "outbound",
			EventType: "completion_error",
			Meta:      map[string]any{"error": err.Error()},
		})
		return nil, fmt.Errorf("%w: %w", ErrCompletion, err)
	}

	reply := parser.Parse(raw)
	state := s.store.Apply(in.SessionID, userInput, reply)

	var turnID string
	if n := len(state.Conversation); n > 0 {
		turnID = state.Conversation[n-1].ID
	}
	s.logger.Info("Reply processed",
		"session_id", in.SessionID,
		"stage", reply.Stage,
		"structured", reply.StructuredPayloadFound,
		"tasks", len(state.Tasks),
		"schedule", len(state.Schedule),
		"duration", time.Since(started),
	)
	s.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		SessionID:  in.SessionID,
		TurnID:     turnID,
		Channel:    channel,
		Direction:  "outbound",
		EventType:  "assistant_message",
		ContentRaw: raw,
		Content:    cleanForReadability(reply.ConversationText),
		Meta: map[string]any{
			"stage":      reply.Stage,
			"structured": reply.StructuredPayloadFound,
			"tasks":      len(reply.Tasks),
			"schedule":   len(reply.Schedule),
			"mood":       reply.Mood,
			"energy":     reply.EnergyLevel,
		},
	})

	return &Result{
		UserInput: userInput,
		FromAudio: in.FromAudio(),
		Reply:     reply,
		State:     state,
	}, nil
}

// Export returns the session snapshot and archives a copy when an archive is
// configured. Archive failures are logged, never returned.
func (s *Service) Export(ctx context.Context, sessionID string) domain.SessionState {
	state := s.store.Export(sessionID)
	if s.archive == nil {
		return state
	}

	rec := &domain.ExportRecord{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Snapshot:   state,
		ExportedAt: time.Now().UTC(),
	}
	if err := s.archive.SaveExport(ctx, rec); err != nil {
		s.logger.Warn("Failed to archive export", "session_id", sessionID, "error", err)
	} else {
		s.logger.Info("Export archived", "session_id", sessionID, "export_id", rec.ID)
	}
	return state
}

// Close releases resources.
func (s *Service) Close() {
	if err := s.log.Close(); err != nil {
		s.logger.Warn("failed to close conversation logger", "error", err)
	}
}
