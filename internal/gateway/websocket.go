package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/braindump/internal/assistant"
	"github.com/ashureev/braindump/internal/domain"
	"github.com/ashureev/braindump/internal/identity"
	"github.com/coder/websocket"
)

const (
	defaultMaxAudioBytes = 10 << 20
	writeTimeout         = 10 * time.Second
	// frameOverhead covers the JSON envelope around a base64 audio payload.
	frameOverhead = 4096
)

// Pipeline is the part of assistant.Service the gateway drives.
type Pipeline interface {
	Handle(ctx context.Context, in assistant.Input) (*assistant.Result, error)
	Export(ctx context.Context, sessionID string) domain.SessionState
}

// Config controls origin checks and frame limits.
type Config struct {
	AllowedOrigin string
	IsDev         bool
	MaxAudioBytes int
}

// Handler serves GET /ws/{session_id}.
type Handler struct {
	pipeline Pipeline
	registry *Registry
	cfg      Config
	logger   *slog.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(pipeline Pipeline, registry *Registry, cfg Config, logger *slog.Logger) *Handler {
	if registry == nil {
		registry = NewRegistry()
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = defaultMaxAudioBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		pipeline: pipeline,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// inboundMessage is any client frame.
type inboundMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio,omitempty"`
	Text  string `json:"text,omitempty"`
}

type responseEvent struct {
	Type         string                 `json:"type"`
	UserInput    string                 `json:"user_input,omitempty"`
	Conversation string                 `json:"conversation"`
	Tasks        []domain.Task          `json:"tasks"`
	Schedule     []domain.ScheduleEntry `json:"schedule"`
	Mood         domain.Mood            `json:"mood"`
	EnergyLevel  domain.EnergyLevel     `json:"energy_level"`
}

type exportEvent struct {
	Type string              `json:"type"`
	Data domain.SessionState `json:"data"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type pongEvent struct {
	Type string `json:"type"`
}

func newErrorEvent(format string, args ...any) errorEvent {
	return errorEvent{Type: "error", Message: fmt.Sprintf(format, args...)}
}

// ServeHTTP upgrades the request and runs the session's read loop. The
// session ID must already be in the request context (identity.Middleware).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}
	h.logger.Info("WebSocket connection request", "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()
	ws.SetReadLimit(h.readLimit())

	h.registry.Register(sessionID, ws)
	defer h.registry.Unregister(sessionID, ws)

	h.readLoop(r.Context(), ws, sessionID)
	h.logger.Info("WebSocket session ended", "session_id", sessionID)
}

// readLimit allows a base64-encoded clip of MaxAudioBytes plus its envelope.
func (h *Handler) readLimit() int64 {
	return int64(h.cfg.MaxAudioBytes)*4/3 + frameOverhead
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.cfg.IsDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.cfg.AllowedOrigin == "*" || h.cfg.AllowedOrigin == "" {
		return true
	}
	if origin == h.cfg.AllowedOrigin {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.cfg.AllowedOrigin)
	return false
}

// readLoop handles frames strictly in arrival order; each reply is written
// before the next frame is read.
func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				h.logger.Debug("WebSocket closed by client", "session_id", sessionID)
			} else {
				h.logger.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		event := h.dispatch(ctx, sessionID, data)
		if event == nil {
			continue
		}
		if err := writeJSON(ctx, ws, event); err != nil {
			h.logger.Debug("WebSocket write error", "error", err, "session_id", sessionID)
			return
		}
	}
}

// dispatch turns one inbound frame into the event to send back. Bad frames
// produce an error event and never end the connection.
func (h *Handler) dispatch(ctx context.Context, sessionID string, data []byte) any {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return newErrorEvent("invalid message: %v", err)
	}

	switch msg.Type {
	case "audio":
		audio, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			return newErrorEvent("invalid audio encoding")
		}
		if len(audio) == 0 {
			return newErrorEvent("empty audio")
		}
		if len(audio) > h.cfg.MaxAudioBytes {
			return newErrorEvent("audio exceeds %d bytes", h.cfg.MaxAudioBytes)
		}
		return h.respond(ctx, assistant.Input{SessionID: sessionID, Audio: audio})
	case "text":
		return h.respond(ctx, assistant.Input{SessionID: sessionID, Text: msg.Text})
	case "export":
		return exportEvent{Type: "export", Data: h.pipeline.Export(ctx, sessionID)}
	case "ping":
		return pongEvent{Type: "pong"}
	default:
		return newErrorEvent("unknown message type %q", msg.Type)
	}
}

func (h *Handler) respond(ctx context.Context, in assistant.Input) any {
	res, err := h.pipeline.Handle(ctx, in)
	if err != nil {
		h.logger.Warn("Pipeline failed", "session_id", in.SessionID, "error", err)
		return newErrorEvent("%s", err.Error())
	}

	event := responseEvent{
		Type:         "response",
		Conversation: res.Reply.ConversationText,
		Tasks:        res.State.Tasks,
		Schedule:     res.State.Schedule,
		Mood:         res.Reply.Mood,
		EnergyLevel:  res.Reply.EnergyLevel,
	}
	if event.Tasks == nil {
		event.Tasks = []domain.Task{}
	}
	if event.Schedule == nil {
		event.Schedule = []domain.ScheduleEntry{}
	}
	if res.FromAudio {
		event.UserInput = res.UserInput
	}
	return event
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
