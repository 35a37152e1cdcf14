package assistant

import (
	"container/list"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// ConversationLogConfig controls where conversation events are written.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
	// MaxOpenFiles caps how many per-session files stay open at once.
	MaxOpenFiles  int
}

// DefaultMaxOpenLogFiles is used when MaxOpenFiles is unset.
const DefaultMaxOpenLogFiles = 64

// ConversationLogEvent is one NDJSON line in a session's conversation log.
type ConversationLogEvent struct {
	Timestamp  string         `json:"ts"`
	SessionID  string         `json:"session_id"`
	TurnID     string         `json:"turn_id,omitempty"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// ConversationLogger records conversation events without blocking callers.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) Close() error             { return nil }

// fileConversationLogger appends events to <dir>/<session>.ndjson from a
// single writer goroutine. Events are dropped when the queue is full. Session
// files are kept in a least-recently-used cache of at most MaxOpenFiles handles.
type fileConversationLogger struct {
	cfg    ConversationLogConfig
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan ConversationLogEvent
	done   chan struct{}

	filesMu sync.Mutex
	files   map[string]*list.Element // session ID -> element in lru
	lru     *list.List               // front is most recently written
	global  *os.File
}

type openLogFile struct {
	sessionID string
	f         *os.File
}

// NewConversationLogger returns a logger for cfg. A disabled config yields a no-op logger.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.MaxOpenFiles <= 0 {
		cfg.MaxOpenFiles = DefaultMaxOpenLogFiles
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileConversationLogger{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan ConversationLogEvent, cfg.QueueSize),
		done:   make(chan struct{}),
		files:  make(map[string]*list.Element),
		lru:    list.New(),
	}

	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o755); err != nil {
			return nil, fmt.Errorf("create global conversation log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open global conversation log: %w", err)
		}
		l.global = f
	}

	go l.run()
	return l, nil
}

func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("conversation log queue full, dropping event",
			"session_id", event.SessionID, "event_type", event.EventType)
	}
}

func (l *fileConversationLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done

	var firstErr error
	l.filesMu.Lock()
	for el := l.lru.Front(); el != nil; el = el.Next() {
		if err := el.Value.(*openLogFile).f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.lru.Init()
	clear(l.files)
	l.filesMu.Unlock()
	if l.global != nil {
		if err := l.global.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *fileConversationLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		line, err := json.Marshal(event)
		if err != nil {
			l.logger.Warn("failed to marshal conversation event", "error", err)
			continue
		}
		line = append(line, '\n')

		f, err := l.sessionFile(event.SessionID)
		if err != nil {
			l.logger.Warn("failed to open conversation log", "session_id", event.SessionID, "error", err)
		} else if _, err := f.Write(line); err != nil {
			l.logger.Warn("failed to write conversation log", "session_id", event.SessionID, "error", err)
		}

		if l.global != nil {
			if _, err := l.global.Write(line); err != nil {
				l.logger.Warn("failed to write global conversation log", "error", err)
			}
		}
	}
}

func (l *fileConversationLogger) sessionFile(sessionID string) (*os.File, error) {
	l.filesMu.Lock()
	defer l.filesMu.Unlock()

	if el, ok := l.files[sessionID]; ok {
		l.lru.MoveToFront(el)
		return el.Value.(*openLogFile).f, nil
	}

	for l.lru.Len() >= l.cfg.MaxOpenFiles {
		oldest := l.lru.Back()
		evicted := l.lru.Remove(oldest).(*openLogFile)
		delete(l.files, evicted.sessionID)
		if err := evicted.f.Close(); err != nil {
			l.logger.Warn("failed to close conversation log", "session_id", evicted.sessionID, "error", err)
		}
	}

	name := sessionID
	if name == "" {
		name = "unknown"
	}
	path := filepath.Join(l.cfg.Dir, filepath.Base(name)+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	l.files[sessionID] = l.lru.PushFront(&openLogFile{sessionID: sessionID, f: f})
	return f, nil
}

func (l *fileConversationLogger) openFiles() int {
	l.filesMu.Lock()
	defer l.filesMu.Unlock()
	return l.lru.Len()
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanForReadability drops control characters and collapses whitespace so a
// reply reads on one line.
func cleanForReadability(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
