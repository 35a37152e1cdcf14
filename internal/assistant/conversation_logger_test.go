package assistant

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConversationLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log(ConversationLogEvent{
		SessionID:  "sess-1",
		Channel:    "ws",
		Direction:  "inbound",
		EventType:  "user_message",
		ContentRaw: "gym at 7\n\n  then   email",
	})

	path := filepath.Join(dir, "sess-1.ndjson")
	line := waitForLogLine(t, path)
	var got ConversationLogEvent
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.ContentRaw != "gym at 7\n\n  then   email" {
		t.Fatalf("unexpected ContentRaw: %q", got.ContentRaw)
	}
	if got.Content != "gym at 7 then email" {
		t.Fatalf("unexpected cleaned content: %q", got.Content)
	}
}

func TestConversationLoggerGlobalFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	global := filepath.Join(dir, "all", "all.ndjson")
	logger, err := NewConversationLogger(ConversationLogConfig{
		Enabled:       true,
		Dir:           dir,
		GlobalEnabled: true,
		GlobalPath:    global,
		QueueSize:     16,
	}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}

	logger.Log(ConversationLogEvent{SessionID: "a", EventType: "user_message", ContentRaw: "one"})
	logger.Log(ConversationLogEvent{SessionID: "b", EventType: "user_message", ContentRaw: "two"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(global)
	if err != nil {
		t.Fatalf("read global log: %v", err)
	}
	if n := len(strings.Split(strings.TrimSpace(string(data)), "\n")); n != 2 {
		t.Fatalf("expected 2 global lines, got %d", n)
	}

	// Logging after Close is ignored.
	logger.Log(ConversationLogEvent{SessionID: "a", ContentRaw: "late"})
}

func TestDisabledConversationLoggerIsNoop(t *testing.T) {
	t.Parallel()

	logger, err := NewConversationLogger(ConversationLogConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	if _, ok := logger.(noopConversationLogger); !ok {
		t.Fatalf("expected noop logger, got %T", logger)
	}
	logger.Log(ConversationLogEvent{SessionID: "a"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestCleanForReadabilityStripsControlCharacters(t *testing.T) {
	t.Parallel()

	raw := "\x1b[31mbusy\x1b[0m\tday\x00"
	clean := cleanForReadability(raw)
	if strings.ContainsRune(clean, '\x1b') || strings.ContainsRune(clean, '\x00') {
		t.Fatalf("expected control characters to be stripped: %q", clean)
	}
	if clean != "[31mbusy[0m day" {
		t.Fatalf("unexpected cleaned text: %q", clean)
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}

func TestConversationLoggerBoundsOpenFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{
		Enabled:      true,
		Dir:          dir,
		QueueSize:    64,
		MaxOpenFiles: 4,
	}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	fl := logger.(*fileConversationLogger)

	const sessions = 20
	for i := 0; i < sessions; i++ {
		logger.Log(ConversationLogEvent{SessionID: fmt.Sprintf("s%d", i), ContentRaw: "first"})
	}
	// The queue is FIFO, so the last session's line means every event was written.
	waitForLogLine(t, filepath.Join(dir, fmt.Sprintf("s%d.ndjson", sessions-1)))
	if n := fl.openFiles(); n > 4 {
		t.Fatalf("expected at most 4 open files, got %d", n)
	}

	// An evicted session reopens its file and appends.
	logger.Log(ConversationLogEvent{SessionID: "s0", ContentRaw: "second"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if n := fl.openFiles(); n != 0 {
		t.Fatalf("expected no open files after Close, got %d", n)
	}

	for i := 0; i < sessions; i++ {
		data, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("s%d.ndjson", i)))
		if err != nil {
			t.Fatalf("read s%d log: %v", i, err)
		}
		want := 1
		if i == 0 {
			want = 2
		}
		if got := len(strings.Split(strings.TrimSpace(string(data)), "\n")); got != want {
			t.Fatalf("s%d: expected %d lines, got %d", i, want, got)
		}
	}
}
