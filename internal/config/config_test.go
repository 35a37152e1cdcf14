package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "FRONTEND_URL", "DB_PATH", "COMPLETION_PROVIDER",
		"CONTEXT_TURNS", "COMPLETION_TIMEOUT", "MAX_AUDIO_BYTES", "GEMINI_MODEL", "EXPORT_RETENTION",
		"CONVERSATION_LOG_MAX_OPEN_FILES"} {
		t.Setenv(k, "") // restores the original value after the test
		os.Unsetenv(k)
	}
	t.Setenv("MODEL_SIDECAR_ADDR", "localhost:50051")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected port 8000, got %s", cfg.Port)
	}
	if cfg.Model.ContextTurns != 5 {
		t.Errorf("expected 5 context turns, got %d", cfg.Model.ContextTurns)
	}
	if cfg.Model.CompletionTimeout != time.Minute {
		t.Errorf("expected 1m completion timeout, got %v", cfg.Model.CompletionTimeout)
	}
	if cfg.ExportRetention != 30*24*time.Hour {
		t.Errorf("expected 30 day export retention, got %v", cfg.ExportRetention)
	}
	if cfg.Model.GeminiModel == "" {
		t.Error("expected default gemini model")
	}
	if cfg.ConversationLog.MaxOpenFiles != 64 {
		t.Errorf("expected 64 open conversation log files, got %d", cfg.ConversationLog.MaxOpenFiles)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode without FRONTEND_URL")
	}
	if got := cfg.AllowedOrigins(); len(got) != 1 || got[0] != "*" {
		t.Errorf("expected wildcard origins in development, got %v", got)
	}
	if !cfg.TranscriptionEnabled() {
		t.Error("expected transcription enabled with a sidecar address")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FRONTEND_URL", "https://plan.example.com")
	t.Setenv("COMPLETION_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("MODEL_SIDECAR_ADDR", "")
	t.Setenv("CONTEXT_TURNS", "3")
	t.Setenv("COMPLETION_TIMEOUT", "15s")
	t.Setenv("CONVERSATION_LOG_ENABLED", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.Model.CompletionProvider != ProviderGemini {
		t.Errorf("expected gemini provider, got %s", cfg.Model.CompletionProvider)
	}
	if cfg.Model.ContextTurns != 3 {
		t.Errorf("expected 3 context turns, got %d", cfg.Model.ContextTurns)
	}
	if cfg.Model.CompletionTimeout != 15*time.Second {
		t.Errorf("expected 15s timeout, got %v", cfg.Model.CompletionTimeout)
	}
	if cfg.ConversationLog.Enabled {
		t.Error("expected conversation log disabled")
	}
	if cfg.IsDevelopment() {
		t.Error("expected production mode")
	}
	if got := cfg.AllowedOrigins(); len(got) != 1 || got[0] != "https://plan.example.com" {
		t.Errorf("unexpected origins: %v", got)
	}
	if cfg.TranscriptionEnabled() {
		t.Error("expected transcription disabled without a sidecar")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:          "8000",
			DBPath:        "db",
			MaxAudioBytes: 1,
			Model: ModelConfig{
				SidecarAddr:          "localhost:50051",
				CompletionProvider:   ProviderSidecar,
				CompletionTimeout:    time.Second,
				TranscriptionTimeout: time.Second,
				ContextTurns:         5,
			},
			ConversationLog: ConversationLogConfig{Dir: "d", GlobalPath: "g", QueueSize: 1, MaxOpenFiles: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing port", func(c *Config) { c.Port = "" }, "PORT"},
		{"sidecar without addr", func(c *Config) { c.Model.SidecarAddr = "" }, "MODEL_SIDECAR_ADDR"},
		{"gemini without key", func(c *Config) { c.Model.CompletionProvider = ProviderGemini }, "GEMINI_API_KEY"},
		{"unknown provider", func(c *Config) { c.Model.CompletionProvider = "llama" }, "COMPLETION_PROVIDER"},
		{"negative turns", func(c *Config) { c.Model.ContextTurns = -1 }, "CONTEXT_TURNS"},
		{"zero turns", func(c *Config) { c.Model.ContextTurns = 0 }, "CONTEXT_TURNS"},
		{"zero queue", func(c *Config) { c.ConversationLog.QueueSize = 0 }, "QUEUE_SIZE"},
		{"zero open log files", func(c *Config) { c.ConversationLog.MaxOpenFiles = 0 }, "MAX_OPEN_FILES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
