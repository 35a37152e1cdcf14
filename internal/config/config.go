// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Completion providers.
const (
	ProviderSidecar = "sidecar"
	ProviderGemini  = "gemini"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	FrontendURL     string
	DBPath          string
	MaxAudioBytes   int
	ExportRetention time.Duration
	Model           ModelConfig
	ConversationLog ConversationLogConfig
}

// ModelConfig selects and tunes the transcription and completion collaborators.
type ModelConfig struct {
	SidecarAddr          string // gRPC model sidecar; empty disables transcription
	CompletionProvider   string // "sidecar" or "gemini"
	GeminiAPIKey         string
	GeminiModel          string
	GeminiBaseURL        string // empty uses the SDK default endpoint
	CompletionTimeout    time.Duration
	TranscriptionTimeout time.Duration
	ContextTurns         int
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
	MaxOpenFiles  int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8000"),
		FrontendURL:     getEnv("FRONTEND_URL", ""),
		DBPath:          getEnv("DB_PATH", "./data/braindump.db"),
		MaxAudioBytes:   getEnvInt("MAX_AUDIO_BYTES", 10<<20),
		ExportRetention: getEnvDuration("EXPORT_RETENTION", 30*24*time.Hour),
		Model: ModelConfig{
			SidecarAddr:          getEnv("MODEL_SIDECAR_ADDR", ""),
			CompletionProvider:   strings.ToLower(getEnv("COMPLETION_PROVIDER", ProviderSidecar)),
			GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
			GeminiModel:          getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			GeminiBaseURL:        getEnv("GEMINI_BASE_URL", ""),
			CompletionTimeout:    getEnvDuration("COMPLETION_TIMEOUT", 60*time.Second),
			TranscriptionTimeout: getEnvDuration("TRANSCRIPTION_TIMEOUT", 60*time.Second),
			ContextTurns:         getEnvInt("CONTEXT_TURNS", 5),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
			MaxOpenFiles:  getEnvInt("CONVERSATION_LOG_MAX_OPEN_FILES", 64),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.MaxAudioBytes <= 0 {
		return fmt.Errorf("MAX_AUDIO_BYTES must be > 0")
	}
	switch c.Model.CompletionProvider {
	case ProviderSidecar:
		if c.Model.SidecarAddr == "" {
			return fmt.Errorf("MODEL_SIDECAR_ADDR is required when COMPLETION_PROVIDER=%s", ProviderSidecar)
		}
	case ProviderGemini:
		if c.Model.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when COMPLETION_PROVIDER=%s", ProviderGemini)
		}
	default:
		return fmt.Errorf("unknown COMPLETION_PROVIDER %q", c.Model.CompletionProvider)
	}
	if c.Model.ContextTurns <= 0 {
		return fmt.Errorf("CONTEXT_TURNS must be > 0")
	}
	if c.Model.CompletionTimeout <= 0 || c.Model.TranscriptionTimeout <= 0 {
		return fmt.Errorf("model timeouts must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	if c.ConversationLog.MaxOpenFiles <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_MAX_OPEN_FILES must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the HTTP API.
func (c *Config) AllowedOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

// TranscriptionEnabled reports whether audio input can be transcribed.
func (c *Config) TranscriptionEnabled() bool {
	return c.Model.SidecarAddr != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
