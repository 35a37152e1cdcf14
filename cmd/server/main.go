// Morning Brain Dump server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/braindump/internal/api"
	"github.com/ashureev/braindump/internal/assistant"
	"github.com/ashureev/braindump/internal/config"
	"github.com/ashureev/braindump/internal/gateway"
	"github.com/ashureev/braindump/internal/identity"
	"github.com/ashureev/braindump/internal/middleware"
	"github.com/ashureev/braindump/internal/session"
	"github.com/ashureev/braindump/internal/store"
	"github.com/ashureev/braindump/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "completion_provider", cfg.Model.CompletionProvider)

	// Export archive.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	// Model collaborators.
	var (
		transcriber assistant.Transcriber
		completer   assistant.Completer
		modelHealth api.ModelChecker
	)
	if cfg.Model.SidecarAddr != "" {
		sidecarCfg := assistant.DefaultSidecarConfig(cfg.Model.SidecarAddr)
		sidecarCfg.CompletionTimeout = cfg.Model.CompletionTimeout
		sidecarCfg.TranscriptionTimeout = cfg.Model.TranscriptionTimeout

		sidecar, err := assistant.NewSidecarClient(sidecarCfg, logger)
		if err != nil {
			slog.Error("Failed to connect to model sidecar", "error", err)
			os.Exit(1)
		}
		defer sidecar.Close()

		transcriber = sidecar
		modelHealth = sidecar
		if cfg.Model.CompletionProvider == config.ProviderSidecar {
			completer = sidecar
		}
	} else {
		slog.Info("Transcription disabled (MODEL_SIDECAR_ADDR not set)")
	}
	if cfg.Model.CompletionProvider == config.ProviderGemini {
		gemini, err := assistant.NewGeminiCompleter(context.Background(), assistant.GeminiConfig{
			APIKey:  cfg.Model.GeminiAPIKey,
			Model:   cfg.Model.GeminiModel,
			BaseURL: cfg.Model.GeminiBaseURL,
			Timeout: cfg.Model.CompletionTimeout,
		})
		if err != nil {
			slog.Error("Failed to create Gemini client", "error", err)
			os.Exit(1)
		}
		completer = gemini
		slog.Info("Using Gemini completions", "model", cfg.Model.GeminiModel)
	}

	conversationLogger, err := assistant.NewConversationLogger(assistant.ConversationLogConfig{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
		MaxOpenFiles:  cfg.ConversationLog.MaxOpenFiles,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	sessions := session.NewStore()
	svc, err := assistant.NewService(assistant.Deps{
		Store:           sessions,
		Completer:       completer,
		Transcriber:     transcriber,
		Archive:         repo,
		ConversationLog: conversationLogger,
		Logger:          logger,
		ContextTurns:    cfg.Model.ContextTurns,
	})
	if err != nil {
		slog.Error("Failed to initialize assistant service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	registry := gateway.NewRegistry()

	// Initialize handlers.
	apiHandler := api.NewHandler(sessions, repo, cfg)
	healthHandler := api.NewHealthHandler(repo, modelHealth, sessions, registry)
	wsHandler := gateway.NewHandler(svc, registry, gateway.Config{
		AllowedOrigin: cfg.FrontendURL,
		IsDev:         cfg.IsDevelopment(),
		MaxAudioBytes: cfg.MaxAudioBytes,
	}, logger)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	// Public routes.
	healthHandler.RegisterHealth(r)
	apiHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.With(identity.Middleware).Get("/ws/{session_id}", wsHandler.ServeHTTP)

	// Serve embedded client (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WebSocket connections are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store.StartRetentionWorker(ctx, repo, cfg.ExportRetention, store.DefaultRetentionInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	// Hijacked WebSocket connections are not tracked by Shutdown.
	registry.CloseAll("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
