package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Full gRPC method names served by the model sidecar. Messages are protobuf
// well-known wrapper types so the sidecar needs no custom schema.
const (
	ModelServiceName   = "braindump.v1.ModelService"
	methodComplete     = "/" + ModelServiceName + "/Complete"
	methodTranscribe   = "/" + ModelServiceName + "/Transcribe"
	methodHealth       = "/" + ModelServiceName + "/Health"
	maxSidecarMsgBytes = 32 << 20
)

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

// SidecarClient talks to the speech-to-text and completion sidecar over gRPC.
// It implements both Transcriber and Completer.
type SidecarClient struct {
	conn   *grpc.ClientConn
	addr   string
	cfg    SidecarConfig
	logger *slog.Logger
}

// SidecarConfig holds configuration for the sidecar client.
type SidecarConfig struct {
	Address              string
	ConnectTimeout       time.Duration
	CompletionTimeout    time.Duration
	TranscriptionTimeout time.Duration
	KeepaliveTime        time.Duration
	KeepaliveTimeout     time.Duration
	// DialOptions are appended after the defaults.
	DialOptions []grpc.DialOption
}

// DefaultSidecarConfig returns default configuration for addr.
func DefaultSidecarConfig(addr string) SidecarConfig {
	return SidecarConfig{
		Address:              addr,
		ConnectTimeout:       5 * time.Second,
		CompletionTimeout:    60 * time.Second,
		TranscriptionTimeout: 60 * time.Second,
		KeepaliveTime:        2 * time.Minute,
		KeepaliveTimeout:     10 * time.Second,
	}
}

// NewSidecarClient connects to the model sidecar and waits until it is ready.
func NewSidecarClient(cfg SidecarConfig, logger *slog.Logger) (*SidecarClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("sidecar address is required")
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(maxSidecarMsgBytes),
			grpc.MaxCallRecvMsgSize(maxSidecarMsgBytes),
		),
	}
	opts = append(opts, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to model sidecar at %s: %w", cfg.Address, err)
	}

	// Force a connection attempt during startup so we fail fast on bad endpoints.
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("model sidecar at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to model sidecar", "address", cfg.Address)

	return &SidecarClient{
		conn:   conn,
		addr:   cfg.Address,
		cfg:    cfg,
		logger: logger,
	}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Close closes the gRPC connection.
func (c *SidecarClient) Close() {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("failed to close gRPC connection", "error", err)
		}
	}
}

// Health asks the sidecar for its status string.
func (c *SidecarClient) Health(ctx context.Context) (string, error) {
	resp := &wrapperspb.StringValue{}
	if err := c.conn.Invoke(ctx, methodHealth, &emptypb.Empty{}, resp); err != nil {
		return "", fmt.Errorf("health check failed: %w", err)
	}
	return resp.GetValue(), nil
}

// Complete sends prompt to the sidecar's language model.
func (c *SidecarClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CompletionTimeout)
	defer cancel()

	resp := &wrapperspb.StringValue{}
	if err := c.conn.Invoke(ctx, methodComplete, wrapperspb.String(prompt), resp); err != nil {
		return "", fmt.Errorf("sidecar complete: %w", err)
	}
	return resp.GetValue(), nil
}

// Transcribe converts audio to text. Errors degrade to TranscriptionFailedText
// and empty transcripts to TranscriptionUnclearText.
func (c *SidecarClient) Transcribe(ctx context.Context, audio []byte) string {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TranscriptionTimeout)
	defer cancel()

	resp := &wrapperspb.StringValue{}
	if err := c.conn.Invoke(ctx, methodTranscribe, wrapperspb.Bytes(audio), resp); err != nil {
		c.logger.Warn("Transcription failed", "error", err, "audio_bytes", len(audio))
		return TranscriptionFailedText
	}

	text := strings.TrimSpace(resp.GetValue())
	if text == "" {
		return TranscriptionUnclearText
	}
	return text
}

// Ensure SidecarClient implements both collaborator contracts.
var (
	_ Completer   = (*SidecarClient)(nil)
	_ Transcriber = (*SidecarClient)(nil)
)
