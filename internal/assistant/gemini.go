package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

var errEmptyCompletion = errors.New("completion returned no text")

// GeminiConfig configures a GeminiCompleter.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // empty uses the SDK default endpoint
	Timeout time.Duration
}

// GeminiCompleter generates replies with the Gemini API.
type GeminiCompleter struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiCompleter creates a Gemini API client for cfg.Model.
func NewGeminiCompleter(ctx context.Context, cfg GeminiConfig) (*GeminiCompleter, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiCompleter{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Complete sends prompt as a single user message and returns the first
// candidate's text.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("gemini request: %w", ctxErr)
		}
		return "", fmt.Errorf("gemini request: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}

var _ Completer = (*GeminiCompleter)(nil)
