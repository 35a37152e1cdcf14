// Package assistant runs the brain dump pipeline: transcribe, complete, parse,
// and merge into session state.
package assistant

import (
	"context"
	"errors"

	"github.com/ashureev/braindump/internal/domain"
)

// Fixed user-facing transcription fallbacks.
const (
	TranscriptionFailedText  = "Speech-to-text failed. Please try again or use text input."
	TranscriptionUnclearText = "Could not transcribe audio clearly."
)

var (
	// ErrEmptyInput is returned when an utterance has no text to send.
	ErrEmptyInput = errors.New("empty input")
	// ErrCompletion wraps failures from the completion collaborator.
	ErrCompletion = errors.New("completion failed")
)

// Transcriber turns raw audio into text. Implementations never fail; they
// degrade to TranscriptionFailedText instead.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) string
}

// Completer sends one assembled prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Archiver stores copies of exported sessions.
type Archiver interface {
	SaveExport(ctx context.Context, rec *domain.ExportRecord) error
}

// Input is one inbound utterance for a session.
type Input struct {
	SessionID string
	Text      string
	Audio     []byte
}

// FromAudio reports whether the input must be transcribed first.
func (in Input) FromAudio() bool {
	return in.Audio != nil
}

// Result is what the pipeline produced for one Input.
type Result struct {
	UserInput string
	FromAudio bool
	Reply     domain.ParsedReply
	State     domain.SessionState
}

// disabledTranscriber is used when no transcription backend is configured.
type disabledTranscriber struct{}

func (disabledTranscriber) Transcribe(context.Context, []byte) string {
	return TranscriptionFailedText
}
