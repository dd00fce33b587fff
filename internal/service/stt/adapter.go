// Package stt defines the interface for speech-to-text backends.
package stt

import (
	"context"
	"errors"

	"voice-relay-bot/internal/models"
)

// DefaultMIMEType labels audio when the caller does not supply a type.
const DefaultMIMEType = "audio/ogg"

var (
	// ErrTimeout is returned when the backend did not deliver a result in time.
	ErrTimeout = errors.New("transcription timed out")
	// ErrNoToolCall marks a backend response that did not invoke the output tool.
	ErrNoToolCall = errors.New("backend did not invoke the output tool")
)

// Transcriber turns one audio buffer into a structured transcript.
// Implementations (Gemini, mock) make exactly one backend call per invocation.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (models.TranscriptionResult, error)
}

// ErrorType maps a transcription error to a short metric label.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNoToolCall):
		return "no_tool_call"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "backend"
	}
}
