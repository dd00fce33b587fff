// Package models defines the transient data structures that flow through the bot.
package models

import "strings"

// TranscriptionResult is the structured output of the transcription backend.
type TranscriptionResult struct {
	TranscribedText string  `json:"transcribedText"`
	TLDR            *string `json:"tldr"`
}

// Summary returns the trimmed TLDR and whether it is usable.
// A nil, empty or whitespace-only TLDR means "no summary".
func (r TranscriptionResult) Summary() (string, bool) {
	if r.TLDR == nil {
		return "", false
	}
	s := strings.TrimSpace(*r.TLDR)
	return s, s != ""
}

// Media kinds that enter the pipeline.
const (
	KindVoice         = "voice"
	KindAudioDocument = "audio_document"
	KindVideoNote     = "video_note"
)

// AudioPayload is a downloaded or extracted audio buffer with its MIME label.
type AudioPayload struct {
	Data     []byte
	MIMEType string
}

// TranscriptCompleted is published after a transcript has been delivered.
type TranscriptCompleted struct {
	EventID    string  `json:"eventId"`
	EventType  string  `json:"eventType"`
	JobID      string  `json:"jobId"`
	ChatID     int64   `json:"chatId"`
	MessageID  int     `json:"messageId"`
	Username   string  `json:"username"`
	Kind       string  `json:"kind"`
	MIMEType   string  `json:"mimeType"`
	Text       string  `json:"text"`
	TLDR       *string `json:"tldr"`
	DurationMs int64   `json:"durationMs"`
	Timestamp  int64   `json:"timestamp"`
}

// TranscriptFailed is published when a job ends in the failure reply.
type TranscriptFailed struct {
	EventID    string `json:"eventId"`
	EventType  string `json:"eventType"`
	JobID      string `json:"jobId"`
	ChatID     int64  `json:"chatId"`
	MessageID  int    `json:"messageId"`
	Username   string `json:"username"`
	Kind       string `json:"kind"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
	DurationMs int64  `json:"durationMs"`
	Timestamp  int64  `json:"timestamp"`
}
