// Package mock provides a mock transcriber for running the bot without an AI backend.
// It cycles through canned transcripts and can simulate latency and failures.
package mock

import (
	"context"
	"sync"
	"time"

	"voice-relay-bot/internal/models"
)

// SimulatedTranscript is one canned transcription result.
type SimulatedTranscript struct {
	Text string
	TLDR string // empty means no summary
}

// DefaultTranscripts provides sample results for simulation.
var DefaultTranscripts = []SimulatedTranscript{
	{Text: "Hey, just checking in. Call me back when you get a chance."},
	{Text: "I'm running about ten minutes late, start without me."},
	{
		Text: "So I talked to the landlord this morning and he said the plumber can only come on Thursday, " +
			"which means we need someone home between nine and noon. I can't do it because of the dentist, " +
			"so could you work from home that day? If not, let me know tonight and I'll try to reschedule, " +
			"but he sounded like Thursday was the only slot this week.",
		TLDR: "I need you home Thursday morning for the plumber, or tell me tonight so I can reschedule.",
	},
	{Text: "Thank you very much!"},
}

// Adapter implements stt.Transcriber with canned responses.
type Adapter struct {
	mu          sync.Mutex
	transcripts []SimulatedTranscript
	next        int
	calls       int

	// Delay simulates backend latency. The call honors ctx while waiting.
	Delay time.Duration
	// FailFirst makes the first N calls return Err.
	FailFirst int
	// Err is returned by failing calls.
	Err error
}

// New creates a mock adapter cycling through DefaultTranscripts.
func New() *Adapter {
	return NewWith(DefaultTranscripts)
}

// NewWith creates a mock adapter cycling through the given transcripts.
func NewWith(transcripts []SimulatedTranscript) *Adapter {
	if len(transcripts) == 0 {
		transcripts = DefaultTranscripts
	}
	return &Adapter{transcripts: transcripts}
}

// Transcribe returns the next canned transcript.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte, mimeType string) (models.TranscriptionResult, error) {
	a.mu.Lock()
	a.calls++
	call := a.calls
	delay := a.Delay
	a.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return models.TranscriptionResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if call <= a.FailFirst && a.Err != nil {
		return models.TranscriptionResult{}, a.Err
	}

	t := a.transcripts[a.next%len(a.transcripts)]
	a.next++

	res := models.TranscriptionResult{TranscribedText: t.Text}
	if t.TLDR != "" {
		tldr := t.TLDR
		res.TLDR = &tldr
	}
	return res, nil
}

// Calls returns how many times Transcribe was invoked.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
