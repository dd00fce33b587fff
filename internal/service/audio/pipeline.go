// Package audio provides the media pipeline that turns a platform file
// reference into a transcript: download, optional extraction, transcription.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"voice-relay-bot/internal/models"
	"voice-relay-bot/internal/observability/metrics"
	"voice-relay-bot/internal/service/job"
	"voice-relay-bot/internal/service/media"
	"voice-relay-bot/internal/service/retry"
	"voice-relay-bot/internal/service/stt"
)

// ErrTooLarge is returned when a download exceeds Limits.MaxAudioBytes.
var ErrTooLarge = errors.New("media exceeds size limit")

// Limits defines safety guardrails for a single job.
type Limits struct {
	MaxAudioBytes int64 // Max downloaded bytes per file, 0 disables the check
}

// DefaultLimits returns the platform's bot download ceiling.
func DefaultLimits() Limits {
	return Limits{
		MaxAudioBytes: 20 * 1024 * 1024,
	}
}

// Downloader opens a byte stream for a platform file id.
type Downloader interface {
	GetFileStream(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Extractor pulls an audio track out of video bytes.
type Extractor interface {
	ExtractAudio(ctx context.Context, video []byte) (models.AudioPayload, error)
}

// StageError reports the pipeline stage at which a job failed.
type StageError struct {
	Stage job.State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage.Stage(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Request describes one media file to transcribe.
type Request struct {
	Kind     string // models.Kind*
	FileID   string
	FileSize int64  // declared size, 0 if unknown
	MIMEType string // declared type; ignored for video notes
}

// Config configures a Pipeline.
type Config struct {
	Retry    retry.Policy
	Limits   Limits
	Provider string           // transcription provider label for metrics
	Metrics  *metrics.Metrics // optional
}

// Pipeline runs the work stages of a job.
// Download and transcription are retry-wrapped; extraction is not.
type Pipeline struct {
	downloader  Downloader
	extractor   Extractor
	transcriber stt.Transcriber
	policy      retry.Policy
	limits      Limits
	provider    string
	metrics     *metrics.Metrics
}

// NewPipeline creates a pipeline. extractor may be nil if video notes are never submitted.
func NewPipeline(downloader Downloader, extractor Extractor, transcriber stt.Transcriber, cfg Config) *Pipeline {
	if cfg.Retry.Attempts == 0 && cfg.Retry.Delay == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	return &Pipeline{
		downloader:  downloader,
		extractor:   extractor,
		transcriber: transcriber,
		policy:      cfg.Retry,
		limits:      cfg.Limits,
		provider:    cfg.Provider,
		metrics:     cfg.Metrics,
	}
}

// Run executes the work stages for req, advancing lc from RECEIVING through
// TRANSCRIBING. On failure lc is left in the failed stage and a *StageError
// is returned; the caller decides how to reply.
func (p *Pipeline) Run(ctx context.Context, lc *job.Lifecycle, req Request) (models.TranscriptionResult, error) {
	logger := zerolog.Ctx(ctx)

	if err := lc.To(job.StateDownloading); err != nil {
		return models.TranscriptionResult{}, err
	}
	if max := p.limits.MaxAudioBytes; max > 0 && req.FileSize > max {
		err := fmt.Errorf("%w: declared %d bytes, limit %d", ErrTooLarge, req.FileSize, max)
		return models.TranscriptionResult{}, &StageError{Stage: job.StateDownloading, Err: err}
	}
	data, err := retry.Do(ctx, p.retryPolicy("download"), "download", func(ctx context.Context) ([]byte, error) {
		return p.download(ctx, req.FileID)
	})
	if err != nil {
		return models.TranscriptionResult{}, &StageError{Stage: job.StateDownloading, Err: err}
	}
	logger.Debug().Int("bytes", len(data)).Str("kind", req.Kind).Msg("Downloaded media")

	payload := models.AudioPayload{Data: data, MIMEType: req.MIMEType}
	if req.Kind == models.KindVideoNote {
		if err := lc.To(job.StateExtracting); err != nil {
			return models.TranscriptionResult{}, err
		}
		payload, err = p.extract(ctx, data)
		if err != nil {
			return models.TranscriptionResult{}, &StageError{Stage: job.StateExtracting, Err: err}
		}
	}
	if payload.MIMEType == "" {
		payload.MIMEType = stt.DefaultMIMEType
	}

	if err := lc.To(job.StateTranscribing); err != nil {
		return models.TranscriptionResult{}, err
	}
	res, err := retry.Do(ctx, p.retryPolicy("transcribe"), "transcribe", func(ctx context.Context) (models.TranscriptionResult, error) {
		return p.transcribe(ctx, payload)
	})
	if err != nil {
		return models.TranscriptionResult{}, &StageError{Stage: job.StateTranscribing, Err: err}
	}
	return res, nil
}

// Transcribe runs only the transcription stage (with retry) on an in-memory payload.
func (p *Pipeline) Transcribe(ctx context.Context, payload models.AudioPayload) (models.TranscriptionResult, error) {
	if payload.MIMEType == "" {
		payload.MIMEType = stt.DefaultMIMEType
	}
	return retry.Do(ctx, p.retryPolicy("transcribe"), "transcribe", func(ctx context.Context) (models.TranscriptionResult, error) {
		return p.transcribe(ctx, payload)
	})
}

// Extract runs only the extraction stage on in-memory video bytes.
func (p *Pipeline) Extract(ctx context.Context, video []byte) (models.AudioPayload, error) {
	return p.extract(ctx, video)
}

func (p *Pipeline) download(ctx context.Context, fileID string) ([]byte, error) {
	rc, err := p.downloader.GetFileStream(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if p.limits.MaxAudioBytes > 0 {
		r = io.LimitReader(rc, p.limits.MaxAudioBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file stream: %w", err)
	}
	if p.limits.MaxAudioBytes > 0 && int64(len(data)) > p.limits.MaxAudioBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, p.limits.MaxAudioBytes)
	}
	if p.metrics != nil {
		p.metrics.RecordDownload(len(data))
	}
	return data, nil
}

func (p *Pipeline) extract(ctx context.Context, video []byte) (models.AudioPayload, error) {
	if p.extractor == nil {
		return models.AudioPayload{}, fmt.Errorf("%w: no extractor configured", media.ErrTranscoder)
	}
	payload, err := p.extractor.ExtractAudio(ctx, video)
	if err != nil && p.metrics != nil {
		p.metrics.RecordExtractionFailure(media.Reason(err))
	}
	return payload, err
}

func (p *Pipeline) transcribe(ctx context.Context, payload models.AudioPayload) (models.TranscriptionResult, error) {
	start := time.Now()
	res, err := p.transcriber.Transcribe(ctx, payload.Data, payload.MIMEType)
	if p.metrics != nil {
		p.metrics.RecordTranscription(p.provider, stt.ErrorType(err), time.Since(start).Seconds())
	}
	return res, err
}

// retryPolicy returns the configured policy with a metrics hook for operation.
func (p *Pipeline) retryPolicy(operation string) retry.Policy {
	policy := p.policy
	if p.metrics != nil {
		next := policy.OnFailure
		policy.OnFailure = func(attempt int, err error) {
			p.metrics.RecordRetry(operation)
			if next != nil {
				next(attempt, err)
			}
		}
	}
	return policy
}
