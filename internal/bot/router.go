// Package bot routes inbound platform events through the media pipeline
// and delivers the replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"voice-relay-bot/internal/models"
	"voice-relay-bot/internal/observability/logging"
	"voice-relay-bot/internal/observability/metrics"
	"voice-relay-bot/internal/service/audio"
	"voice-relay-bot/internal/service/job"
	"voice-relay-bot/internal/service/typing"
)

// VoiceMIMEType labels voice messages regardless of what the platform declares.
const VoiceMIMEType = "audio/ogg"

// FailureReplyTimeout bounds the failure reply and failed event of a job.
const FailureReplyTimeout = 5 * time.Second

// SupportedMIMETypes is the allow-list for audio documents.
var SupportedMIMETypes = map[string]bool{
	"audio/mpeg":  true,
	"audio/mp4":   true,
	"audio/ogg":   true,
	"audio/wav":   true,
	"audio/x-m4a": true,
	"audio/aac":   true,
}

// Messenger is the outgoing side of the chat transport.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts models.SendOptions) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// Pipeline runs the work stages of a job.
type Pipeline interface {
	Run(ctx context.Context, lc *job.Lifecycle, req audio.Request) (models.TranscriptionResult, error)
}

// EventPublisher receives job results.
type EventPublisher interface {
	PublishCompleted(ctx context.Context, ev models.TranscriptCompleted) error
	PublishFailed(ctx context.Context, ev models.TranscriptFailed) error
}

// TypingSession is a running "typing…" status.
type TypingSession interface {
	Start()
	Stop()
}

// Config configures a Router.
type Config struct {
	// Self is the bot's own account, used to recognize its own arrival in a chat.
	Self models.BotIdentity

	TypingInterval time.Duration
	// MaxConcurrentJobs caps jobs started by Submit; 0 means unlimited.
	MaxConcurrentJobs int64

	Metrics   *metrics.Metrics // default metrics.DefaultMetrics
	Publisher EventPublisher   // optional

	// NewTyping overrides how typing sessions are created.
	NewTyping func(ctx context.Context, chatID int64) TypingSession
}

// Router dispatches inbound events. Each event is handled independently;
// no state is shared between events except the immutable bot identity.
type Router struct {
	messenger Messenger
	pipeline  Pipeline
	self      models.BotIdentity
	jobs      *job.Generator
	metrics   *metrics.Metrics
	publisher EventPublisher
	newTyping func(ctx context.Context, chatID int64) TypingSession

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	// jobCtx outlives the poll loop so in-flight jobs can finish during shutdown.
	jobCtx     context.Context
	cancelJobs context.CancelFunc
}

// NewRouter creates a router.
func NewRouter(messenger Messenger, pipeline Pipeline, cfg Config) *Router {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultMetrics
	}
	r := &Router{
		messenger: messenger,
		pipeline:  pipeline,
		self:      cfg.Self,
		jobs:      job.NewGenerator(),
		metrics:   cfg.Metrics,
		publisher: cfg.Publisher,
		newTyping: cfg.NewTyping,
	}
	if r.newTyping == nil {
		interval := cfg.TypingInterval
		r.newTyping = func(ctx context.Context, chatID int64) TypingSession {
			return typing.New(ctx, messenger, chatID, interval)
		}
	}
	if cfg.MaxConcurrentJobs > 0 {
		r.sem = semaphore.NewWeighted(cfg.MaxConcurrentJobs)
	}
	r.jobCtx, r.cancelJobs = context.WithCancel(context.Background())
	return r
}

// Submit handles ev on its own goroutine. With a concurrency cap, Submit
// blocks until a slot is free, which also pauses the caller's poll loop.
// Returns false if ctx ended before a slot was acquired.
func (r *Router) Submit(ctx context.Context, ev models.InboundEvent) bool {
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Int64("chatId", ev.ChatID).Str("kind", ev.Kind.String()).Msg("Dropping event, no job slot")
			return false
		}
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if r.sem != nil {
			defer r.sem.Release(1)
		}
		r.Dispatch(r.jobCtx, ev)
	}()
	return true
}

// Wait blocks until all submitted events are handled. If ctx ends first,
// in-flight jobs are cancelled and ctx's error is returned.
func (r *Router) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.cancelJobs()
		return fmt.Errorf("waiting for in-flight jobs: %w", ctx.Err())
	}
}

// Dispatch handles one event synchronously.
func (r *Router) Dispatch(ctx context.Context, ev models.InboundEvent) {
	r.metrics.RecordUpdate(ev.Kind.String())

	switch ev.Kind {
	case models.EventVoice:
		r.handleMedia(ctx, ev, models.KindVoice, VoiceMIMEType)
	case models.EventDocument:
		r.handleDocument(ctx, ev)
	case models.EventVideoNote:
		r.handleMedia(ctx, ev, models.KindVideoNote, "")
	case models.EventMembershipChange:
		r.handleMembership(ctx, ev)
	case models.EventTransportError:
		log.Error().Err(ev.Err).Msg("Transport error")
	default:
		log.Debug().Int64("chatId", ev.ChatID).Msg("Ignoring unsupported event")
	}
}

func (r *Router) handleDocument(ctx context.Context, ev models.InboundEvent) {
	mimeType := normalizeMIME(ev.MIMEType)
	if !strings.HasPrefix(mimeType, "audio/") {
		log.Debug().Int64("chatId", ev.ChatID).Str("mimeType", ev.MIMEType).Msg("Ignoring non-audio document")
		return
	}
	if !SupportedMIMETypes[mimeType] {
		logger := logging.WithChat(ev.ChatID, ev.Username)
		logger.Info().Str("mimeType", mimeType).Msg("Unsupported audio format")

		lc := job.NewLifecycle(r.jobs.Next(ev.ChatID))
		advance(&logger, lc, job.StateReceiving)
		advance(&logger, lc, job.StateReplying)
		r.send(logger.WithContext(ctx), ev, "unsupported", Reply{Text: UnsupportedFormatText})
		advance(&logger, lc, job.StateIdle)
		return
	}
	r.handleMedia(ctx, ev, models.KindAudioDocument, mimeType)
}

func (r *Router) handleMedia(ctx context.Context, ev models.InboundEvent, kind, mimeType string) {
	jobID := r.jobs.Next(ev.ChatID)
	logger := logging.WithJob(jobID, ev.ChatID, ev.Username).With().Str("kind", kind).Logger()
	ctx = logger.WithContext(ctx)

	lc := job.NewLifecycle(jobID)
	advance(&logger, lc, job.StateReceiving)
	if ev.FileID == "" {
		logger.Warn().Msg("Message has no file reference, ignoring")
		advance(&logger, lc, job.StateIdle)
		return
	}

	start := time.Now()
	r.metrics.RecordJobStart()
	logger.Info().Int64("fileSize", ev.FileSize).Msg("Processing media")

	// Typing runs for the work stages only and is stopped before any reply.
	indicator := r.newTyping(ctx, ev.ChatID)
	indicator.Start()
	stopped := false
	stopTyping := func() {
		if !stopped {
			stopped = true
			indicator.Stop()
		}
	}
	defer stopTyping()

	res, err := r.pipeline.Run(ctx, lc, audio.Request{Kind: kind, FileID: ev.FileID, FileSize: ev.FileSize, MIMEType: mimeType})
	stopTyping()

	if err != nil {
		r.fail(ctx, lc, ev, kind, err, start)
		return
	}

	advance(&logger, lc, job.StateReplying)
	var sendErr error
	for _, reply := range FormatReply(res) {
		if sendErr = r.send(ctx, ev, "transcript", reply); sendErr != nil {
			break
		}
	}
	advance(&logger, lc, job.StateIdle)

	elapsed := time.Since(start)
	stage := ""
	if sendErr != nil {
		stage = job.StateReplying.Stage()
	}
	r.metrics.RecordJobEnd(kind, stage, elapsed.Seconds())
	logger.Info().
		Dur("duration", elapsed).
		Int("textLength", len(res.TranscribedText)).
		Bool("tldr", res.TLDR != nil).
		Msg("Transcript delivered")

	if r.publisher != nil && sendErr == nil {
		if err := r.publisher.PublishCompleted(ctx, models.TranscriptCompleted{
			JobID:      jobID,
			ChatID:     ev.ChatID,
			MessageID:  ev.MessageID,
			Username:   ev.Username,
			Kind:       kind,
			MIMEType:   mimeType,
			Text:       res.TranscribedText,
			TLDR:       res.TLDR,
			DurationMs: elapsed.Milliseconds(),
		}); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish completed event")
		}
	}
}

// fail logs the failure, sends the fixed failure reply and records the outcome.
// Nothing here propagates: the failure reply is best effort.
//
// The reply and the failed event are sent on a context detached from ctx,
// so a job cancelled at shutdown still tells the user it failed.
func (r *Router) fail(ctx context.Context, lc *job.Lifecycle, ev models.InboundEvent, kind string, err error, start time.Time) {
	logger := zerolog.Ctx(ctx)

	stage := lc.State()
	var se *audio.StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}
	if _, ok := lc.Fail(); !ok {
		logger.Warn().Str("state", lc.State().String()).Msg("Failure outside a work stage")
	}

	logger.Error().
		Err(err).
		Str("stage", stage.Stage()).
		Str("failedAt", lc.FailedAt().String()).
		Msg("Job failed")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FailureReplyTimeout)
	defer cancel()

	r.send(ctx, ev, "failure", Reply{Text: FailureText})
	lc.Finish()

	elapsed := time.Since(start)
	r.metrics.RecordJobEnd(kind, stage.Stage(), elapsed.Seconds())

	if r.publisher != nil {
		if perr := r.publisher.PublishFailed(ctx, models.TranscriptFailed{
			JobID:      lc.JobID(),
			ChatID:     ev.ChatID,
			MessageID:  ev.MessageID,
			Username:   ev.Username,
			Kind:       kind,
			Stage:      stage.Stage(),
			Error:      err.Error(),
			DurationMs: elapsed.Milliseconds(),
		}); perr != nil {
			logger.Warn().Err(perr).Msg("Failed to publish failed event")
		}
	}
}

func (r *Router) handleMembership(ctx context.Context, ev models.InboundEvent) {
	for _, id := range ev.NewMemberIDs {
		if id != r.self.ID || r.self.ID == 0 {
			continue
		}
		logger := logging.WithChat(ev.ChatID, ev.Username)
		logger.Info().Msg("Added to chat, sending greeting")
		err := r.messenger.SendMessage(ctx, ev.ChatID, GreetingText, models.SendOptions{})
		r.metrics.RecordReply("greeting", err)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to send greeting")
		}
		return
	}
}

// send delivers one reply threaded to the originating message.
// Errors are logged and returned, never retried.
func (r *Router) send(ctx context.Context, ev models.InboundEvent, replyType string, reply Reply) error {
	err := r.messenger.SendMessage(ctx, ev.ChatID, reply.Text, models.SendOptions{
		ReplyToMessageID: ev.MessageID,
		HTML:             reply.HTML,
	})
	r.metrics.RecordReply(replyType, err)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("replyType", replyType).Msg("Failed to deliver reply")
	}
	return err
}

// advance moves lc to next, logging a rejected transition.
func advance(logger *zerolog.Logger, lc *job.Lifecycle, next job.State) {
	if err := lc.To(next); err != nil {
		logger.Error().Err(err).Str("jobId", lc.JobID()).Msg("Unexpected job state")
	}
}

// normalizeMIME lowercases a MIME type and drops parameters.
func normalizeMIME(s string) string {
	s, _, _ = strings.Cut(s, ";")
	return strings.ToLower(strings.TrimSpace(s))
}
