// Package app wires the bot's components together and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"voice-relay-bot/internal/bot"
	"voice-relay-bot/internal/config"
	"voice-relay-bot/internal/events"
	apphttp "voice-relay-bot/internal/http"
	"voice-relay-bot/internal/models"
	"voice-relay-bot/internal/observability"
	"voice-relay-bot/internal/observability/logging"
	"voice-relay-bot/internal/observability/metrics"
	"voice-relay-bot/internal/service/audio"
	"voice-relay-bot/internal/service/media"
	"voice-relay-bot/internal/service/retry"
	"voice-relay-bot/internal/service/stt"
	"voice-relay-bot/internal/service/stt/gemini"
	"voice-relay-bot/internal/service/stt/mock"
	"voice-relay-bot/internal/transport/proxy"
	"voice-relay-bot/internal/transport/telegram"
)

// JobDrainTimeout bounds how long shutdown waits for in-flight jobs.
const JobDrainTimeout = 10 * time.Second

// ErrUnknownProvider is returned for an STT_PROVIDER value with no adapter.
var ErrUnknownProvider = errors.New("unknown transcription provider")

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
	Self        models.BotIdentity

	client    *telegram.Client
	poller    *telegram.Poller
	router    *bot.Router
	publisher *events.Publisher
	server    *observability.Server
}

// New constructs the Application. The bot identity is resolved here, so an
// invalid token or unreachable platform fails construction.
func New(ctx context.Context, cfg *config.Configuration) (*Application, error) {
	a := &Application{
		Cfg: cfg,
		Logger: logging.WithComponent("application").With().
			Str("service", "voice-relay-bot").
			Logger(),
	}

	httpClient, err := proxy.NewHTTPClient(cfg.Network.ProxyAddr, proxy.DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("build http client: %w", err)
	}

	a.client, err = telegram.New(telegram.Config{
		Token:       cfg.Telegram.BotToken,
		APIEndpoint: cfg.Telegram.APIEndpoint,
		HTTPClient:  httpClient,
	})
	if err != nil {
		return nil, err
	}
	a.Self = a.client.GetMe()

	transcriber, err := NewTranscriber(ctx, cfg, httpClient)
	if err != nil {
		return nil, err
	}

	extractor := media.New(media.Config{
		FFmpegPath:     cfg.Media.FFmpegPath,
		MinOutputBytes: cfg.Media.MinOutputBytes,
	})

	pipeline := audio.NewPipeline(a.client, extractor, transcriber, PipelineConfig(cfg))

	a.publisher = events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicCompleted: cfg.Kafka.TopicCompleted,
		TopicFailed:    cfg.Kafka.TopicFailed,
		Principal:      cfg.Kafka.Principal,
	})

	a.router = bot.NewRouter(a.client, pipeline, bot.Config{
		Self:              a.Self,
		TypingInterval:    cfg.Typing.Interval,
		MaxConcurrentJobs: int64(cfg.Limits.MaxConcurrentJobs),
		Metrics:           metrics.DefaultMetrics,
		Publisher:         a.publisher,
	})

	a.poller = a.client.NewPoller(telegram.PollerConfig{Timeout: cfg.Telegram.PollTimeout})

	if cfg.Observability.MetricsAddr != "" {
		a.server = observability.NewServer(cfg.Observability.MetricsAddr, apphttp.NewRouter(a.Ready, nil))
	}

	a.Logger.Info().
		Int64("botId", a.Self.ID).
		Str("botUsername", a.Self.Username).
		Str("provider", cfg.AI.Provider).
		Str("model", cfg.AI.Model).
		Bool("proxy", cfg.Network.ProxyAddr != "").
		Bool("kafka", a.publisher.Enabled()).
		Msg("Voice relay bot application created")
	return a, nil
}

// NewTranscriber builds the transcription adapter selected by STT_PROVIDER.
func NewTranscriber(ctx context.Context, cfg *config.Configuration, httpClient *http.Client) (stt.Transcriber, error) {
	switch cfg.AI.Provider {
	case "gemini", "":
		adapter, err := gemini.New(ctx, gemini.Config{
			APIKey:     cfg.AI.APIKey,
			Model:      cfg.AI.Model,
			Timeout:    cfg.AI.Timeout,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, err
		}
		return adapter, nil
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.AI.Provider)
	}
}

// PipelineConfig maps configuration onto the media pipeline's settings.
func PipelineConfig(cfg *config.Configuration) audio.Config {
	provider := cfg.AI.Provider
	if provider == "" {
		provider = "gemini"
	}
	return audio.Config{
		Retry: retry.Policy{
			Attempts: cfg.Retry.Attempts,
			Delay:    cfg.Retry.Delay,
		},
		Limits:   audio.Limits{MaxAudioBytes: cfg.Limits.MaxAudioBytes},
		Provider: provider,
		Metrics:  metrics.DefaultMetrics,
	}
}

// Start opens the metrics listener (if configured) and begins polling.
// Polling stops when ctx is cancelled or Shutdown is called.
func (a *Application) Start(ctx context.Context) error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	if a.server != nil {
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("start observability server: %w", err)
		}
	}

	a.StartupTime = time.Now().UTC()
	go a.poller.Run(ctx, func(ctx context.Context, ev models.InboundEvent) {
		a.router.Submit(ctx, ev)
	})

	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Voice relay bot polling for updates")
	return nil
}

// Ready reports whether the bot is receiving updates.
func (a *Application) Ready() bool {
	return a.poller != nil && a.poller.IsPolling()
}

// Shutdown stops polling, waits up to JobDrainTimeout for in-flight jobs,
// stops the metrics server and closes the Kafka writers. Every step runs;
// their errors are joined.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()
	shutdownLogger.Info().Msg("Voice relay bot shutting down")

	var errs []error

	if err := a.poller.StopPolling(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop polling: %w", err))
	}

	drainCtx, cancel := context.WithTimeout(ctx, JobDrainTimeout)
	if err := a.router.Wait(drainCtx); err != nil {
		errs = append(errs, err)
	}
	cancel()

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop observability server: %w", err))
		}
	}

	if err := a.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		shutdownLogger.Error().Err(err).Msg("Shutdown completed with errors")
		return err
	}
	shutdownLogger.Info().Dur("uptime", time.Since(a.StartupTime)).Msg("Shutdown complete")
	return nil
}
