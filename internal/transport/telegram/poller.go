package telegram

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"voice-relay-bot/internal/models"
)

// PollerConfig configures the long-poll loop.
type PollerConfig struct {
	Timeout    time.Duration // long-poll wait, default 30s
	ErrorDelay time.Duration // pause after a failed poll, default 3s
}

// updatesAPI is the subset of *tgbotapi.BotAPI used for polling.
type updatesAPI interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Poller fetches updates with getUpdates and hands each one, normalized,
// to a handler. Poll failures are delivered as EventTransportError and the
// loop keeps running.
type Poller struct {
	api        updatesAPI
	timeout    int
	errorDelay time.Duration

	// pollCtx bounds in-flight getUpdates requests so StopPolling can abort them.
	pollCtx context.Context
	cancel  context.CancelFunc

	polling atomic.Bool
	done    chan struct{}
}

func newPoller(token, endpoint string, client *http.Client, cfg PollerConfig) *Poller {
	p := newPollerWithAPI(nil, cfg)

	// A separate BotAPI whose requests are bound to pollCtx; sending keeps
	// using the main client so replies are not cut off by StopPolling.
	api := &tgbotapi.BotAPI{
		Token:  token,
		Client: &contextClient{inner: client, ctx: p.pollCtx},
		Buffer: 100,
	}
	api.SetAPIEndpoint(endpoint)
	p.api = api
	return p
}

func newPollerWithAPI(api updatesAPI, cfg PollerConfig) *Poller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ErrorDelay <= 0 {
		cfg.ErrorDelay = 3 * time.Second
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	return &Poller{
		api:        api,
		timeout:    int(cfg.Timeout.Seconds()),
		errorDelay: cfg.ErrorDelay,
		pollCtx:    pollCtx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run polls until ctx is cancelled or StopPolling is called. It must be
// called at most once. handle is called synchronously for each event, in
// arrival order.
func (p *Poller) Run(ctx context.Context, handle func(context.Context, models.InboundEvent)) {
	p.polling.Store(true)
	defer func() {
		p.polling.Store(false)
		close(p.done)
	}()

	stop := context.AfterFunc(ctx, p.cancel)
	defer stop()

	log.Info().Int("timeoutSec", p.timeout).Msg("Polling for updates")

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout

	for p.pollCtx.Err() == nil {
		updates, err := p.api.GetUpdates(cfg)
		if err != nil {
			if p.pollCtx.Err() != nil {
				break
			}
			handle(ctx, models.InboundEvent{Kind: models.EventTransportError, Err: err})
			select {
			case <-p.pollCtx.Done():
			case <-time.After(p.errorDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= cfg.Offset {
				cfg.Offset = u.UpdateID + 1
			}
			if ev, ok := ToEvent(u); ok {
				handle(ctx, ev)
			}
		}
	}

	log.Info().Msg("Polling stopped")
}

// IsPolling reports whether Run is active.
func (p *Poller) IsPolling() bool {
	return p.polling.Load()
}

// StopPolling cancels any in-flight long poll and waits for Run to return.
// Safe to call more than once, or when Run was never started.
func (p *Poller) StopPolling(ctx context.Context) error {
	p.cancel()
	if !p.IsPolling() {
		return nil
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// contextClient binds every request to ctx.
type contextClient struct {
	inner *http.Client
	ctx   context.Context
}

func (c *contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.inner.Do(req.WithContext(c.ctx))
}
