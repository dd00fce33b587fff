// Package typing keeps a chat's "typing…" status alive during slow work.
package typing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is how often the platform must be re-signalled; the
// status expires on its own after roughly five seconds.
const DefaultInterval = 6 * time.Second

// ActionTyping is the chat action sent by the indicator.
const ActionTyping = "typing"

// ActionSender sends a chat action such as "typing".
type ActionSender interface {
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// Indicator repeatedly signals "typing" to one chat between Start and Stop.
// Safe for concurrent use. Stop is a no-op when not started.
type Indicator struct {
	parent   context.Context
	sender   ActionSender
	chatID   int64
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an inactive indicator for chatID.
func New(ctx context.Context, sender ActionSender, chatID int64, interval time.Duration) *Indicator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Indicator{
		parent:   ctx,
		sender:   sender,
		chatID:   chatID,
		interval: interval,
	}
}

// Start signals immediately and then every interval until Stop.
// Calling Start on a running indicator does nothing.
func (i *Indicator) Start() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(i.parent)
	i.cancel = cancel
	i.done = make(chan struct{})

	i.signal(ctx)

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(i.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				i.signal(ctx)
			}
		}
	}(i.done)
}

// Stop ends the signalling and waits for the background loop to exit,
// so no signal is sent after Stop returns.
func (i *Indicator) Stop() {
	i.mu.Lock()
	cancel, done := i.cancel, i.done
	i.cancel, i.done = nil, nil
	i.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// active reports whether the indicator is running.
func (i *Indicator) active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cancel != nil
}

func (i *Indicator) signal(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := i.sender.SendChatAction(ctx, i.chatID, ActionTyping); err != nil {
		zerolog.Ctx(i.parent).Debug().
			Err(err).
			Int64("chatId", i.chatID).
			Msg("Failed to send typing action")
	}
}
