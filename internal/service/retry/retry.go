// Package retry runs an operation again after a fixed delay when it fails.
//
// Every error is retried identically: there is no backoff, no jitter and no
// classification of retryable errors.
package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Policy configures Do.
type Policy struct {
	Attempts int           // total attempts, default 3
	Delay    time.Duration // wait between attempts, default 1s

	// OnFailure, if set, is called after every failed attempt.
	OnFailure func(attempt int, err error)
}

// DefaultPolicy returns 3 attempts with a 1 second delay.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		Delay:    time.Second,
	}
}

// Do invokes fn up to p.Attempts times and returns the first success.
// When every attempt fails, the error of the last attempt is returned as is.
// A cancelled ctx interrupts the wait between attempts and returns ctx.Err().
//
// Attempts are logged through the logger attached to ctx (zerolog.Ctx).
func Do[T any](ctx context.Context, p Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	logger := zerolog.Ctx(ctx)

	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if p.OnFailure != nil {
			p.OnFailure(attempt, err)
		}

		logger.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Int("maxAttempts", attempts).
			Msg("Attempt failed")

		if attempt == attempts {
			break
		}

		if p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
