package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), Policy{Attempts: 3}, "op", func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
}

func TestDo_StopsAfterSuccess(t *testing.T) {
	for k := 1; k < 3; k++ {
		t.Run(fmt.Sprintf("succeeds on attempt %d", k), func(t *testing.T) {
			calls := 0
			v, err := Do(context.Background(), Policy{Attempts: 3}, "op", func(context.Context) (int, error) {
				calls++
				if calls < k {
					return 0, errors.New("transient")
				}
				return 7, nil
			})

			require.NoError(t, err)
			assert.Equal(t, 7, v)
			assert.Equal(t, k, calls, "no attempts after the successful one")
		})
	}
}

func TestDo_ReturnsLastErrorUnchanged(t *testing.T) {
	errs := []error{errors.New("first"), errors.New("second"), errors.New("third")}
	calls := 0

	_, err := Do(context.Background(), Policy{Attempts: 3}, "op", func(context.Context) (struct{}, error) {
		e := errs[calls]
		calls++
		return struct{}{}, e
	})

	assert.Equal(t, 3, calls)
	assert.Same(t, errs[2], err, "error must be the last attempt's error value")
}

func TestDo_WaitsFixedDelay(t *testing.T) {
	start := time.Now()
	_, err := Do(context.Background(), Policy{Attempts: 3, Delay: 20 * time.Millisecond}, "op", func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})

	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond, "two waits between three attempts")
}

func TestDo_OnFailureCalledPerAttempt(t *testing.T) {
	var seen []int
	p := Policy{Attempts: 3, OnFailure: func(attempt int, _ error) { seen = append(seen, attempt) }}

	_, _ = Do(context.Background(), p, "op", func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})

	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, "op", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Do(ctx, Policy{Attempts: 3, Delay: time.Hour}, "op", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("boom")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
