package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errFatal     = errors.New("fatal")
)

func classifyTest(err error) Action {
	if errors.Is(err, errFatal) {
		return Stop
	}
	return Retry
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	var delays []time.Duration
	p := Policy{
		MaxAttempts: 3,
		Delay:       time.Nanosecond,
		OnRetry: func(_ int, _ error, d time.Duration) {
			delays = append(delays, d)
		},
	}

	val, err := Do(context.Background(), p, classifyTest, func(attempt int) (string, error) {
		if attempt < 3 {
			return "", errTransient
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, []time.Duration{time.Nanosecond, time.Nanosecond}, delays)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 3, Delay: time.Nanosecond}, classifyTest, func(int) (int, error) {
		calls++
		return 0, errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestDoSingleAttemptReturnsRawError(t *testing.T) {
	_, err := Do(context.Background(), Policy{MaxAttempts: 1}, classifyTest, func(int) (int, error) {
		return 0, errTransient
	})
	assert.Equal(t, errTransient, err)
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 5, Delay: time.Nanosecond}, classifyTest, func(int) (int, error) {
		calls++
		return 0, errFatal
	})

	var perm *PermanentError
	require.True(t, errors.As(err, &perm))
	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, calls)
}

func TestDoWaitsFixedDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := Policy{MaxAttempts: 2, Delay: time.Second, Clock: clock}

	done := make(chan error, 1)
	go func() {
		_, err := Do(context.Background(), p, classifyTest, func(attempt int) (int, error) {
			if attempt == 1 {
				return 0, errTransient
			}
			return attempt, nil
		})
		done <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	select {
	case <-done:
		t.Fatal("retried before the delay elapsed")
	default:
	}

	clock.Advance(time.Second)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("retry did not resume after delay")
	}
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, Policy{MaxAttempts: 3, Delay: time.Hour}, classifyTest, func(int) (int, error) {
		return 0, errTransient
	})
	assert.ErrorIs(t, err, context.Canceled)
}
