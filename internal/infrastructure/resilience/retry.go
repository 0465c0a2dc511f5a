package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Action tells Do what to do with a failed attempt
type Action int

const (
	Stop  Action = iota // permanent error, abort immediately
	Retry               // transient error, try again after the delay
)

// Policy configures Do
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Multiplier grows the delay after each attempt; values <= 1 keep it fixed.
	Multiplier float64
	Clock      clockwork.Clock
	OnRetry    func(attempt int, err error, delay time.Duration)
}

// Classify maps an attempt error to an Action
type Classify func(err error) Action

// Operation is one attempt
type Operation[T any] func(attempt int) (T, error)

// PermanentError wraps an error classified as Stop
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Do runs op until it succeeds, classify returns Stop, attempts run out, or
// ctx is done. The last attempt's error is wrapped and returned.
func Do[T any](ctx context.Context, p Policy, classify Classify, op Operation[T]) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	delay := p.Delay

	for attempt := 1; ; attempt++ {
		val, err := op(attempt)
		if err == nil {
			return val, nil
		}

		if classify != nil && classify(err) == Stop {
			return zero, &PermanentError{Err: err}
		}
		if attempt >= p.MaxAttempts {
			if p.MaxAttempts == 1 {
				return zero, err
			}
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		timer := clock.NewTimer(delay)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
		if p.Multiplier > 1 {
			delay = time.Duration(float64(delay) * p.Multiplier)
		}
	}
}
