package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultMaxAttempts = 3
	maxAttemptsCeiling = 10
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; each following delay
	// doubles it.
	BaseDelay time.Duration

	// OnRetry is called before waiting for the next attempt.
	OnRetry func(attempt int, last HTTPResult, delay time.Duration)
}

// Retry re-runs an attempt while its result is Retryable.
type Retry struct {
	config RetryConfig
}

// NewRetry validates config and builds a Retry.
func NewRetry(config RetryConfig) (*Retry, error) {
	if config.MaxAttempts == 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.MaxAttempts < 0 || config.MaxAttempts > maxAttemptsCeiling {
		return nil, errors.New("max attempts must be between 1 and 10")
	}
	if config.BaseDelay < 0 {
		return nil, errors.New("base delay cannot be negative")
	}
	return &Retry{config: config}, nil
}

// Execute runs op until it returns a non-retryable result or MaxAttempts is
// reached, waiting BaseDelay*2^(k-1) after attempt k. When attempts run out
// the last result is returned as is. A cancelled ctx during a backoff wait
// ends the loop with a result carrying ctx.Err().
func (r *Retry) Execute(ctx context.Context, op func(context.Context) HTTPResult) HTTPResult {
	delays := r.schedule()

	var last HTTPResult
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		last = op(ctx)
		if !Retryable(last) || attempt == r.config.MaxAttempts {
			return last
		}

		delay := delays.NextBackOff()
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, last, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return HTTPResult{Err: ctx.Err()}
		case <-timer.C:
		}
	}
	return last
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func (r *Retry) schedule() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     r.config.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         r.config.BaseDelay << r.config.MaxAttempts,
	}
	b.Reset()
	return b
}
