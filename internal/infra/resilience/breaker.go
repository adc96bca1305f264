package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed lets calls through and counts consecutive failures.
	StateClosed State = iota
	// StateHalfOpen lets a single trial call through.
	StateHalfOpen
	// StateOpen rejects calls without touching the network.
	StateOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// FailureThreshold is the number of consecutive failures that opens the
	// circuit.
	// Default: 5
	FailureThreshold uint32

	// BreakDuration is how long the circuit stays open before a trial call.
	// Default: 30 seconds
	BreakDuration time.Duration

	// OnStateChange observes transitions. It must not block.
	OnStateChange func(from, to State)
}

// Breaker is a consecutive-failure circuit breaker around single attempts.
// Non-2xx responses and transport errors count as failures. A call cancelled
// by the caller counts as neither a success nor a failure.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[HTTPResult]
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.code)
}

// NewBreaker builds a Breaker with defaults applied.
func NewBreaker(config BreakerConfig) (*Breaker, error) {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.BreakDuration < 0 {
		return nil, errors.New("break duration cannot be negative")
	}
	if config.BreakDuration == 0 {
		config.BreakDuration = 30 * time.Second
	}
	if config.Name == "" {
		config.Name = "upstream"
	}

	threshold := config.FailureThreshold
	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: 1,
		Timeout:     config.BreakDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	}
	if config.OnStateChange != nil {
		notify := config.OnStateChange
		settings.OnStateChange = func(_ string, from, to gobreaker.State) {
			notify(fromGobreaker(from), fromGobreaker(to))
		}
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker[HTTPResult](settings)}, nil
}

// Execute runs op unless the circuit is open. A rejected call yields
// HTTPResult{Err: ErrCircuitOpen} and op is not invoked.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) HTTPResult) HTTPResult {
	res, err := b.cb.Execute(func() (HTTPResult, error) {
		r := op(ctx)
		switch {
		case r.Err != nil:
			return r, r.Err
		case !r.Succeeded():
			return r, &statusError{code: r.StatusCode}
		default:
			return r, nil
		}
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return HTTPResult{Err: ErrCircuitOpen}
	}
	return res
}

// State returns the current circuit state.
func (b *Breaker) State() State {
	return fromGobreaker(b.cb.State())
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.cb.Name()
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
