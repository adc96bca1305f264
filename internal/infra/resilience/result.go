// Package resilience guards calls to a single upstream HTTP dependency with a
// rate limiter, a retry loop and a circuit breaker.
//
// The expected composition is
//
//	limiter.Acquire(ctx)
//	retry.Execute(ctx, func(ctx context.Context) HTTPResult {
//		return breaker.Execute(ctx, attempt)
//	})
//
// so that every individual attempt is subject to the breaker and an open
// circuit ends the retry loop early.
package resilience

import (
	"context"
	"errors"
	"net/http"
)

// ErrCircuitOpen is reported in HTTPResult.Err when the breaker rejected an
// attempt without touching the network.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// HTTPResult is the outcome of a single upstream attempt. Err is set for
// transport level failures (and locally generated ones such as
// ErrCircuitOpen); StatusCode and Body are set when a response arrived.
type HTTPResult struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Succeeded reports a 2xx response without transport error.
func (r HTTPResult) Succeeded() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Cancelled reports whether the attempt ended because the caller gave up.
func (r HTTPResult) Cancelled() bool {
	return errors.Is(r.Err, context.Canceled)
}

// Retryable reports whether another attempt may succeed: 429, 500, 502, 503,
// 504 and transport failures. Cancellation and an open circuit are final.
func Retryable(r HTTPResult) bool {
	if r.Err != nil {
		return !r.Cancelled() && !errors.Is(r.Err, ErrCircuitOpen)
	}
	switch r.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
