package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// RateLimiterConfig configures the upstream rate limiter.
type RateLimiterConfig struct {
	// RequestsPerMinute is both the number of slots and the divisor of the
	// minimum spacing between grants. Must be positive.
	RequestsPerMinute int

	// Window is how long a granted slot stays held.
	// Default: 1 minute
	Window time.Duration

	// OnWait is called after a caller had to wait for its grant.
	OnWait func(waited time.Duration)
}

// RateLimiter bounds outbound calls to RequestsPerMinute slots per Window and
// spaces grants at least Window/RequestsPerMinute apart.
type RateLimiter struct {
	slots   *semaphore.Weighted
	window  time.Duration
	spacing time.Duration
	onWait  func(time.Duration)

	mu        sync.Mutex
	lastGrant time.Time
	pending   []*permit
	closed    bool
}

type permit struct {
	timer    *time.Timer
	released bool
}

var errRateLimiterClosed = errors.New("rate limiter closed")

// NewRateLimiter validates cfg and builds a limiter.
func NewRateLimiter(cfg RateLimiterConfig) (*RateLimiter, error) {
	if cfg.RequestsPerMinute <= 0 {
		return nil, errors.New("requests per minute must be positive")
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &RateLimiter{
		slots:   semaphore.NewWeighted(int64(cfg.RequestsPerMinute)),
		window:  cfg.Window,
		spacing: cfg.Window / time.Duration(cfg.RequestsPerMinute),
		onWait:  cfg.OnWait,
	}, nil
}

// Acquire blocks until a slot is free and the minimum spacing since the
// previous grant has elapsed. The slot returns to the pool one window after
// the grant whatever the caller does with it. On cancellation it returns
// ctx.Err() and nothing is held.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	queuedAt := time.Now()
	if err := l.slots.Acquire(ctx, 1); err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.slots.Release(1)
		return errRateLimiterClosed
	}
	now := time.Now()
	previous := l.lastGrant
	start := now
	if next := previous.Add(l.spacing); next.After(now) {
		start = next
	}
	l.lastGrant = start
	l.mu.Unlock()

	if wait := time.Until(start); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.mu.Lock()
			if l.lastGrant.Equal(start) {
				l.lastGrant = previous
			}
			l.mu.Unlock()
			l.slots.Release(1)
			return ctx.Err()
		case <-timer.C:
		}
	}

	l.holdForWindow()
	if l.onWait != nil {
		if waited := time.Since(queuedAt); waited > time.Millisecond {
			l.onWait(waited)
		}
	}
	return nil
}

// Release hands back the oldest outstanding slot before its window ends.
// Slots are normally released by their own timer; Release exists for
// shutdown paths and is a no-op when nothing is held.
func (l *RateLimiter) Release() {
	l.mu.Lock()
	if len(l.pending) == 0 {
		l.mu.Unlock()
		return
	}
	p := l.pending[0]
	l.mu.Unlock()

	p.timer.Stop()
	l.releasePermit(p)
}

// Close stops all pending release timers, frees their slots and makes
// further Acquire calls fail.
func (l *RateLimiter) Close() {
	l.mu.Lock()
	l.closed = true
	pending := append([]*permit(nil), l.pending...)
	l.mu.Unlock()

	for _, p := range pending {
		p.timer.Stop()
		l.releasePermit(p)
	}
}

// InFlight returns the number of slots currently held.
func (l *RateLimiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Spacing is the minimum gap between two grants.
func (l *RateLimiter) Spacing() time.Duration {
	return l.spacing
}

func (l *RateLimiter) holdForWindow() {
	p := &permit{}
	l.mu.Lock()
	p.timer = time.AfterFunc(l.window, func() { l.releasePermit(p) })
	l.pending = append(l.pending, p)
	l.mu.Unlock()
}

func (l *RateLimiter) releasePermit(p *permit) {
	l.mu.Lock()
	if p.released {
		l.mu.Unlock()
		return
	}
	p.released = true
	for i, candidate := range l.pending {
		if candidate == p {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			break
		}
	}
	l.mu.Unlock()
	l.slots.Release(1)
}
