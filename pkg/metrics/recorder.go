package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns the Prometheus collectors of the service. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	upstreamAttempts   *prometheus.CounterVec
	upstreamDuration   prometheus.Histogram
	upstreamRetries    prometheus.Counter
	breakerTransitions *prometheus.CounterVec
	breakerState       prometheus.Gauge
	limiterWait        prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewRecorder builds the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		upstreamAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "summarizer",
				Subsystem: "upstream",
				Name:      "attempts_total",
				Help:      "Upstream inference attempts by outcome",
			},
			[]string{"outcome"},
		),
		upstreamDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "summarizer",
				Subsystem: "upstream",
				Name:      "attempt_duration_seconds",
				Help:      "Duration of single upstream attempts in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		),
		upstreamRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "summarizer",
				Subsystem: "upstream",
				Name:      "retries_total",
				Help:      "Retries scheduled after transient upstream failures",
			},
		),
		breakerTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "summarizer",
				Subsystem: "breaker",
				Name:      "transitions_total",
				Help:      "Circuit breaker state transitions",
			},
			[]string{"from", "to"},
		),
		breakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "summarizer",
				Subsystem: "breaker",
				Name:      "state",
				Help:      "Current circuit state (0 closed, 1 half-open, 2 open)",
			},
		),
		limiterWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "summarizer",
				Subsystem: "ratelimiter",
				Name:      "wait_seconds",
				Help:      "Time spent waiting for an upstream permit",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "summarizer",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "summarizer",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method", "status"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			r.upstreamAttempts,
			r.upstreamDuration,
			r.upstreamRetries,
			r.breakerTransitions,
			r.breakerState,
			r.limiterWait,
			r.httpRequests,
			r.httpDuration,
		)
	}
	return r
}

// UpstreamAttempt records one upstream call.
func (r *Recorder) UpstreamAttempt(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.upstreamAttempts.WithLabelValues(outcome).Inc()
	r.upstreamDuration.Observe(d.Seconds())
}

// UpstreamRetry counts a scheduled retry.
func (r *Recorder) UpstreamRetry() {
	if r == nil {
		return
	}
	r.upstreamRetries.Inc()
}

// BreakerTransition records a state change; level is the numeric state entered.
func (r *Recorder) BreakerTransition(from, to string, level int) {
	if r == nil {
		return
	}
	r.breakerTransitions.WithLabelValues(from, to).Inc()
	r.breakerState.Set(float64(level))
}

// LimiterWait observes time spent queued on the rate limiter.
func (r *Recorder) LimiterWait(d time.Duration) {
	if r == nil {
		return
	}
	r.limiterWait.Observe(d.Seconds())
}

// HTTPRequest records a served request.
func (r *Recorder) HTTPRequest(path, method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	code := strconv.Itoa(status)
	r.httpRequests.WithLabelValues(path, method, code).Inc()
	r.httpDuration.WithLabelValues(path, method, code).Observe(d.Seconds())
}
