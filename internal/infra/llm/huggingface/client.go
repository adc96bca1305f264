package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/ai-summarizer/internal/infra/resilience"
	"github.com/yanqian/ai-summarizer/pkg/metrics"
	"github.com/yanqian/ai-summarizer/pkg/util"
)

const (
	defaultBaseURL   = "https://api-inference.huggingface.co"
	defaultTimeout   = 30 * time.Second
	defaultProbeText = "This is a short connection test for the summarization service."
	maxResponseBytes = 1 << 20
)

// Config describes the hosted model endpoint.
type Config struct {
	BaseURL   string
	Model     string
	APIToken  string
	Timeout   time.Duration
	ProbeText string

	// HTTPClient overrides the transport; per attempt deadlines come from
	// Timeout, not from the client.
	HTTPClient *http.Client
	// Now overrides the clock used for processing times and status stamps.
	Now func() time.Time
}

// Client summarizes text through the hosted inference API. Calls are rate
// limited, retried on transient failures and guarded by a circuit breaker.
type Client struct {
	endpoint   string
	apiToken   string
	timeout    time.Duration
	probeText  string
	httpClient *http.Client
	now        func() time.Time

	limiter *resilience.RateLimiter
	retry   *resilience.Retry
	breaker *resilience.Breaker

	logger  *slog.Logger
	metrics *metrics.Recorder
}

// NewClient constructs a Client around already configured resilience
// components, which are shared by every call made through it.
func NewClient(
	cfg Config,
	limiter *resilience.RateLimiter,
	retry *resilience.Retry,
	breaker *resilience.Breaker,
	logger *slog.Logger,
	recorder *metrics.Recorder,
) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("huggingface model cannot be empty")
	}
	if limiter == nil || retry == nil || breaker == nil {
		return nil, errors.New("huggingface client requires limiter, retry and breaker")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if strings.TrimSpace(cfg.ProbeText) == "" {
		cfg.ProbeText = defaultProbeText
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/models/" + strings.Trim(cfg.Model, "/"),
		apiToken:   cfg.APIToken,
		timeout:    cfg.Timeout,
		probeText:  cfg.ProbeText,
		httpClient: httpClient,
		now:        util.Clock(cfg.Now),
		limiter:    limiter,
		retry:      retry,
		breaker:    breaker,
		logger:     logger.With("component", "huggingface.client"),
		metrics:    recorder,
	}, nil
}

// SummarizeText sends text to the model. It never returns a raw transport
// error: every outcome, including panics further down the chain, is folded
// into the returned Result.
func (c *Client) SummarizeText(ctx context.Context, text string) (result Result) {
	callID := uuid.NewString()
	logger := c.logger.With("call_id", callID)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "summarize panicked", "panic", r)
			result = Failed(NewFailure(KindInternal, 0))
		}
	}()

	if strings.TrimSpace(text) == "" {
		return Failed(NewFailure(KindValidation, 0))
	}

	started := c.now()
	if err := c.limiter.Acquire(ctx); err != nil {
		kind := waitFailureKind(ctx)
		logger.InfoContext(ctx, "summarize stopped while waiting for rate limiter", "kind", kind, "error", err)
		return Failed(NewFailure(kind, 0))
	}

	payload, err := json.Marshal(BuildRequest(text))
	if err != nil {
		logger.ErrorContext(ctx, "encode inference request", "error", err)
		return Failed(NewFailure(KindInternal, 0))
	}

	res := c.retry.Execute(ctx, func(ctx context.Context) resilience.HTTPResult {
		return c.breaker.Execute(ctx, func(ctx context.Context) resilience.HTTPResult {
			return c.post(ctx, payload)
		})
	})

	if res.Err != nil {
		failure := c.transportFailure(ctx, res)
		logger.WarnContext(ctx, "summarize failed", "kind", failure.Kind, "error", res.Err)
		return Failed(failure)
	}

	classified := Classify(res.StatusCode, res.Body)
	if !classified.Success {
		logger.WarnContext(ctx, "summarize rejected",
			"kind", classified.Failure.Kind,
			"status", res.StatusCode,
		)
		logger.DebugContext(ctx, "upstream error body", "body", string(res.Body))
		return Failed(classified.Failure)
	}

	elapsed := c.now().Sub(started)
	logger.InfoContext(ctx, "summarize completed",
		"status", res.StatusCode,
		"input_chars", len(text),
		"summary_chars", len(classified.Text),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return Succeeded(Summary{Text: classified.Text, ProcessingTime: elapsed}, res.StatusCode)
}

// TestConnection reports whether the upstream answered a probe with any HTTP
// status at all. An error status still counts as connected: this checks
// reachability, not health.
func (c *Client) TestConnection(ctx context.Context) bool {
	return c.SummarizeText(ctx, c.probeText).StatusCode() != 0
}

// GetStatus probes the upstream once, without retries and without the
// breaker, so the snapshot reflects the endpoint itself. The probe does not
// wait for a cold model, letting a loading model report its estimated time.
func (c *Client) GetStatus(ctx context.Context) Status {
	status := Status{
		Circuit:   c.breaker.State().String(),
		CheckedAt: c.now(),
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		kind := waitFailureKind(ctx)
		status.Availability = Unavailable
		status.Message = NewFailure(kind, 0).Message
		return status
	}

	probe := BuildRequest(c.probeText)
	probe.Options.WaitForModel = false
	payload, err := json.Marshal(probe)
	if err != nil {
		status.Availability = Unavailable
		status.Message = NewFailure(KindInternal, 0).Message
		return status
	}

	res := c.post(ctx, payload)
	status.StatusCode = res.StatusCode
	if res.Err != nil {
		status.Availability = Unavailable
		status.Message = c.transportFailure(ctx, res).Message
		return status
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		status.Availability = Available
		status.Message = "The summarization model is ready."
		return status
	}

	classified := Classify(res.StatusCode, res.Body)
	status.Message = classified.Failure.Message
	if classified.Failure.Kind == KindModelLoading {
		status.Availability = Loading
		status.EstimatedWait = classified.Failure.EstimatedWait
		return status
	}
	status.Availability = Unavailable
	return status
}

// post performs a single attempt bounded by the per attempt timeout.
func (c *Client) post(ctx context.Context, payload []byte) resilience.HTTPResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return resilience.HTTPResult{Err: fmt.Errorf("build inference request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome := "transport_error"
		if errors.Is(err, context.Canceled) {
			outcome = "cancelled"
		}
		c.metrics.UpstreamAttempt(outcome, time.Since(start))
		return resilience.HTTPResult{Err: fmt.Errorf("request inference: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.UpstreamAttempt("transport_error", time.Since(start))
		return resilience.HTTPResult{StatusCode: resp.StatusCode, Err: fmt.Errorf("read inference response: %w", err)}
	}

	outcome := "success"
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome = fmt.Sprintf("status_%d", resp.StatusCode)
	}
	c.metrics.UpstreamAttempt(outcome, time.Since(start))
	return resilience.HTTPResult{StatusCode: resp.StatusCode, Body: body}
}

func (c *Client) transportFailure(ctx context.Context, res resilience.HTTPResult) Failure {
	switch {
	case errors.Is(ctx.Err(), context.Canceled) || res.Cancelled():
		return NewFailure(KindCancelled, 0)
	case errors.Is(res.Err, resilience.ErrCircuitOpen):
		return NewFailure(KindCircuitOpen, 0)
	case ctx.Err() != nil || isTimeout(res.Err):
		return NewFailure(KindTimeout, res.StatusCode)
	default:
		return NewFailure(KindUnreachable, res.StatusCode)
	}
}

// waitFailureKind maps a failed limiter wait to a failure kind. An expired
// caller deadline reads as a slow upstream, not a cancellation.
func waitFailureKind(ctx context.Context) ErrorKind {
	switch err := ctx.Err(); {
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case err != nil:
		return KindTimeout
	default:
		return KindUnavailable
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
