package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/ai-summarizer/internal/domain/summarizer"
	"github.com/yanqian/ai-summarizer/internal/infra/config"
	"github.com/yanqian/ai-summarizer/internal/infra/llm/huggingface"
	apperrors "github.com/yanqian/ai-summarizer/pkg/errors"
	"github.com/yanqian/ai-summarizer/pkg/metrics"
)

func TestRouter_SummarizeSuccess(t *testing.T) {
	resp := summarizer.Response{Summary: "short summary", ProcessingTimeMs: 420, Source: summarizer.SourceText, InputLength: 11, SummaryLength: 13}
	svc := &stubSummarizer{
		summarizeFn: func(ctx context.Context, req summarizer.Request) (summarizer.Response, error) {
			require.Equal(t, "hello world", req.Text)
			return resp, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/summaries", `{"text":"hello world"}`, newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotEmpty(t, recorder.Header().Get(requestIDHeader))

	var got summarizer.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, resp, got)
}

func TestRouter_SummarizeURL(t *testing.T) {
	svc := &stubSummarizer{
		summarizeFn: func(ctx context.Context, req summarizer.Request) (summarizer.Response, error) {
			require.Equal(t, "https://example.com/post", req.URL)
			return summarizer.Response{Summary: "s", Source: summarizer.SourceURL, URL: req.URL, Title: "T"}, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/summaries", `{"url":"https://example.com/post"}`, newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{
		"summary": "s",
		"processingTimeMs": 0,
		"source": "url",
		"url": "https://example.com/post",
		"title": "T",
		"inputLength": 0,
		"summaryLength": 0,
		"truncated": false
	}`, recorder.Body.String())
}

func TestRouter_SummarizeInvalidJSON(t *testing.T) {
	svc := &stubSummarizer{}

	recorder := performRequest(http.MethodPost, "/api/v1/summaries", `{"text":123}`, newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.NotEmpty(t, errBody["error"]["message"])
	require.False(t, svc.called)
}

func TestRouter_SummarizeErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid input",
			err:        apperrors.Wrap("invalid_input", "Please provide some text or a link to summarize.", nil),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_input",
		},
		{
			name:       "extraction failed",
			err:        apperrors.Wrap("extraction_failed", "Could not extract readable content from that page.", errors.New("status 404")),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "extraction_failed",
		},
		{
			name:       "rate limited",
			err:        upstreamError(huggingface.KindRateLimited, 429),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "rate_limited",
		},
		{
			name:       "circuit open",
			err:        upstreamError(huggingface.KindCircuitOpen, 0),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "circuit_open",
		},
		{
			name:       "upstream unavailable",
			err:        upstreamError(huggingface.KindUnavailable, 500),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "upstream_unavailable",
		},
		{
			name:       "timeout",
			err:        upstreamError(huggingface.KindTimeout, 0),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "upstream_timeout",
		},
		{
			name:       "unauthorized upstream",
			err:        upstreamError(huggingface.KindUnauthorized, 401),
			wantStatus: http.StatusBadGateway,
			wantCode:   "unauthorized",
		},
		{
			name:       "empty summary",
			err:        upstreamError(huggingface.KindEmptySummary, 200),
			wantStatus: http.StatusBadGateway,
			wantCode:   "empty_summary",
		},
		{
			name:       "cancelled",
			err:        upstreamError(huggingface.KindCancelled, 0),
			wantStatus: statusClientClosedRequest,
			wantCode:   "cancelled",
		},
		{
			name:       "internal",
			err:        upstreamError(huggingface.KindInternal, 0),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
		{
			name:       "plain error",
			err:        errors.New("unexpected"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubSummarizer{
				summarizeFn: func(ctx context.Context, req summarizer.Request) (summarizer.Response, error) {
					return summarizer.Response{}, tt.err
				},
			}

			recorder := performRequest(http.MethodPost, "/api/v1/summaries", `{"text":"x"}`, newRouterUnderTest(t, svc))
			require.Equal(t, tt.wantStatus, recorder.Code)

			errBody := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, tt.wantCode, errBody["error"]["code"])
			require.NotEmpty(t, errBody["error"]["message"])
			require.Empty(t, recorder.Header().Get("Retry-After"))
		})
	}
}

func TestRouter_SummarizeModelLoadingSetsRetryAfter(t *testing.T) {
	failure := huggingface.NewFailure(huggingface.KindModelLoading, 503)
	failure.EstimatedWait = 12500 * time.Millisecond
	svc := &stubSummarizer{
		summarizeFn: func(ctx context.Context, req summarizer.Request) (summarizer.Response, error) {
			return summarizer.Response{}, apperrors.Wrap(string(failure.Kind), failure.Message, failure)
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/summaries", `{"text":"x"}`, newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	require.Equal(t, "13", recorder.Header().Get("Retry-After"))

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "model_loading", errBody["error"]["code"])
	require.Equal(t, failure.Message, errBody["error"]["message"])
}

func TestRouter_ErrorsDoNotLeakCause(t *testing.T) {
	svc := &stubSummarizer{
		summarizeFn: func(ctx context.Context, req summarizer.Request) (summarizer.Response, error) {
			return summarizer.Response{}, apperrors.Wrap("extraction_failed", "Could not extract readable content from that page.", errors.New("dial tcp 10.0.0.7:443"))
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/summaries", `{"url":"https://example.com"}`, newRouterUnderTest(t, svc))
	require.NotContains(t, recorder.Body.String(), "10.0.0.7")
}

func TestRouter_Status(t *testing.T) {
	checked := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	svc := &stubSummarizer{
		status: summarizer.StatusReport{
			Availability:         "loading",
			StatusCode:           503,
			Message:              "warming up",
			EstimatedWaitSeconds: 12.5,
			Circuit:              "closed",
			CheckedAt:            checked,
		},
	}

	recorder := performRequest(http.MethodGet, "/api/v1/summaries/status", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{
		"availability": "loading",
		"statusCode": 503,
		"message": "warming up",
		"estimatedWaitSeconds": 12.5,
		"circuit": "closed",
		"checkedAt": "2026-02-03T04:05:06Z"
	}`, recorder.Body.String())
}

func TestRouter_Connection(t *testing.T) {
	for _, connected := range []bool{true, false} {
		svc := &stubSummarizer{connected: connected}
		recorder := performRequest(http.MethodGet, "/api/v1/summaries/connection", "", newRouterUnderTest(t, svc))
		require.Equal(t, http.StatusOK, recorder.Code)

		var body map[string]bool
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		require.Equal(t, connected, body["connected"])
	}
}

func TestRouter_Health(t *testing.T) {
	recorder := performRequest(http.MethodGet, "/healthz", "", newRouterUnderTest(t, &stubSummarizer{}))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
}

func TestRouter_RequestIDPropagates(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	newRouterUnderTest(t, &stubSummarizer{}).Handler.ServeHTTP(rec, req)
	require.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)
	server := newRouterWithMetrics(t, &stubSummarizer{}, recorder, reg)

	rec := performRequest(http.MethodGet, "/healthz", "", server)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = performRequest(http.MethodGet, "/metrics", "", server)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `summarizer_http_requests_total{method="GET",path="/healthz",status="200"} 1`)

	rec = performRequest(http.MethodGet, "/nope", "", server)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 3, testutil.CollectAndCount(reg, "summarizer_http_requests_total"))

	rec = performRequest(http.MethodGet, "/metrics", "", server)
	require.Contains(t, rec.Body.String(), `summarizer_http_requests_total{method="GET",path="unmatched",status="404"} 1`)
}

func upstreamError(kind huggingface.ErrorKind, status int) error {
	failure := huggingface.NewFailure(kind, status)
	return apperrors.Wrap(string(kind), failure.Message, failure)
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, svc summarizer.Service) *http.Server {
	t.Helper()
	return newRouterWithMetrics(t, svc, nil, nil)
}

func newRouterWithMetrics(t *testing.T, svc summarizer.Service, recorder *metrics.Recorder, gatherer prometheus.Gatherer) *http.Server {
	t.Helper()
	handler := NewSummaryHandler(svc, newTestLogger())
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Metrics: config.MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
	return NewRouter(cfg, handler, recorder, gatherer)
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubSummarizer struct {
	summarizeFn func(ctx context.Context, req summarizer.Request) (summarizer.Response, error)
	status      summarizer.StatusReport
	connected   bool
	called      bool
}

func (s *stubSummarizer) Summarize(ctx context.Context, req summarizer.Request) (summarizer.Response, error) {
	s.called = true
	if s.summarizeFn != nil {
		return s.summarizeFn(ctx, req)
	}
	return summarizer.Response{}, nil
}

func (s *stubSummarizer) Status(context.Context) summarizer.StatusReport {
	return s.status
}

func (s *stubSummarizer) TestConnection(context.Context) bool {
	return s.connected
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
