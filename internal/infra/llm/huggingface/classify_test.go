package huggingface

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifySuccess(t *testing.T) {
	got := Classify(200, []byte(`[{"summary_text":"  hello world "}]`))
	require.True(t, got.Success)
	require.Equal(t, "hello world", got.Text)
}

func TestClassifySuccessObjectShape(t *testing.T) {
	got := Classify(200, []byte(`{"summary_text":"single object"}`))
	require.True(t, got.Success)
	require.Equal(t, "single object", got.Text)
}

func TestClassifyEmptyOrInvalidSuccessPayload(t *testing.T) {
	bodies := []string{
		`[]`,
		`[{"summary_text":"   "}]`,
		`[{"generated_text":"wrong field"}]`,
		`not json`,
		``,
	}
	for _, body := range bodies {
		got := Classify(200, []byte(body))
		require.False(t, got.Success, body)
		require.Equal(t, KindEmptySummary, got.Failure.Kind, body)
		require.Equal(t, "Unable to generate a summary for this text.", got.Failure.Message)
	}
}

func TestClassifyFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
		wantWait time.Duration
	}{
		{
			name:     "loading with estimate",
			status:   503,
			body:     `{"error":"loading","estimated_time":12.5}`,
			wantKind: KindModelLoading,
			wantWait: 12500 * time.Millisecond,
		},
		{
			name:     "warming up on 500",
			status:   500,
			body:     `{"error":"Model is warming up"}`,
			wantKind: KindModelLoading,
		},
		{
			name:     "rate limit message",
			status:   400,
			body:     `{"error":"Rate limit reached. Please slow down"}`,
			wantKind: KindRateLimited,
		},
		{
			name:     "too many requests message",
			status:   503,
			body:     `{"error":"Too many requests"}`,
			wantKind: KindRateLimited,
		},
		{
			name:     "timeout message",
			status:   504,
			body:     `{"error":"Model timeout"}`,
			wantKind: KindTimeout,
		},
		{
			name:     "token message",
			status:   400,
			body:     `{"error":"Invalid token"}`,
			wantKind: KindUnauthorized,
		},
		{
			name:     "error list",
			status:   400,
			body:     `{"error":["bad input","Authentication required"]}`,
			wantKind: KindUnauthorized,
		},
		{name: "401 fallback", status: 401, body: `<html>`, wantKind: KindUnauthorized},
		{name: "403 fallback", status: 403, body: ``, wantKind: KindForbidden},
		{name: "429 fallback", status: 429, body: `oops`, wantKind: KindRateLimited},
		{name: "503 fallback", status: 503, body: `Service Unavailable`, wantKind: KindModelLoading},
		{name: "unknown message falls back to status", status: 502, body: `{"error":"something odd"}`, wantKind: KindUnavailable},
		{name: "estimate ignored when not loading", status: 429, body: `{"estimated_time":3}`, wantKind: KindRateLimited},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.status, []byte(tt.body))
			require.False(t, got.Success)
			require.Equal(t, tt.wantKind, got.Failure.Kind)
			require.Equal(t, tt.status, got.Failure.StatusCode)
			require.Equal(t, tt.wantWait, got.Failure.EstimatedWait)
			require.NotEmpty(t, got.Failure.Message)
		})
	}
}

func TestClassifyGenericMessageIncludesStatus(t *testing.T) {
	got := Classify(502, []byte(`bad gateway`))
	require.Equal(t, KindUnavailable, got.Failure.Kind)
	require.Contains(t, got.Failure.Message, "502")
}

func TestClassifyNeverLeaksUpstreamText(t *testing.T) {
	got := Classify(400, []byte(`{"error":"internal stack trace at foo.py:12"}`))
	require.NotContains(t, got.Failure.Message, "foo.py")
}
