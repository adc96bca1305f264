package huggingface

import (
	"fmt"
	"time"
)

// ErrorKind classifies a failed summarization. The values double as the
// application error codes surfaced to HTTP callers.
type ErrorKind string

const (
	KindValidation   ErrorKind = "invalid_input"
	KindCancelled    ErrorKind = "cancelled"
	KindModelLoading ErrorKind = "model_loading"
	KindRateLimited  ErrorKind = "rate_limited"
	KindTimeout      ErrorKind = "upstream_timeout"
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindUnavailable  ErrorKind = "upstream_unavailable"
	KindCircuitOpen  ErrorKind = "circuit_open"
	KindEmptySummary ErrorKind = "empty_summary"
	KindUnreachable  ErrorKind = "upstream_unreachable"
	KindInternal     ErrorKind = "internal_error"
)

// Summary is the payload of a successful call.
type Summary struct {
	Text           string
	ProcessingTime time.Duration
}

// Failure describes why a call did not produce a summary. Message is safe to
// show to end users.
type Failure struct {
	Kind          ErrorKind
	Message       string
	StatusCode    int
	EstimatedWait time.Duration
}

func (f Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", f.Kind, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Result is either a Summary or a Failure, never both.
type Result struct {
	summary    *Summary
	failure    *Failure
	statusCode int
}

// Succeeded builds a successful Result.
func Succeeded(s Summary, statusCode int) Result {
	return Result{summary: &s, statusCode: statusCode}
}

// Failed builds an unsuccessful Result.
func Failed(f Failure) Result {
	return Result{failure: &f, statusCode: f.StatusCode}
}

// OK reports whether the call produced a summary.
func (r Result) OK() bool {
	return r.summary != nil
}

// Summary returns the summary of a successful call.
func (r Result) Summary() (Summary, bool) {
	if r.summary == nil {
		return Summary{}, false
	}
	return *r.summary, true
}

// Failure returns the failure of an unsuccessful call.
func (r Result) Failure() (Failure, bool) {
	if r.failure == nil {
		return Failure{}, false
	}
	return *r.failure, true
}

// StatusCode is the HTTP status of the last upstream response, or 0 when no
// response was received.
func (r Result) StatusCode() int {
	return r.statusCode
}

// Availability is the coarse upstream health reported by GetStatus.
type Availability string

const (
	Available   Availability = "available"
	Loading     Availability = "loading"
	Unavailable Availability = "unavailable"
)

// Status is a point in time snapshot of the upstream. It is recomputed on
// every GetStatus call.
type Status struct {
	Availability  Availability
	StatusCode    int
	Message       string
	EstimatedWait time.Duration
	Circuit       string
	CheckedAt     time.Time
}

var userMessages = map[ErrorKind]string{
	KindValidation:   "Please provide some text to summarize.",
	KindCancelled:    "The request was cancelled.",
	KindModelLoading: "The summarization model is warming up. Please try again in a moment.",
	KindRateLimited:  "Too many requests right now. Please wait a moment and try again.",
	KindTimeout:      "The summarization service took too long to respond. Please try again.",
	KindUnauthorized: "The summarization service rejected our credentials.",
	KindForbidden:    "Access to the summarization model is not allowed.",
	KindUnavailable:  "The summarization service is temporarily unavailable.",
	KindCircuitOpen:  "The summarization service is temporarily unavailable. Please try again shortly.",
	KindEmptySummary: "Unable to generate a summary for this text.",
	KindUnreachable:  "Could not reach the summarization service. Please try again later.",
	KindInternal:     "Something went wrong while summarizing. Please try again.",
}

// NewFailure returns a Failure of kind carrying its user facing message.
func NewFailure(kind ErrorKind, statusCode int) Failure {
	msg := userMessages[kind]
	if kind == KindUnavailable && statusCode != 0 {
		msg = fmt.Sprintf("The summarization service is temporarily unavailable (status %d).", statusCode)
	}
	return Failure{Kind: kind, Message: msg, StatusCode: statusCode}
}
