package huggingface

import (
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Classification is the interpretation of one upstream response.
type Classification struct {
	Success bool
	Text    string
	Failure Failure
}

var messageKinds = []struct {
	kind    ErrorKind
	needles []string
}{
	{KindModelLoading, []string{"loading", "warming up"}},
	{KindRateLimited, []string{"rate limit", "too many"}},
	{KindTimeout, []string{"timeout", "timed out"}},
	{KindUnauthorized, []string{"token", "authentication"}},
}

// Classify maps a status code and raw body to a summary or a failure. A 2xx
// response must carry a non-empty summary_text; error responses are matched
// on their message first and on the status code when the message is missing
// or unknown.
func Classify(statusCode int, body []byte) Classification {
	if statusCode >= 200 && statusCode < 300 {
		text := strings.TrimSpace(summaryText(body))
		if text == "" {
			return Classification{Failure: NewFailure(KindEmptySummary, statusCode)}
		}
		return Classification{Success: true, Text: text}
	}

	message, wait := upstreamError(body)
	kind := kindFromMessage(message)
	if kind == "" {
		kind = kindFromStatus(statusCode)
	}
	failure := NewFailure(kind, statusCode)
	if kind == KindModelLoading {
		failure.EstimatedWait = wait
	}
	return Classification{Failure: failure}
}

func summaryText(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	parsed := gjson.ParseBytes(body)
	if parsed.IsArray() {
		return parsed.Get("0.summary_text").String()
	}
	return parsed.Get("summary_text").String()
}

func upstreamError(body []byte) (string, time.Duration) {
	if !gjson.ValidBytes(body) {
		return "", 0
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return "", 0
	}

	var message string
	errField := parsed.Get("error")
	if errField.IsArray() {
		parts := make([]string, 0, len(errField.Array()))
		for _, item := range errField.Array() {
			parts = append(parts, item.String())
		}
		message = strings.Join(parts, "; ")
	} else {
		message = errField.String()
	}

	var wait time.Duration
	if est := parsed.Get("estimated_time"); est.Exists() && est.Float() > 0 {
		wait = time.Duration(est.Float() * float64(time.Second))
	}
	return message, wait
}

func kindFromMessage(message string) ErrorKind {
	lower := strings.ToLower(message)
	if lower == "" {
		return ""
	}
	for _, candidate := range messageKinds {
		for _, needle := range candidate.needles {
			if strings.Contains(lower, needle) {
				return candidate.kind
			}
		}
	}
	return ""
}

func kindFromStatus(statusCode int) ErrorKind {
	switch statusCode {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusServiceUnavailable:
		return KindModelLoading
	default:
		return KindUnavailable
	}
}
