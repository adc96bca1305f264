package http

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ai-summarizer/internal/infra/llm/huggingface"
	apperrors "github.com/yanqian/ai-summarizer/pkg/errors"
)

// statusClientClosedRequest is the non-standard status used when the caller
// went away before the response was ready.
const statusClientClosedRequest = 499

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status     int
	Code       string
	Message    string
	Err        error
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

// fromDomainError maps an application error to its HTTP rendering. Only the
// user facing message leaves the process.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	if code == "" {
		return asHTTPError(err)
	}
	httpErr := NewHTTPError(statusForCode(code), code, apperrors.MessageOf(err, "something went wrong"), err)

	var failure huggingface.Failure
	if errors.As(err, &failure) && failure.Kind == huggingface.KindModelLoading {
		httpErr.RetryAfter = failure.EstimatedWait
	}
	return httpErr
}

func statusForCode(code string) int {
	switch code {
	case "invalid_input":
		return http.StatusBadRequest
	case "extraction_failed":
		return http.StatusUnprocessableEntity
	case string(huggingface.KindRateLimited):
		return http.StatusTooManyRequests
	case "cancelled":
		return statusClientClosedRequest
	case string(huggingface.KindModelLoading), string(huggingface.KindCircuitOpen), string(huggingface.KindUnavailable):
		return http.StatusServiceUnavailable
	case string(huggingface.KindTimeout):
		return http.StatusGatewayTimeout
	case string(huggingface.KindInternal):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func retryAfterSeconds(d time.Duration) int {
	return int(math.Max(1, math.Ceil(d.Seconds())))
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
