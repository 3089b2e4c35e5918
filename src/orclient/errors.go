package orclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Common error variables
var (
	// ErrInvalidModel indicates an invalid model was specified
	ErrInvalidModel = errors.New("invalid model specified")

	// ErrNoAPIKey indicates the API key is missing
	ErrNoAPIKey = errors.New("API key is required")

	// ErrEmptyResponse indicates the API returned an empty response
	ErrEmptyResponse = errors.New("empty response from API")

	// ErrTimeout indicates a timeout occurred
	ErrTimeout = errors.New("operation timed out")

	// ErrRateLimited indicates rate limiting
	ErrRateLimited = errors.New("rate limited")
)

// ErrorResponse represents a standard error response from the API
// This matches the OpenRouter error format: {"error":{"message":"...","code":"..."}}
type ErrorResponse struct {
	Error struct {
		Message string    `json:"message"`
		Type    string    `json:"type"`
		Code    errorCode `json:"code"`
		Param   string    `json:"param"`
	} `json:"error"`
}

// errorCode accepts both the string codes used by OpenAI and the numeric
// codes used by OpenRouter.
type errorCode string

func (c *errorCode) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = errorCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = errorCode(n.String())
	return nil
}

func (c errorCode) String() string {
	return string(c)
}

// APIError represents an error response from the OpenRouter API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Code       string
	Param      string
	Details    map[string]interface{}
	RequestID  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error is retryable.
func (e *APIError) IsRetryable() bool {
	// 5xx errors are generally retryable
	if e.StatusCode >= 500 && e.StatusCode < 600 {
		return true
	}

	// Rate limit errors are retryable after a delay
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}

	switch e.Code {
	case "timeout", "connection_error", "server_error":
		return true
	}

	return false
}

// IsRateLimit returns true if this is a rate limit error.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "rate_limit_exceeded"
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Code == "invalid_api_key"
}

// RetryableError wraps the last error of an exhausted retry loop.
type RetryableError struct {
	Err         error
	RetryAfter  time.Duration
	AttemptNum  int
	MaxAttempts int
}

// Error implements the error interface.
func (e *RetryableError) Error() string {
	return fmt.Sprintf("attempt %d/%d failed: %v (retry after %v)",
		e.AttemptNum, e.MaxAttempts, e.Err, e.RetryAfter)
}

// Unwrap returns the underlying error.
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// ShouldRetry returns true if the operation should be retried.
func (e *RetryableError) ShouldRetry() bool {
	return e.AttemptNum < e.MaxAttempts
}

// TimeoutError represents a timeout error with context.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Cause     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s timed out after %v: %v", e.Operation, e.Duration, e.Cause)
	}
	return fmt.Sprintf("%s timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// Is implements error matching.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ErrorHandler provides centralized error handling with logging.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger: logger.With("component", "error_handler"),
	}
}

// Handle logs err according to its kind and returns it unchanged.
func (eh *ErrorHandler) Handle(err error, operation string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}

	logAttrs := []any{"operation", operation, "error", err.Error()}
	for _, attr := range attrs {
		logAttrs = append(logAttrs, attr.Key, attr.Value)
	}

	var apiErr *APIError
	var timeoutErr *TimeoutError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.IsRateLimit() {
			eh.logger.Warn("rate limited", logAttrs...)
		} else if apiErr.IsAuthError() {
			eh.logger.Error("authentication failed", logAttrs...)
		} else if apiErr.IsRetryable() {
			eh.logger.Warn("retryable API error", logAttrs...)
		} else {
			eh.logger.Error("API error", logAttrs...)
		}
	case errors.As(err, &timeoutErr):
		eh.logger.Error("timeout error", logAttrs...)
	default:
		eh.logger.Error("error occurred", logAttrs...)
	}

	return err
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}

	var retryErr *RetryableError
	if errors.As(err, &retryErr) {
		return retryErr.ShouldRetry()
	}

	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited) {
		return true
	}

	// Transport failures are wrapped as connection errors by the client.
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr)
}

// GetRetryDelay returns the delay before retry number attempt, doubling base
// each time and honoring a Retry-After hint on rate limit errors.
func GetRetryDelay(err error, attempt int, base time.Duration) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsRateLimit() {
		if retryAfter, ok := apiErr.Details["retry_after"].(float64); ok {
			return time.Duration(retryAfter * float64(time.Second))
		}
	}

	if base <= 0 {
		base = time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	maxDelay := time.Minute
	if attempt > 16 {
		return maxDelay
	}
	delay := base * time.Duration(1<<uint(attempt-1))
	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}
