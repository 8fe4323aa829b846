package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrorTypeNetwork ErrorType = iota
	ErrorTypeAuth
	ErrorTypePermission
	ErrorTypeNotFound
	ErrorTypeRateLimit
	ErrorTypeServer
	ErrorTypeCache
	ErrorTypeValidation
	ErrorTypeUnknown
)

// APIError represents a structured error with context and retry information
type APIError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Underlying error
	Retryable  bool
	RetryAfter time.Duration
	Context    map[string]string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if len(e.Context) > 0 {
		var parts []string
		for k, v := range e.Context {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
		return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, ", "))
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *APIError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *APIError) IsRetryable() bool {
	return e.Retryable
}

// GetRetryAfter returns the server-dictated wait before the next attempt.
// Zero means no explicit hint; the retry executor falls back to its
// exponential backoff schedule.
func (e *APIError) GetRetryAfter() time.Duration {
	return e.RetryAfter
}

// RateLimited builds the error returned when the API answers 429. The
// retry executor waits exactly retryAfter instead of its computed backoff.
func RateLimited(retryAfter time.Duration, endpoint string) *APIError {
	return &APIError{
		Type:       ErrorTypeRateLimit,
		Message:    fmt.Sprintf("rate limited, server asked to wait %s", retryAfter),
		StatusCode: 429,
		Retryable:  true,
		RetryAfter: retryAfter,
		Context:    map[string]string{"endpoint": endpoint},
	}
}

// WrapHTTPError classifies a non-2xx User Management API response
func WrapHTTPError(status int, body, method, endpoint string) *APIError {
	context := map[string]string{
		"method":   method,
		"endpoint": endpoint,
	}

	switch {
	case status == 401:
		return &APIError{
			Type:       ErrorTypeAuth,
			Message:    "Authentication failed - check client credentials and org ID",
			StatusCode: status,
			Retryable:  false,
			Context:    context,
		}

	case status == 403:
		return &APIError{
			Type:       ErrorTypePermission,
			Message:    "Access denied - check API permissions for this organization",
			StatusCode: status,
			Retryable:  false,
			Context:    context,
		}

	case status == 404:
		return &APIError{
			Type:       ErrorTypeNotFound,
			Message:    fmt.Sprintf("Resource not found: %s", endpoint),
			StatusCode: status,
			Retryable:  false,
			Context:    context,
		}

	case status == 429:
		// Callers that parsed a Retry-After header should use RateLimited
		// instead; this path covers 429 responses without the header.
		return &APIError{
			Type:       ErrorTypeRateLimit,
			Message:    "Rate limited by the User Management API - retrying",
			StatusCode: status,
			Retryable:  true,
			Context:    context,
		}

	case status >= 500:
		return &APIError{
			Type:       ErrorTypeServer,
			Message:    fmt.Sprintf("Server error %d from the User Management API - retrying", status),
			StatusCode: status,
			Retryable:  true,
			Context:    context,
		}

	case status >= 400:
		return &APIError{
			Type:       ErrorTypeValidation,
			Message:    fmt.Sprintf("Request rejected (%d): %s", status, cleanErrorBody(body)),
			StatusCode: status,
			Retryable:  false,
			Context:    context,
		}

	default:
		return &APIError{
			Type:       ErrorTypeUnknown,
			Message:    fmt.Sprintf("Unexpected status %d: %s", status, cleanErrorBody(body)),
			StatusCode: status,
			Retryable:  true,
			Context:    context,
		}
	}
}

// WrapNetworkError wraps transport-level failures (connection refused,
// timeouts below the HTTP layer). These are always retryable.
func WrapNetworkError(err error, method, endpoint string) *APIError {
	if err == nil {
		return nil
	}

	return &APIError{
		Type:       ErrorTypeNetwork,
		Message:    fmt.Sprintf("Network error calling %s %s - retrying", method, endpoint),
		Underlying: err,
		Retryable:  true,
		Context:    map[string]string{"method": method, "endpoint": endpoint},
	}
}

// WrapCacheError wraps cache-related errors
func WrapCacheError(err error, operation string) *APIError {
	if err == nil {
		return nil
	}

	return &APIError{
		Type:       ErrorTypeCache,
		Message:    fmt.Sprintf("Cache %s failed: %s", operation, err.Error()),
		Underlying: err,
		Retryable:  false,
		Context:    map[string]string{"operation": operation},
	}
}

// WrapValidationError wraps validation errors
func WrapValidationError(err error, input string) *APIError {
	if err == nil {
		return nil
	}

	return &APIError{
		Type:       ErrorTypeValidation,
		Message:    fmt.Sprintf("Invalid input '%s': %s", input, err.Error()),
		Underlying: err,
		Retryable:  false,
		Context:    map[string]string{"input": input},
	}
}

// ExhaustedRetriesError is surfaced after every allowed attempt failed.
// It carries the last underlying error and the attempt count.
type ExhaustedRetriesError struct {
	Operation string
	Attempts  int
	LastErr   error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.LastErr)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.LastErr
}

// DeadlineExceededError is surfaced when a caller-imposed deadline fires
// while a call is in flight. Distinct from ExhaustedRetriesError: the
// attempts were cut short, not used up.
type DeadlineExceededError struct {
	Operation string
	Err       error
}

func (e *DeadlineExceededError) Error() string {
	return fmt.Sprintf("%s aborted by deadline: %v", e.Operation, e.Err)
}

func (e *DeadlineExceededError) Unwrap() error {
	return e.Err
}

// cleanErrorBody trims an API error body down to its first meaningful line
func cleanErrorBody(body string) string {
	cleaned := strings.TrimSpace(body)
	if cleaned == "" {
		return "no response body"
	}

	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			if len(line) > 200 {
				return line[:200] + "..."
			}
			return line
		}
	}

	return cleaned
}

// UserFriendlyMessage returns a user-friendly error message
func (e *APIError) UserFriendlyMessage() string {
	switch e.Type {
	case ErrorTypeNotFound:
		return e.Message + " - verify the email or resource name"
	case ErrorTypeAuth:
		return e.Message
	case ErrorTypePermission:
		return e.Message + " - contact your organization administrator"
	case ErrorTypeRateLimit:
		return e.Message + " - try again in a few moments"
	case ErrorTypeNetwork:
		return e.Message + " - check your internet connection"
	default:
		return e.Message
	}
}
