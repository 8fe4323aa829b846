package retry

import (
	"context"
	"time"

	"aum/internal/errors"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultConfig returns sensible retry defaults for User Management API calls
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

// QuickConfig returns faster retry settings for interactive operations
func QuickConfig() *Config {
	return &Config{
		MaxAttempts: 2,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	}
}

// WorkUnit is one retryable operation: a name for error reporting and an
// action that performs a single attempt. The action must honor ctx.
type WorkUnit struct {
	Name   string
	Action func(ctx context.Context) error
}

// Executor runs work units with bounded attempts and exponential backoff.
// A rate-limit hint on the error (RetryAfter) overrides the computed
// backoff: the server knows the exact right wait better than we can guess.
type Executor struct {
	config *Config
}

// NewExecutor creates an executor; nil config uses defaults
func NewExecutor(config *Config) *Executor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Executor{config: config}
}

// Execute runs the work unit until it succeeds, fails terminally, or
// exhausts the configured attempts. Waits between attempts respect
// context cancellation.
func (e *Executor) Execute(ctx context.Context, work WorkUnit) error {
	var lastErr error

	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		err := work.Action(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		// Non-retryable failures bypass the retry loop entirely
		if apiErr, ok := err.(*errors.APIError); ok && !apiErr.IsRetryable() {
			return apiErr
		}

		if attempt >= e.config.MaxAttempts {
			break
		}

		delay := e.backoff(attempt)
		if apiErr, ok := err.(*errors.APIError); ok {
			if retryAfter := apiErr.GetRetryAfter(); retryAfter > 0 {
				delay = retryAfter
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &errors.ExhaustedRetriesError{
		Operation: work.Name,
		Attempts:  e.config.MaxAttempts,
		LastErr:   lastErr,
	}
}

// backoff computes the wait after the given 1-based attempt:
// BaseDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(e.config.BaseDelay) * pow(e.config.Multiplier, attempt-1))
	if delay > e.config.MaxDelay {
		delay = e.config.MaxDelay
	}
	return delay
}

// pow is a simple integer power function for exponential backoff
func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
