// Package retry implements the fixed-table exponential backoff used by every
// outbound LLM and vector-store call in this module.
package retry

import (
	"context"
	"math"
	"time"
)

// Config holds the configuration for retry logic.
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig returns the table from spec.md §5: two backoffs, three
// attempts total (400ms, 800ms).
func DefaultConfig() Config {
	return Config{
		MaxRetries:      2,
		BaseDelay:       400 * time.Millisecond,
		MaxDelay:        800 * time.Millisecond,
		BackoffMultiple: 2.0,
	}
}

// RateLimitConfig supplies the longer back-off delays Execute waits after an
// HTTP 429 response.
func RateLimitConfig() Config {
	return Config{
		MaxRetries:      2,
		BaseDelay:       1200 * time.Millisecond,
		MaxDelay:        4 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// ErrorChecker determines if an error should trigger a retry.
type ErrorChecker func(err error, statusCode int, responseBody []byte) bool

// RetryableFunc is a function that can be retried.
type RetryableFunc func(attempt int) (result any, statusCode int, responseBody []byte, err error)

// Logger logs retry attempts.
type Logger func(message string, args ...any)

// Options configures retry behavior.
type Options struct {
	Config       Config
	ErrorChecker ErrorChecker
	Logger       Logger
	APIName      string
}

func (c Config) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiple, float64(attempt)))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Execute performs the retryable function with the configured retry logic.
// Attempt 0 runs with no delay; attempts 1..MaxRetries wait calculateDelay
// before re-running fn (RateLimitConfig's delays when the previous attempt
// returned HTTP 429), for MaxRetries+1 attempts total.
func Execute(ctx context.Context, opts Options, fn RetryableFunc) (any, error) {
	var lastErr error
	var lastStatusCode int
	var lastResponseBody []byte

	for attempt := 0; attempt <= opts.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			delayConfig := opts.Config
			if lastStatusCode == 429 {
				delayConfig = RateLimitConfig()
			}
			delay := delayConfig.calculateDelay(attempt - 1)
			if opts.Logger != nil {
				opts.Logger("%s retry attempt %d/%d after %v", opts.APIName, attempt+1, opts.Config.MaxRetries+1, delay)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, statusCode, responseBody, err := fn(attempt)
		lastErr = err
		lastStatusCode = statusCode
		lastResponseBody = responseBody

		if opts.ErrorChecker != nil && opts.ErrorChecker(err, statusCode, responseBody) && attempt < opts.Config.MaxRetries {
			if opts.Logger != nil {
				if err != nil {
					opts.Logger("%s network error (attempt %d/%d): %v", opts.APIName, attempt+1, opts.Config.MaxRetries+1, err)
				} else {
					opts.Logger("%s retryable status (attempt %d/%d): %d", opts.APIName, attempt+1, opts.Config.MaxRetries+1, statusCode)
				}
			}
			continue
		}

		if err == nil {
			return result, nil
		}
		return nil, err
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &ExhaustedError{
		APIName:        opts.APIName,
		MaxAttempts:    opts.Config.MaxRetries + 1,
		LastStatusCode: lastStatusCode,
		LastResponse:   lastResponseBody,
	}
}

// ExhaustedError is returned when every retry attempt failed without a
// concrete error to surface (e.g. a persistent empty response).
type ExhaustedError struct {
	APIName        string
	MaxAttempts    int
	LastStatusCode int
	LastResponse   []byte
}

func (e *ExhaustedError) Error() string {
	return "retry attempts exhausted for " + e.APIName
}
