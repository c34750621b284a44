package rag

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RetryConfig configures the retry behavior for model calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings by category.
// Matched case-insensitively against err.Error().
//
// NOTE: String matching is used because genkit and the provider SDKs do
// not expose typed errors for transient failures. Re-evaluate if genkit
// adds structured error types in a future version.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},      // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// retryableError reports whether err is transient and should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, group := range retryablePatterns {
		if containsAny(errStr, group...) {
			return true
		}
	}
	return false
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// generate invokes the model with exponential backoff on transient
// errors. Each attempt waits on the rate limiter. A streaming call is
// never retried once a fragment has been delivered: the client already
// saw partial output and a retry would duplicate it.
//
// When the retry budget is exhausted the error wraps
// ErrServiceUnavailable.
func (s *Service) generate(ctx context.Context, system, prompt string, onChunk StreamFunc) (string, error) {
	var lastErr error
	delay := s.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limit wait: %w", err)
			}
		}

		delivered := false
		cb := onChunk
		if onChunk != nil {
			cb = func(ctx context.Context, fragment string) error {
				delivered = true
				return onChunk(ctx, fragment)
			}
		}

		text, err := s.generator.Generate(ctx, system, prompt, cb)
		if err == nil {
			s.logger.Debug("generation succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return text, nil
		}
		lastErr = err

		if delivered || !retryableError(err) {
			return "", fmt.Errorf("generating answer: %w", err)
		}

		if attempt == s.retry.MaxRetries {
			break
		}

		s.logger.Debug("retrying after transient provider error",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, s.retry.MaxInterval)
		}
	}

	return "", fmt.Errorf("%w: %d attempts over %v: %v",
		ErrServiceUnavailable, s.retry.MaxRetries+1, time.Since(start).Round(time.Millisecond), lastErr)
}
