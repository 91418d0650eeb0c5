package aitier

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// RetryStrategy defines exponential backoff for transient API failures
type RetryStrategy struct {
	MaxAttempts int           // Default: 3
	BaseBackoff time.Duration // Default: 1 second
	MaxBackoff  time.Duration // Default: 8 seconds
	Jitter      bool
}

// NewRetryStrategy creates a RetryStrategy with defaults
func NewRetryStrategy() *RetryStrategy {
	return &RetryStrategy{
		MaxAttempts: 3,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  8 * time.Second,
		Jitter:      true,
	}
}

// CalculateBackoff returns the wait before the given retry attempt: 1s, 2s, 4s, 8s...
func (s *RetryStrategy) CalculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return s.BaseBackoff
	}

	backoff := time.Duration(math.Pow(2, float64(attempt-1))) * s.BaseBackoff
	if backoff > s.MaxBackoff {
		backoff = s.MaxBackoff
	}

	if s.Jitter {
		// +/-10%
		jitterRange := backoff / 10
		if jitterRange > 0 {
			backoff += time.Duration(rand.Int63n(int64(jitterRange*2))) - jitterRange
			if backoff < s.BaseBackoff {
				backoff = s.BaseBackoff
			}
		}
	}

	return backoff
}

// IsRetryable reports whether err is worth another attempt. Rate limits and
// server errors are, other API errors are not.
func (s *RetryStrategy) IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return isRetryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return isRetryableStatus(reqErr.HTTPStatusCode)
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "reset by peer")
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}

// Do runs fn until it succeeds, fails permanently, runs out of attempts or ctx ends
func (s *RetryStrategy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil || !s.IsRetryable(err) || attempt == attempts {
			return err
		}

		timer := time.NewTimer(s.CalculateBackoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}
