package taskstream

import (
	"time"

	"github.com/taskstream-ai/taskstream-go/apierr"
)

const maxBackoff = 30 * time.Second

// RetryPolicy decides how many attempts a call gets and how long to wait
// between them.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// NewRetryPolicy builds a policy allowing maxRetries attempts with
// exponential backoff starting at baseDelay.
func NewRetryPolicy(maxRetries int, baseDelay time.Duration) RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}
	return RetryPolicy{MaxAttempts: maxRetries, BaseDelay: baseDelay}
}

// Delay returns base * 2^(attempt-1) for 1-based attempts, capped at 30s.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay * (1 << (attempt - 1))
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	return d
}

// ShouldRetry refuses once the attempt budget is spent or the error is a
// client-side (4xx) failure; everything retryable per apierr gets another try.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.MaxAttempts {
		return false
	}
	return apierr.IsRetryable(err)
}
