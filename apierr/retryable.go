package apierr

import (
	"errors"
	"io"
	"net/http"
	"syscall"
)

// IsRetryable says "worth another shot?" (backoff is still on the caller).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}

	// timeouts from net/http, tls, etc.
	var to interface{ Timeout() bool }
	if errors.As(err, &to) && to.Timeout() {
		return true
	}

	// flaky connections / short reads
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == 0 {
			// transport-level failure normalized into a record
			return true
		}
		switch apiErr.Status {
		case http.StatusRequestTimeout, // 408
			http.StatusTooEarly,            // 425
			http.StatusTooManyRequests,     // 429
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout:      // 504
			return true
		}
		return false
	}

	// unclassified errors are assumed to be transport-level
	return true
}

// CountsAsBreakerFailure reports whether an error should advance the circuit
// breaker. Network failures and 5xx count; 4xx client errors do not, since
// they indicate a caller problem rather than a failing service.
func CountsAsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == 0 || apiErr.Status >= 500
	}
	return true
}
