package apierr

import (
	"errors"
	"time"
)

// Normalize converts any error into a standardized record, attaching the
// breaker state and retry hint observed at failure time. An error that is
// already a record passes through unchanged apart from filling in missing
// resilience context; shape-sniffing on dynamic fields is never needed
// because the record is a concrete type recoverable via errors.As.
func Normalize(err error, breakerState string, retryAfter time.Duration) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.BreakerState == "" {
			apiErr.BreakerState = breakerState
		}
		if apiErr.RetryAfter == 0 {
			apiErr.RetryAfter = retryAfter
		}
		return apiErr
	}

	code := "TRANSPORT_ERROR"
	if errors.Is(err, ErrCircuitOpen) {
		code = "CIRCUIT_OPEN"
	}

	return &Error{
		Code:         code,
		Message:      err.Error(),
		Timestamp:    time.Now().UTC(),
		StackTrace:   captureStack(3),
		BreakerState: breakerState,
		RetryAfter:   retryAfter,
	}
}
