package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker for an endpoint is open
// and the request was rejected without touching the network.
var ErrCircuitOpen = errors.New("circuit breaker is currently OPEN")

// Error is the standardized error record every call surfaces. It is created
// once at the boundary where a transport or server failure is caught and
// never mutated afterwards.
type Error struct {
	Code       string         // machine-readable code, e.g. "RATE_LIMITED"
	Message    string         // human-readable summary
	Details    map[string]any // extra fields when the server sends them
	Status     int            // HTTP status, 0 for transport-level failures
	Timestamp  time.Time      // when the error was recorded
	StackTrace string         // call stack at the point of normalization
	// Resilience context attached by the client.
	BreakerState string        // circuit breaker state at failure time
	RetryAfter   time.Duration // suggested wait before retrying, 0 if unknown
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return http.StatusText(e.Status)
	}
	return e.Code
}

// New builds a minimal error record with the timestamp and stack captured now.
func New(code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Timestamp:  time.Now().UTC(),
		StackTrace: captureStack(3),
	}
}

// Newf is New with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}
