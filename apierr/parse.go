package apierr

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// wireError mirrors the error object inside the server's response envelope:
// { "error": { "code", "message", "details", "timestamp", "stackTrace" } }.
type wireError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details"`
	Timestamp  time.Time      `json:"timestamp"`
	StackTrace string         `json:"stackTrace"`
}

type wireEnvelope struct {
	Error  *wireError  `json:"error"`
	Errors []wireError `json:"errors"`
}

// Parse turns a non-2xx response body into an error record. The body may be
// the standard envelope, a bare error object, or not JSON at all; every shape
// degrades to something usable rather than failing.
func Parse(body []byte, status int) *Error {
	trimmed := strings.TrimSpace(string(body))

	e := &Error{
		Code:       CodeForStatus(status),
		Message:    http.StatusText(status),
		Status:     status,
		Timestamp:  time.Now().UTC(),
		StackTrace: captureStack(3),
	}

	if len(trimmed) == 0 || trimmed[0] != '{' {
		if trimmed != "" {
			e.Details = map[string]any{"body": trimmed}
		}
		return e
	}

	// Standard envelope: {"error": {...}} (first of "errors" as fallback).
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		we := env.Error
		if we == nil && len(env.Errors) > 0 {
			we = &env.Errors[0]
		}
		if we != nil && (we.Code != "" || we.Message != "") {
			applyWire(e, we)
			return e
		}
	}

	// Bare error object: {"code": ..., "message": ...}.
	var bare wireError
	if err := json.Unmarshal(body, &bare); err == nil && (bare.Code != "" || bare.Message != "") {
		applyWire(e, &bare)
		return e
	}

	// Unrecognized JSON; keep it in details for debugging.
	var anyJSON map[string]any
	if err := json.Unmarshal(body, &anyJSON); err == nil {
		e.Details = anyJSON
	}
	return e
}

func applyWire(e *Error, we *wireError) {
	if we.Code != "" {
		e.Code = we.Code
	}
	if we.Message != "" {
		e.Message = we.Message
	}
	if we.Details != nil {
		e.Details = we.Details
	}
	if !we.Timestamp.IsZero() {
		e.Timestamp = we.Timestamp
	}
	if we.StackTrace != "" {
		e.StackTrace = we.StackTrace
	}
}

// CodeForStatus maps an HTTP status to the conventional TaskStream error code.
func CodeForStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case status == http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case status == http.StatusForbidden:
		return "FORBIDDEN"
	case status == http.StatusNotFound:
		return "NOT_FOUND"
	case status == http.StatusConflict:
		return "CONFLICT"
	case status == http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case status >= 500:
		return "SERVER_ERROR"
	case status >= 400:
		return "CLIENT_ERROR"
	default:
		return "API_ERROR"
	}
}
