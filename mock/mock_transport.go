// Package mock provides an in-memory Transport for exercising the client's
// resilience behavior without a network.
package mock

import (
	"context"
	"net/http"
	"sync"

	taskstream "github.com/taskstream-ai/taskstream-go"
)

// Transport is a scriptable in-memory transport. Configure failure behavior
// up front, then inspect Calls and Requests after the test runs.
type Transport struct {
	mu sync.Mutex

	// FailuresBeforeSuccess makes the first N calls fail with FailStatus
	// (or FailErr when set) before succeeding.
	FailuresBeforeSuccess int
	// FailStatus is the status used for scripted failures. Defaults to 500.
	FailStatus int
	// FailBody is the body returned with scripted failures.
	FailBody []byte
	// FailErr, when set, makes scripted failures transport-level errors
	// instead of HTTP statuses.
	FailErr error
	// AlwaysFail never lets a call succeed.
	AlwaysFail bool

	// Status and Body shape the successful response. Status defaults to 200.
	Status  int
	Body    []byte
	Headers http.Header

	calls    int
	requests []taskstream.Request
}

// Execute implements taskstream.Transport.
func (t *Transport) Execute(_ context.Context, req *taskstream.Request) (*taskstream.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls++
	t.requests = append(t.requests, *req)

	if t.AlwaysFail || t.calls <= t.FailuresBeforeSuccess {
		if t.FailErr != nil {
			return nil, t.FailErr
		}
		status := t.FailStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		body := t.FailBody
		if body == nil {
			body = []byte(`{"error":{"code":"SERVER_ERROR","message":"scripted failure"}}`)
		}
		return &taskstream.Response{
			StatusCode: status,
			Headers:    t.headers(),
			Data:       body,
		}, nil
	}

	status := t.Status
	if status == 0 {
		status = http.StatusOK
	}
	body := t.Body
	if body == nil {
		body = []byte(`{"data":{"ok":true}}`)
	}
	return &taskstream.Response{
		StatusCode: status,
		Headers:    t.headers(),
		Data:       body,
	}, nil
}

// Calls reports how many requests reached the transport.
func (t *Transport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Requests returns a copy of every request seen, in order.
func (t *Transport) Requests() []taskstream.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]taskstream.Request, len(t.requests))
	copy(out, t.requests)
	return out
}

// LastRequest returns the most recent request, nil when none were made.
func (t *Transport) LastRequest() *taskstream.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return nil
	}
	r := t.requests[len(t.requests)-1]
	return &r
}

// Reset clears call counters and recorded requests.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = 0
	t.requests = nil
}

func (t *Transport) headers() http.Header {
	if t.Headers == nil {
		return http.Header{}
	}
	return t.Headers.Clone()
}
