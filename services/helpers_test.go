package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	taskstream "github.com/taskstream-ai/taskstream-go"
)

// routeTransport serves canned responses per "METHOD endpoint" and records
// what it saw.
type routeTransport struct {
	mu       sync.Mutex
	routes   map[string]routeResponse
	calls    map[string]int
	requests []taskstream.Request
}

type routeResponse struct {
	status int
	body   string
}

func newRouteTransport() *routeTransport {
	return &routeTransport{
		routes: make(map[string]routeResponse),
		calls:  make(map[string]int),
	}
}

func (rt *routeTransport) respond(method, endpoint string, status int, body string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.routes[method+" "+endpoint] = routeResponse{status: status, body: body}
}

func (rt *routeTransport) callCount(method, endpoint string) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.calls[method+" "+endpoint]
}

func (rt *routeTransport) lastRequest() *taskstream.Request {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.requests) == 0 {
		return nil
	}
	r := rt.requests[len(rt.requests)-1]
	return &r
}

func (rt *routeTransport) Execute(_ context.Context, req *taskstream.Request) (*taskstream.Response, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	key := req.Method + " " + req.Endpoint
	rt.calls[key]++
	rt.requests = append(rt.requests, *req)

	r, ok := rt.routes[key]
	if !ok {
		return &taskstream.Response{
			StatusCode: http.StatusNotFound,
			Data:       []byte(`{"error":{"code":"NOT_FOUND","message":"no such route"}}`),
		}, nil
	}
	return &taskstream.Response{StatusCode: r.status, Data: []byte(r.body)}, nil
}

func newServiceClient(t *testing.T, transport taskstream.Transport) *taskstream.Client {
	t.Helper()
	cfg := taskstream.DefaultConfig("https://api.taskstream.test")
	cfg.MaxRetries = 1
	cfg.RetryBaseDelay = time.Millisecond
	c, err := taskstream.NewClient(cfg, taskstream.WithTransport(transport))
	require.NoError(t, err)
	return c
}
