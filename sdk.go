// sdk.go
// ------
// The sdk.go file contains the core Client struct and its verb methods.
// This is the main entry point of the SDK for users.
//
// Key functionalities include:
// - Initializing the SDK with NewClient()
// - Making requests via Get/Post/Put/Delete
// - Inspecting and clearing the response cache and circuit breakers
//
// The Client relies on a BreakerRegistry, a ResponseCache, and a
// requestExecutor to provide consistent resilience behavior for every call.
// All state is owned by the Client instance; two clients never share breaker
// or cache state.
package taskstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskstream-ai/taskstream-go/apierr"
)

const tracerName = "github.com/taskstream-ai/taskstream-go"

// Client issues requests against the TaskStream API with uniform error
// shapes, bearer-token injection, circuit breaking, caching, and tracing.
type Client struct {
	cfg       Config
	transport Transport
	breakers  *BreakerRegistry
	cache     *ResponseCache
	retry     RetryPolicy
	executor  *requestExecutor
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Option customizes a Client during construction.
type Option func(*Client)

// WithTransport substitutes the wire transport (used by tests and mocks).
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithHTTPClient uses the given *http.Client for the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.transport = newHTTPTransport(c.cfg.BaseURL, hc)
	}
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer replaces the tracer obtained from the global otel provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// NewClient validates cfg and builds a ready-to-use client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	c := &Client{
		cfg:      cfg,
		breakers: NewBreakerRegistry(cfg.Breaker),
		cache:    NewResponseCache(cfg.CacheTTL),
		retry:    NewRetryPolicy(cfg.MaxRetries, cfg.RetryBaseDelay),
		tracer:   otel.Tracer(tracerName),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = newHTTPTransport(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout})
	}
	c.executor = newRequestExecutor(c)
	return c, nil
}

// Get issues a GET, serving repeat calls from the response cache unless
// opts.SkipCache is set.
func (c *Client) Get(ctx context.Context, endpoint string, opts *RequestOptions) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, opts)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, opts *RequestOptions) ([]byte, error) {
	return c.do(ctx, http.MethodPost, endpoint, opts)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, opts *RequestOptions) ([]byte, error) {
	return c.do(ctx, http.MethodPut, endpoint, opts)
}

// Delete issues a DELETE. A 204 returns an empty payload.
func (c *Client) Delete(ctx context.Context, endpoint string, opts *RequestOptions) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, endpoint, opts)
}

func (c *Client) do(ctx context.Context, method, endpoint string, opts *RequestOptions) (payload []byte, err error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("endpoint must not be empty")
	}
	if opts == nil {
		opts = &RequestOptions{}
	}

	ctx, span := c.tracer.Start(ctx, "taskstream."+strings.ToLower(method),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("taskstream.endpoint", endpoint),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	// Single authoritative breaker gate; Allow also handles the
	// OPEN -> HALF_OPEN transition once the cooldown elapses.
	br := c.breakers.Get(endpoint)
	if !br.Allow() {
		c.debugf("breaker rejected request", "endpoint", endpoint)
		return nil, apierr.Normalize(apierr.ErrCircuitOpen, br.State().String(), br.RetryAfter())
	}

	var body []byte
	if opts.Body != nil {
		body, err = json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var cacheKey string
	if method == http.MethodGet {
		cacheKey = CacheKey(method, endpoint, opts.Params, body)
		if !opts.SkipCache {
			if data, ok := c.cache.Get(cacheKey); ok {
				span.SetAttributes(attribute.Bool("taskstream.cache_hit", true))
				return data, nil
			}
		}
	}

	headers := BuildHeaders(opts.Headers, &TracingOptions{
		CorrelationID: span.SpanContext().TraceID().String(),
	})
	for k, v := range c.cfg.DefaultHeaders {
		if _, ok := opts.Headers[k]; !ok {
			headers[k] = v
		}
	}
	if opts.Token != "" {
		headers["Authorization"] = "Bearer " + opts.Token
	}

	resp, err := c.executor.execute(ctx, &Request{
		Method:   method,
		Endpoint: endpoint,
		Query:    opts.Params,
		Headers:  headers,
		Body:     body,
	}, br)
	if err != nil {
		return nil, err
	}

	payload = unwrapEnvelope(resp.Data)
	if method == http.MethodGet && !opts.SkipCache {
		c.cache.Set(cacheKey, payload)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return payload, nil
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() { c.cache.Clear() }

// CacheLen reports how many responses are currently cached.
func (c *Client) CacheLen() int { return c.cache.Len() }

// BreakerState returns the circuit state for an endpoint key.
func (c *Client) BreakerState(endpoint string) BreakerState {
	return c.breakers.Get(endpoint).State()
}

// BreakerStates snapshots all known breakers.
func (c *Client) BreakerStates() map[string]BreakerState {
	return c.breakers.States()
}

// ResetBreakers forces every breaker back to CLOSED.
func (c *Client) ResetBreakers() { c.breakers.ResetAll() }

// Config returns a copy of the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// debugf emits request-level diagnostics when Debug mode is enabled.
func (c *Client) debugf(msg string, args ...any) {
	if c.cfg.Debug {
		c.logger.Debug(msg, args...)
	}
}
