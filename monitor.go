package taskstream

import (
	"context"
	"time"
)

// RequestMetrics is the snapshot MonitorRequest reports for one call.
type RequestMetrics struct {
	Endpoint     string
	Success      bool
	ResponseTime time.Duration
	ErrorRate    float64 // naive estimate: breaker failures / failure threshold
	BreakerState BreakerState
}

// MonitorRequest measures wall-clock time around fn and reports the outcome
// together with the breaker's view of the endpoint. The wrapped error, if
// any, is returned unchanged so callers keep their normal handling.
func (c *Client) MonitorRequest(ctx context.Context, endpoint string, fn func(context.Context) error) (RequestMetrics, error) {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	br := c.breakers.Get(endpoint)
	threshold := c.cfg.Breaker.FailureThreshold
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}
	rate := float64(br.Failures()) / float64(threshold)
	if rate > 1 {
		rate = 1
	}

	return RequestMetrics{
		Endpoint:     endpoint,
		Success:      err == nil,
		ResponseTime: elapsed,
		ErrorRate:    rate,
		BreakerState: br.State(),
	}, err
}
