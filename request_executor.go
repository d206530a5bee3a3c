package taskstream

import (
	"context"
	"time"

	"github.com/taskstream-ai/taskstream-go/apierr"
	"github.com/taskstream-ai/taskstream-go/timeutil"
)

// requestExecutor handles the retry loop, backoff, and breaker bookkeeping
// around a single transport call.
type requestExecutor struct {
	c *Client
}

func newRequestExecutor(c *Client) *requestExecutor {
	return &requestExecutor{c: c}
}

// execute runs req through the transport with retries. It records every
// qualifying failure (network, 5xx) and every success on the breaker, honors
// Retry-After on 429, and returns either a raw 2xx response or a normalized
// *apierr.Error.
func (e *requestExecutor) execute(ctx context.Context, req *Request, br *Breaker) (*Response, error) {
	policy := e.c.retry
	attempt := 0

	for {
		attempt++
		e.c.debugf("sending request",
			"method", req.Method, "endpoint", req.Endpoint, "attempt", attempt)

		resp, err := e.c.transport.Execute(ctx, req)
		if err != nil {
			br.RecordFailure()
			if policy.ShouldRetry(err, attempt) {
				if werr := e.wait(ctx, policy.Delay(attempt)); werr != nil {
					return nil, apierr.Normalize(werr, br.State().String(), 0)
				}
				continue
			}
			e.c.debugf("giving up after transport error",
				"endpoint", req.Endpoint, "attempts", attempt, "err", err)
			return nil, apierr.Normalize(err, br.State().String(), br.RetryAfter())
		}

		if resp.StatusCode < 400 {
			br.RecordSuccess()
			if attempt > 1 {
				e.c.debugf("request succeeded after retries",
					"endpoint", req.Endpoint, "attempts", attempt)
			}
			return resp, nil
		}

		apiErr := apierr.Parse(resp.Data, resp.StatusCode)
		if apierr.CountsAsBreakerFailure(apiErr) {
			br.RecordFailure()
		}

		if policy.ShouldRetry(apiErr, attempt) {
			delay := policy.Delay(attempt)
			// A server-provided Retry-After beats computed backoff.
			if ra := timeutil.ParseRetryAfter(retryAfterHeader(resp)); ra > 0 {
				delay = ra
			}
			e.c.debugf("retrying after server error",
				"endpoint", req.Endpoint, "status", resp.StatusCode, "delay", delay)
			if werr := e.wait(ctx, delay); werr != nil {
				return nil, apierr.Normalize(werr, br.State().String(), 0)
			}
			continue
		}

		retryAfter := timeutil.ParseRetryAfter(retryAfterHeader(resp))
		if retryAfter == 0 {
			retryAfter = br.RetryAfter()
		}
		return nil, apierr.Normalize(apiErr, br.State().String(), retryAfter)
	}
}

// wait sleeps for d or until the context is canceled.
func (e *requestExecutor) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryAfterHeader(resp *Response) string {
	if resp == nil || resp.Headers == nil {
		return ""
	}
	return resp.Headers.Get("Retry-After")
}
