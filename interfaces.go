package taskstream

import "context"

// Transport executes a prepared request against the wire. The default
// implementation wraps net/http; tests substitute an in-memory one.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}
