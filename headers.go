package taskstream

import "github.com/google/uuid"

// TracingOptions adds correlation headers to a request. An empty
// CorrelationID is replaced with a freshly generated one so every traced
// request is correlatable.
type TracingOptions struct {
	CorrelationID string
	Headers       map[string]string
}

// BuildHeaders merges the baseline security headers with optional tracing
// headers and caller overrides. Later layers win: defaults < tracing < custom.
// The inputs are never mutated.
func BuildHeaders(custom map[string]string, tracing *TracingOptions) map[string]string {
	h := map[string]string{
		"Content-Type":           "application/json",
		"Accept":                 "application/json",
		"Accept-Encoding":        "gzip, deflate",
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	}

	if tracing != nil {
		id := tracing.CorrelationID
		if id == "" {
			id = uuid.NewString()
		}
		h["X-Correlation-ID"] = id
		for k, v := range tracing.Headers {
			h[k] = v
		}
	}

	for k, v := range custom {
		h[k] = v
	}
	return h
}
