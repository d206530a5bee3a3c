package taskstream

import (
	"encoding/json"
	"net/http"
)

// Request is the prepared, transport-agnostic form of a single API call.
// Instances are built per call and discarded after the response.
type Request struct {
	Method   string
	Endpoint string // path below the versioned base, e.g. "/tasks"
	Query    map[string]string
	Headers  map[string]string
	Body     []byte
}

// Response is the raw result handed back by a Transport before envelope
// decoding and error normalization.
type Response struct {
	StatusCode int
	Headers    http.Header
	Data       []byte
}

// RequestOptions carries the per-call knobs every verb method accepts.
type RequestOptions struct {
	Params    map[string]string // query parameters
	Headers   map[string]string // per-call header overrides
	Body      any               // JSON-marshaled request body
	Token     string            // bearer token, injected as Authorization
	SkipCache bool              // bypass the response cache for this GET
}

// envelope is the uniform response wrapper every endpoint returns:
// { data?, error?, errors? }.
type envelope struct {
	Data   json.RawMessage   `json:"data"`
	Error  *json.RawMessage  `json:"error"`
	Errors []json.RawMessage `json:"errors"`
}

// unwrapEnvelope extracts the data payload from a successful response body.
// Bodies that are not enveloped pass through untouched so callers of
// non-standard endpoints still get the raw bytes.
func unwrapEnvelope(body []byte) []byte {
	if len(body) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	if env.Data != nil {
		return env.Data
	}
	return body
}
