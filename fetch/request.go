package fetch

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// Request describes one logical call. It is immutable for the duration of
// the call; retries reuse it unchanged.
type Request struct {
	Method string      // Defaults to GET
	Path   string      // Escaped path relative to the client's base URL, or an absolute URL
	Query  url.Values  // Optional query parameters
	Header http.Header // Extra headers for this call
	Body   any         // JSON-encoded when non-nil; []byte and json.RawMessage are sent as-is

	// MaxRetries overrides both retry budgets of the client policy for this call.
	MaxRetries *int

	// Resource labels logs, metrics and spans. Defaults to Path.
	Resource string
}

// Retries is a helper for building a MaxRetries override.
func Retries(n int) *int {
	return &n
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func (r Request) resource() string {
	if r.Resource != "" {
		return r.Resource
	}
	return r.Path
}

// Response is a successful result. Body holds the validated JSON document,
// or is empty when the server sent no content.
type Response struct {
	Status    int
	Header    http.Header
	Body      json.RawMessage
	Attempts  int
	RequestID string
}
