// Package llm wraps the external language-model service behind a minimal
// request/response contract. The engine only uses it for the router's
// fallback classifier; generation quality is out of scope.
package llm

import "context"

// GenerateRequest carries one bounded text-generation call.
type GenerateRequest struct {
	// Query is the user-facing input.
	Query string
	// Context is prepended as system guidance (recent history, task framing).
	Context string
	// Kind labels the call site, e.g. "classify".
	Kind string
}

// Client is the opaque language-model service. Implementations must respect
// ctx deadlines; callers treat any failure as an empty result, never as a
// turn-aborting error.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Close() error
}
