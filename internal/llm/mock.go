package llm

import (
	"context"
	"sync"
)

// Mock implements Client for tests. It records requests and returns a fixed
// response or error.
type Mock struct {
	mu       sync.Mutex
	Response string
	Err      error
	Requests []GenerateRequest
}

// Generate returns the configured response after recording the request.
func (m *Mock) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Close is a no-op for the mock client.
func (m *Mock) Close() error { return nil }

// Calls returns how many Generate calls were made.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
