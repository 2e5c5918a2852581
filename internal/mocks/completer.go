package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/summa/internal/summarizer"
)

// MockCompleter implements summarizer.Completer for testing.
type MockCompleter struct {
	// CompleteFn receives the zero-based call number.
	CompleteFn func(ctx context.Context, call int, req summarizer.Request) (string, error)

	// Response and Err are returned when CompleteFn is nil.
	Response string
	Err      error

	mu       sync.Mutex
	requests []summarizer.Request
}

var _ summarizer.Completer = (*MockCompleter)(nil)

// Complete implements summarizer.Completer.
func (m *MockCompleter) Complete(ctx context.Context, req summarizer.Request) (string, error) {
	m.mu.Lock()
	call := len(m.requests)
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, call, req)
	}
	return m.Response, m.Err
}

// Requests returns every request received so far.
func (m *MockCompleter) Requests() []summarizer.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]summarizer.Request(nil), m.requests...)
}

// CallCount returns the number of Complete calls.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
