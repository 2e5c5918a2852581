package summarizer

import (
	"context"
	"sync"
)

// mockCompleter is a Completer whose behavior is defined by CompleteFunc.
// It records every request it receives.
type mockCompleter struct {
	CompleteFunc func(ctx context.Context, req Request, call int) (string, error)

	mu       sync.Mutex
	requests []Request
}

func (m *mockCompleter) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	call := len(m.requests)
	m.mu.Unlock()

	return m.CompleteFunc(ctx, req, call)
}

func (m *mockCompleter) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}
