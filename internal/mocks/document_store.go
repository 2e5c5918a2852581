package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/store"
)

// MockDocumentStore implements store.DocumentStore for testing.
type MockDocumentStore struct {
	GetByIDFn func(ctx context.Context, docID domain.DocID) (*domain.Document, error)

	// Documents is consulted when GetByIDFn is nil. Err, when set, is
	// returned for every lookup.
	Documents map[domain.DocID]*domain.Document
	Err       error

	mu    sync.Mutex
	calls []domain.DocID
}

var _ store.DocumentStore = (*MockDocumentStore)(nil)

// GetByID implements store.DocumentStore.
func (m *MockDocumentStore) GetByID(ctx context.Context, docID domain.DocID) (*domain.Document, error) {
	m.mu.Lock()
	m.calls = append(m.calls, docID)
	m.mu.Unlock()

	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, docID)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	doc, ok := m.Documents[docID]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	return doc, nil
}

// Calls returns the document IDs passed to GetByID.
func (m *MockDocumentStore) Calls() []domain.DocID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DocID(nil), m.calls...)
}
