package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/store"
	"github.com/phrazzld/summa/internal/summary"
)

// TriggerCall records one call to MockSummaryService.Trigger.
type TriggerCall struct {
	DocID        domain.DocID
	ConnectionID string
}

// MockSummaryService mocks the summary service used by the HTTP handlers.
type MockSummaryService struct {
	TriggerFn         func(ctx context.Context, docID domain.DocID, connectionID string) (*summary.TriggerResult, error)
	GetCachedResultFn func(ctx context.Context, docID domain.DocID) (*domain.SummaryRecord, error)

	mu           sync.Mutex
	triggerCalls []TriggerCall
	resultCalls  []domain.DocID
}

// Trigger returns a started result with a nil job ID when TriggerFn is nil.
func (m *MockSummaryService) Trigger(
	ctx context.Context,
	docID domain.DocID,
	connectionID string,
) (*summary.TriggerResult, error) {
	m.mu.Lock()
	m.triggerCalls = append(m.triggerCalls, TriggerCall{DocID: docID, ConnectionID: connectionID})
	m.mu.Unlock()

	if m.TriggerFn != nil {
		return m.TriggerFn(ctx, docID, connectionID)
	}
	return &summary.TriggerResult{Status: summary.TriggerStatusStarted, Channel: connectionID}, nil
}

// GetCachedResult returns store.ErrSummaryNotFound when GetCachedResultFn is nil.
func (m *MockSummaryService) GetCachedResult(ctx context.Context, docID domain.DocID) (*domain.SummaryRecord, error) {
	m.mu.Lock()
	m.resultCalls = append(m.resultCalls, docID)
	m.mu.Unlock()

	if m.GetCachedResultFn != nil {
		return m.GetCachedResultFn(ctx, docID)
	}
	return nil, store.ErrSummaryNotFound
}

// TriggerCalls returns the recorded Trigger calls.
func (m *MockSummaryService) TriggerCalls() []TriggerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TriggerCall(nil), m.triggerCalls...)
}

// ResultCalls returns the document IDs passed to GetCachedResult.
func (m *MockSummaryService) ResultCalls() []domain.DocID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DocID(nil), m.resultCalls...)
}
