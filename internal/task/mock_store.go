package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockTaskStore is an in-memory TaskStore for tests.
type MockTaskStore struct {
	mutex   sync.RWMutex
	records map[uuid.UUID]Record

	// SaveFn and UpdateStatusFn, when set, replace the default behavior.
	SaveFn         func(ctx context.Context, task Task) error
	UpdateStatusFn func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	now func() time.Time
}

// NewMockTaskStore creates an empty MockTaskStore.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		records: make(map[uuid.UUID]Record),
		now:     time.Now,
	}
}

// SaveTask stores task unless its ID is already present.
func (s *MockTaskStore) SaveTask(ctx context.Context, task Task) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, task)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.records[task.ID()]; ok {
		return nil
	}
	now := s.now()
	s.records[task.ID()] = Record{
		ID:        task.ID(),
		Type:      task.Type(),
		Payload:   task.Payload(),
		Status:    task.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// UpdateTaskStatus updates a stored record. Unknown IDs are ignored.
func (s *MockTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, taskID, status, errorMsg)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return nil
	}
	rec.Status = status
	rec.ErrorMessage = errorMsg
	rec.UpdatedAt = s.now()
	s.records[taskID] = rec
	return nil
}

// GetPendingTasks returns pending records ordered by creation time.
func (s *MockTaskStore) GetPendingTasks(ctx context.Context) ([]Record, error) {
	return s.byStatus(TaskStatusPending, 0), nil
}

// GetProcessingTasks returns processing records not updated within olderThan.
func (s *MockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error) {
	return s.byStatus(TaskStatusProcessing, olderThan), nil
}

func (s *MockTaskStore) byStatus(status TaskStatus, olderThan time.Duration) []Record {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	cutoff := s.now().Add(-olderThan)
	var out []Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && !rec.UpdatedAt.Before(cutoff) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Put stores rec as is, replacing any record with the same ID.
func (s *MockTaskStore) Put(rec Record) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.records[rec.ID] = rec
}

// Get returns the stored record for id.
func (s *MockTaskStore) Get(id uuid.UUID) (Record, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Len returns the number of stored records.
func (s *MockTaskStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.records)
}
