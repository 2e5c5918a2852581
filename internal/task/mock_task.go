package task

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// MockTask is a configurable Task for tests.
type MockTask struct {
	TaskID      uuid.UUID
	TaskType    string
	TaskPayload []byte
	TaskStatus  TaskStatus
	ExecuteFn   func(ctx context.Context) error

	executions atomic.Int32
}

// NewMockTask creates a pending MockTask whose Execute succeeds.
func NewMockTask(id uuid.UUID, taskType string, payload []byte) *MockTask {
	return &MockTask{
		TaskID:      id,
		TaskType:    taskType,
		TaskPayload: payload,
		TaskStatus:  TaskStatusPending,
		ExecuteFn:   func(ctx context.Context) error { return nil },
	}
}

func (t *MockTask) ID() uuid.UUID      { return t.TaskID }
func (t *MockTask) Type() string       { return t.TaskType }
func (t *MockTask) Payload() []byte    { return t.TaskPayload }
func (t *MockTask) Status() TaskStatus { return t.TaskStatus }

// Execute counts the call and runs ExecuteFn.
func (t *MockTask) Execute(ctx context.Context) error {
	t.executions.Add(1)
	return t.ExecuteFn(ctx)
}

// Executions returns how many times Execute has been called.
func (t *MockTask) Executions() int {
	return int(t.executions.Load())
}
