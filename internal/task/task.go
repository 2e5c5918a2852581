package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsActive reports whether a task with this status may still run.
func (s TaskStatus) IsActive() bool {
	return s == TaskStatusPending || s == TaskStatusProcessing
}

// TaskTypeDocumentSummarization is the task type that summarizes one document.
const TaskTypeDocumentSummarization = "document_summarization"

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic. It must tolerate being run again after an
	// interruption.
	Execute(ctx context.Context) error
}

// Record is the persisted form of a task.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing services to enqueue tasks for processing
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	// SaveTask persists a task. Saving a task whose ID is already stored is
	// a no-op.
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status
	GetPendingTasks(ctx context.Context) ([]Record, error)

	// GetProcessingTasks retrieves tasks with "processing" status.
	// If olderThan is non-zero, only tasks that have not been updated for
	// longer than olderThan are returned.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error)
}
