package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidEvent is returned when an event cannot be constructed or decoded.
var ErrInvalidEvent = errors.New("invalid event")

// TaskRequestEvent represents a request to run a background task.
type TaskRequestEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// TaskID is the identifier the resulting task must carry. Emitting the
	// same TaskID twice must not produce two tasks.
	TaskID uuid.UUID `json:"task_id"`

	// Type indicates the task type that should be created
	Type string `json:"type"`

	// Payload contains the task-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *TaskRequestEvent) UnmarshalPayload(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: payload of %s event %s: %w", ErrInvalidEvent, e.Type, e.ID, err)
	}
	return nil
}

// NewTaskRequestEvent creates an event requesting a task of taskType with
// the given identifier and payload.
func NewTaskRequestEvent(taskType string, taskID uuid.UUID, payload any) (*TaskRequestEvent, error) {
	if taskType == "" {
		return nil, fmt.Errorf("%w: empty task type", ErrInvalidEvent)
	}
	if taskID == uuid.Nil {
		return nil, fmt.Errorf("%w: nil task id", ErrInvalidEvent)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		TaskID:    taskID,
		Type:      taskType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler processes emitted events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *TaskRequestEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	return f(ctx, event)
}

// EventEmitter publishes events to handlers without the publisher knowing them.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
