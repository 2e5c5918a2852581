package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/summa/internal/events"
)

// Submitter accepts tasks for execution. TaskRunner implements it.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements events.EventHandler by building a task
// from each event with the registry and submitting it.
type TaskFactoryEventHandler struct {
	registry  *Registry
	submitter Submitter
	logger    *slog.Logger
}

// NewTaskFactoryEventHandler creates a handler that builds tasks with registry
// and hands them to submitter.
func NewTaskFactoryEventHandler(registry *Registry, submitter Submitter, logger *slog.Logger) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		registry:  registry,
		submitter: submitter,
		logger:    logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent builds the task requested by event and submits it. Events for
// task types without a registered factory are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	log := h.logger.With("event_id", event.ID, "event_type", event.Type, "task_id", event.TaskID)

	rec := Record{
		ID:        event.TaskID,
		Type:      event.Type,
		Payload:   event.Payload,
		Status:    TaskStatusPending,
		CreatedAt: event.CreatedAt,
		UpdatedAt: event.CreatedAt,
	}

	t, err := h.registry.Build(rec)
	if errors.Is(err, ErrUnknownTaskType) {
		log.Debug("ignoring event with unsupported type")
		return nil
	}
	if err != nil {
		log.Error("failed to create task", "error", err)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.submitter.Submit(ctx, t); err != nil {
		log.Error("failed to submit task", "error", err)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	log.Info("task created and submitted")
	return nil
}

var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
