package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrNoHandlers is returned when an event is emitted with nobody to handle it.
var ErrNoHandlers = errors.New("no handlers registered for event")

// InMemoryEventEmitter dispatches events synchronously to handlers registered
// in this process.
type InMemoryEventEmitter struct {
	handlers []EventHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		logger: logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler adds a new event handler to receive events.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered new event handler", "handler_count", len(e.handlers))
}

// EmitEvent sends event to every registered handler. All handlers run even
// when one fails; their errors are joined.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskRequestEvent) error {
	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	log := e.logger.With("event_id", event.ID, "event_type", event.Type, "task_id", event.TaskID)

	if len(handlers) == 0 {
		log.Warn("no handlers registered for event")
		return ErrNoHandlers
	}

	var errs []error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			log.Error("handler failed to process event", "error", err, "handler_index", i)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
