package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRunnerStopped is returned by Submit after Stop has been called.
var ErrRunnerStopped = errors.New("task runner stopped")

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner manages background task processing. Every task is persisted
// before it is queued; Recover and the stuck task monitor rebuild persisted
// tasks through the registry.
type TaskRunner struct {
	store    TaskStore
	registry *Registry
	queue    *TaskQueue
	pool     *WorkerPool
	config   TaskRunnerConfig
	logger   *slog.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	mu         sync.Mutex
	running    map[uuid.UUID]struct{}
	stopped    bool
	errHandler func(task Task, err error)
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, registry *Registry, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if registry == nil {
		registry = NewRegistry()
	}
	logger = logger.With("component", "task_runner")

	ctx, cancel := context.WithCancel(context.Background())

	r := &TaskRunner{
		store:      store,
		registry:   registry,
		queue:      NewTaskQueue(config.QueueSize, logger),
		config:     config,
		logger:     logger,
		ctx:        ctx,
		cancelFunc: cancel,
		running:    make(map[uuid.UUID]struct{}),
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, r.processTask, logger)
	return r
}

// Registry returns the factory registry used to rebuild persisted tasks.
func (r *TaskRunner) Registry() *Registry {
	return r.registry
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errHandler = handler
}

// Submit persists task and queues it for execution. If the queue is full the
// task stays pending in the store and is picked up by the next Recover.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return ErrRunnerStopped
	}

	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", task.ID(), err)
	}
	return nil
}

// Start recovers unfinished tasks, then starts the workers and the stuck
// task monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	r.logger.Info("task runner started",
		"worker_count", r.config.WorkerCount,
		"queue_size", r.config.QueueSize)
	return nil
}

// Stop cancels in-flight tasks and waits for the workers to exit. Interrupted
// tasks keep their processing status and resume on the next Recover.
func (r *TaskRunner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancelFunc()
	r.pool.Stop()
	r.wg.Wait()
	r.queue.Close()
	r.logger.Info("task runner stopped")
}

// Recover loads pending and processing tasks from the store and queues them
// again. Processing tasks were interrupted and are reset to pending first.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec, "")
	}
	for _, rec := range processing {
		r.requeue(ctx, rec, "Reset after recovery")
	}
	return nil
}

// requeue rebuilds rec and puts it back on the queue. A non-empty reason
// first resets the stored status to pending.
func (r *TaskRunner) requeue(ctx context.Context, rec Record, reason string) {
	log := r.logger.With("task_id", rec.ID, "task_type", rec.Type)

	if r.isRunning(rec.ID) {
		log.Debug("task is still running, not requeued")
		return
	}

	t, err := r.registry.Build(rec)
	if err != nil {
		log.Error("failed to rebuild task", "error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to mark unbuildable task as failed", "error", updateErr)
		}
		return
	}

	if reason != "" {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, reason); err != nil {
			log.Error("failed to reset task status", "error", err)
			return
		}
	}

	if err := r.queue.Enqueue(t); err != nil {
		log.Error("failed to requeue task", "error", err)
		return
	}
	log.Info("requeued task")
}

func (r *TaskRunner) isRunning(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[id]
	return ok
}

// claim marks id as running. It returns false if it already is.
func (r *TaskRunner) claim(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.running[id]; ok {
		return false
	}
	r.running[id] = struct{}{}
	return true
}

func (r *TaskRunner) release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) {
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if !r.claim(task.ID()) {
		logger.Debug("task already running, skipping duplicate")
		return
	}
	defer r.release(task.ID())

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update task status to processing", "error", err)
		return
	}

	logger.Info("processing task")
	start := time.Now()

	err := execute(ctx, task)

	switch {
	case err != nil && ctx.Err() != nil:
		// Shutdown interrupted the task; Recover picks it up again.
		logger.Warn("task interrupted by shutdown", "error", err)

	case err != nil:
		if updateErr := r.store.UpdateTaskStatus(context.WithoutCancel(ctx), task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
		r.mu.Lock()
		handler := r.errHandler
		r.mu.Unlock()
		handler(task, err)

	default:
		logger.Info("task completed successfully", "duration_ms", time.Since(start).Milliseconds())
		if updateErr := r.store.UpdateTaskStatus(context.WithoutCancel(ctx), task.ID(), TaskStatusCompleted, ""); updateErr != nil {
			logger.Error("failed to update task status to completed", "error", updateErr)
		}
	}
}

// execute runs task, converting a panic into an error.
func execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task.Execute(ctx)
}

// stuckTaskMonitor periodically checks for tasks that have been in "processing"
// state for too long and resets them
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			r.resetStuckTasks(r.ctx)
		}
	}
}

func (r *TaskRunner) resetStuckTasks(ctx context.Context) {
	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
		return
	}
	if len(stuck) > 0 {
		r.logger.Info("found stuck tasks", "count", len(stuck))
	}
	for _, rec := range stuck {
		r.requeue(ctx, rec, "Reset after being stuck in processing state")
	}

	r.requeueStalePending(ctx)
}

// requeueStalePending queues pending tasks that have waited longer than
// StuckTaskAge, such as tasks whose Submit found the queue full.
func (r *TaskRunner) requeueStalePending(ctx context.Context) {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		r.logger.Error("failed to check for stale pending tasks", "error", err)
		return
	}

	cutoff := time.Now().Add(-r.config.StuckTaskAge)
	for _, rec := range pending {
		if rec.UpdatedAt.Before(cutoff) {
			r.requeue(ctx, rec, "")
		}
	}
}
