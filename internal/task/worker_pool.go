package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ProcessFunc handles one task taken from the queue.
type ProcessFunc func(ctx context.Context, task Task, workerID int)

// WorkerPool manages a pool of worker goroutines that process tasks
// from a task queue. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	taskQueue   TaskQueueReader
	workerCount int
	process     ProcessFunc

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// NewWorkerPool creates a pool whose workers pass every task they receive to process.
func NewWorkerPool(
	taskQueue TaskQueueReader,
	config WorkerPoolConfig,
	process ProcessFunc,
	logger *slog.Logger,
) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		process:     process,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop cancels the context handed to in-flight tasks and waits for every
// worker to return.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)
	tasks := p.taskQueue.GetChannel()

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case t, ok := <-tasks:
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			p.runSafely(t, id)
		}
	}
}

// runSafely keeps a panicking task from taking its worker down.
func (p *WorkerPool) runSafely(t Task, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				"task_id", t.ID(),
				"task_type", t.Type(),
				"worker_id", workerID,
				"panic", fmt.Sprint(r))
		}
	}()
	p.process(p.ctx, t, workerID)
}
