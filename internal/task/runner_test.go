package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunnerConfig() TaskRunnerConfig {
	cfg := DefaultTaskRunnerConfig()
	cfg.QueueSize = 10
	return cfg
}

func waitForStatus(t *testing.T, store *MockTaskStore, id uuid.UUID, status TaskStatus) Record {
	t.Helper()
	var rec Record
	require.Eventually(t, func() bool {
		var ok bool
		rec, ok = store.Get(id)
		return ok && rec.Status == status
	}, 2*time.Second, 10*time.Millisecond)
	return rec
}

func TestTaskRunner_Submit(t *testing.T) {
	t.Run("persists before queueing", func(t *testing.T) {
		store := NewMockTaskStore()
		runner := NewTaskRunner(store, nil, testRunnerConfig(), setupTestLogger())

		task := newTestTask()
		require.NoError(t, runner.Submit(context.Background(), task))

		rec, ok := store.Get(task.ID())
		require.True(t, ok)
		assert.Equal(t, TaskStatusPending, rec.Status)
		assert.Equal(t, 1, runner.queue.Len())
	})

	t.Run("queue full keeps task pending in store", func(t *testing.T) {
		store := NewMockTaskStore()
		cfg := testRunnerConfig()
		cfg.QueueSize = 1
		runner := NewTaskRunner(store, nil, cfg, setupTestLogger())

		require.NoError(t, runner.Submit(context.Background(), newTestTask()))
		overflow := newTestTask()
		err := runner.Submit(context.Background(), overflow)

		assert.ErrorIs(t, err, ErrQueueFull)
		rec, ok := store.Get(overflow.ID())
		require.True(t, ok)
		assert.Equal(t, TaskStatusPending, rec.Status)
	})

	t.Run("store error", func(t *testing.T) {
		store := NewMockTaskStore()
		store.SaveFn = func(ctx context.Context, task Task) error {
			return errors.New("mock store error")
		}
		runner := NewTaskRunner(store, nil, testRunnerConfig(), setupTestLogger())

		err := runner.Submit(context.Background(), newTestTask())
		assert.ErrorContains(t, err, "failed to save task")
		assert.Equal(t, 0, runner.queue.Len())
	})

	t.Run("after stop", func(t *testing.T) {
		runner := NewTaskRunner(NewMockTaskStore(), nil, testRunnerConfig(), setupTestLogger())
		require.NoError(t, runner.Start())
		runner.Stop()
		runner.Stop()

		assert.ErrorIs(t, runner.Submit(context.Background(), newTestTask()), ErrRunnerStopped)
	})
}

func TestTaskRunner_ProcessesTasks(t *testing.T) {
	store := NewMockTaskStore()
	runner := NewTaskRunner(store, nil, testRunnerConfig(), setupTestLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	tasks := make([]*MockTask, 3)
	for i := range tasks {
		tasks[i] = newTestTask()
		require.NoError(t, runner.Submit(context.Background(), tasks[i]))
	}

	for _, task := range tasks {
		waitForStatus(t, store, task.ID(), TaskStatusCompleted)
		assert.Equal(t, 1, task.Executions())
	}
}

func TestTaskRunner_TaskFailure(t *testing.T) {
	store := NewMockTaskStore()
	runner := NewTaskRunner(store, nil, testRunnerConfig(), setupTestLogger())

	var mu sync.Mutex
	var handled error
	runner.SetErrorHandler(func(task Task, err error) {
		mu.Lock()
		defer mu.Unlock()
		handled = err
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	failing := newTestTask()
	failing.ExecuteFn = func(ctx context.Context) error { return errors.New("summary generation failed") }
	panicking := newTestTask()
	panicking.ExecuteFn = func(ctx context.Context) error { panic("boom") }

	require.NoError(t, runner.Submit(context.Background(), failing))
	require.NoError(t, runner.Submit(context.Background(), panicking))

	rec := waitForStatus(t, store, failing.ID(), TaskStatusFailed)
	assert.Equal(t, "summary generation failed", rec.ErrorMessage)

	rec = waitForStatus(t, store, panicking.ID(), TaskStatusFailed)
	assert.Contains(t, rec.ErrorMessage, "task panicked")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return handled != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTaskRunner_Recover(t *testing.T) {
	store := NewMockTaskStore()
	registry := NewRegistry()

	var mu sync.Mutex
	rebuilt := map[uuid.UUID]*MockTask{}
	registry.Register("resumable", FactoryFunc(func(rec Record) (Task, error) {
		mu.Lock()
		defer mu.Unlock()
		task := NewMockTask(rec.ID, rec.Type, rec.Payload)
		rebuilt[rec.ID] = task
		return task, nil
	}))

	now := time.Now()
	pending := Record{ID: uuid.New(), Type: "resumable", Status: TaskStatusPending, CreatedAt: now, UpdatedAt: now}
	interrupted := Record{ID: uuid.New(), Type: "resumable", Status: TaskStatusProcessing, CreatedAt: now, UpdatedAt: now}
	orphan := Record{ID: uuid.New(), Type: "retired_type", Status: TaskStatusPending, CreatedAt: now, UpdatedAt: now}
	store.Put(pending)
	store.Put(interrupted)
	store.Put(orphan)

	runner := NewTaskRunner(store, registry, testRunnerConfig(), setupTestLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	waitForStatus(t, store, pending.ID, TaskStatusCompleted)
	waitForStatus(t, store, interrupted.ID, TaskStatusCompleted)
	rec := waitForStatus(t, store, orphan.ID, TaskStatusFailed)
	assert.Contains(t, rec.ErrorMessage, "unknown task type")

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, rebuilt, 2)
}

func TestTaskRunner_ResetStuckTasks(t *testing.T) {
	store := NewMockTaskStore()
	registry := NewRegistry()
	registry.Register("resumable", FactoryFunc(func(rec Record) (Task, error) {
		return NewMockTask(rec.ID, rec.Type, rec.Payload), nil
	}))

	now := time.Now()
	stuck := Record{ID: uuid.New(), Type: "resumable", Status: TaskStatusProcessing, CreatedAt: now.Add(-2 * time.Hour), UpdatedAt: now.Add(-time.Hour)}
	fresh := Record{ID: uuid.New(), Type: "resumable", Status: TaskStatusProcessing, CreatedAt: now, UpdatedAt: now}
	store.Put(stuck)
	store.Put(fresh)

	runner := NewTaskRunner(store, registry, testRunnerConfig(), setupTestLogger())
	runner.resetStuckTasks(context.Background())

	rec, _ := store.Get(stuck.ID)
	assert.Equal(t, TaskStatusPending, rec.Status)
	rec, _ = store.Get(fresh.ID)
	assert.Equal(t, TaskStatusProcessing, rec.Status)
	assert.Equal(t, 1, runner.queue.Len())
}

func TestTaskRunner_ResetStuckTasksRequeuesStalePending(t *testing.T) {
	store := NewMockTaskStore()
	registry := NewRegistry()
	registry.Register("resumable", FactoryFunc(func(rec Record) (Task, error) {
		return NewMockTask(rec.ID, rec.Type, rec.Payload), nil
	}))

	now := time.Now()
	stale := Record{ID: uuid.New(), Type: "resumable", Status: TaskStatusPending, CreatedAt: now.Add(-2 * time.Hour), UpdatedAt: now.Add(-time.Hour)}
	recent := Record{ID: uuid.New(), Type: "resumable", Status: TaskStatusPending, CreatedAt: now, UpdatedAt: now}
	store.Put(stale)
	store.Put(recent)

	runner := NewTaskRunner(store, registry, testRunnerConfig(), setupTestLogger())
	runner.resetStuckTasks(context.Background())

	require.Equal(t, 1, runner.queue.Len())
	queued := <-runner.queue.GetChannel()
	assert.Equal(t, stale.ID, queued.ID())
}

func TestTaskRunner_StopLeavesInterruptedTaskProcessing(t *testing.T) {
	store := NewMockTaskStore()
	runner := NewTaskRunner(store, nil, testRunnerConfig(), setupTestLogger())
	require.NoError(t, runner.Start())

	started := make(chan struct{})
	task := newTestTask()
	task.ExecuteFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	require.NoError(t, runner.Submit(context.Background(), task))
	<-started

	runner.Stop()

	rec, ok := store.Get(task.ID())
	require.True(t, ok)
	assert.Equal(t, TaskStatusProcessing, rec.Status)
}

func TestTaskRunner_SkipsTaskAlreadyRunning(t *testing.T) {
	store := NewMockTaskStore()
	runner := NewTaskRunner(store, nil, testRunnerConfig(), setupTestLogger())

	task := newTestTask()
	require.True(t, runner.claim(task.ID()))
	runner.processTask(context.Background(), task, 0)
	runner.release(task.ID())

	assert.Equal(t, 0, task.Executions())
}
