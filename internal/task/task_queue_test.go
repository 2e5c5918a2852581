package task

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestTask() *MockTask {
	return NewMockTask(uuid.New(), "test_task", []byte(`{}`))
}

func TestTaskQueue_Enqueue(t *testing.T) {
	q := NewTaskQueue(2, setupTestLogger())

	first := newTestTask()
	require.NoError(t, q.Enqueue(first))
	require.NoError(t, q.Enqueue(newTestTask()))
	assert.Equal(t, 2, q.Len())

	err := q.Enqueue(newTestTask())
	assert.ErrorIs(t, err, ErrQueueFull)

	got := <-q.GetChannel()
	assert.Equal(t, first.ID(), got.ID())
}

func TestTaskQueue_MinimumSize(t *testing.T) {
	q := NewTaskQueue(0, setupTestLogger())
	assert.NoError(t, q.Enqueue(newTestTask()))
}

func TestTaskQueue_Close(t *testing.T) {
	q := NewTaskQueue(1, setupTestLogger())
	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Enqueue(newTestTask()), ErrQueueClosed)

	_, ok := <-q.GetChannel()
	assert.False(t, ok)
}

func TestTaskQueue_ConcurrentEnqueueAndClose(t *testing.T) {
	q := NewTaskQueue(1000, setupTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Enqueue(newTestTask())
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Close()
	}()
	wg.Wait()

	count := 0
	for range q.GetChannel() {
		count++
	}
	assert.LessOrEqual(t, count, 50)
}
