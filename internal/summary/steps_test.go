package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStep(t *testing.T) {
	t.Run("executes once and reuses the checkpoint", func(t *testing.T) {
		jobs := newMemJobStore()
		steps := NewSteps(jobs, testLogger())
		jobID := uuid.New()

		calls := 0
		fn := func(ctx context.Context) ([]string, error) {
			calls++
			return []string{"a", "b"}, nil
		}

		first, err := RunStep(context.Background(), steps, jobID, StepReduce, fn)
		require.NoError(t, err)
		second, err := RunStep(context.Background(), steps, jobID, StepReduce, fn)
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
		assert.Equal(t, first, second)
		data, ok := jobs.step(jobID, StepReduce)
		require.True(t, ok)
		assert.JSONEq(t, `["a","b"]`, string(data))
	})

	t.Run("checkpoints are per job", func(t *testing.T) {
		steps := NewSteps(newMemJobStore(), testLogger())

		calls := 0
		fn := func(ctx context.Context) (int, error) {
			calls++
			return calls, nil
		}

		a, err := RunStep(context.Background(), steps, uuid.New(), StepFetchText, fn)
		require.NoError(t, err)
		b, err := RunStep(context.Background(), steps, uuid.New(), StepFetchText, fn)
		require.NoError(t, err)

		assert.Equal(t, 1, a)
		assert.Equal(t, 2, b)
	})

	t.Run("errors are not checkpointed", func(t *testing.T) {
		jobs := newMemJobStore()
		steps := NewSteps(jobs, testLogger())
		jobID := uuid.New()
		boom := errors.New("boom")

		_, err := RunStep(context.Background(), steps, jobID, StepFetchText, func(ctx context.Context) (string, error) {
			return "", boom
		})

		assert.ErrorIs(t, err, boom)
		_, ok := jobs.step(jobID, StepFetchText)
		assert.False(t, ok)
	})

	t.Run("unreadable checkpoint is re-executed", func(t *testing.T) {
		jobs := newMemJobStore()
		steps := NewSteps(jobs, testLogger())
		jobID := uuid.New()
		require.NoError(t, jobs.SaveStep(context.Background(), jobID, StepFetchText, []byte(`{"not":"a string"}`)))

		out, err := RunStep(context.Background(), steps, jobID, StepFetchText, func(ctx context.Context) (string, error) {
			return "fresh", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "fresh", out)
		data, _ := jobs.step(jobID, StepFetchText)
		assert.JSONEq(t, `"fresh"`, string(data))
	})

	t.Run("store failures do not fail the step", func(t *testing.T) {
		jobs := newMemJobStore()
		jobs.GetStepErr = errors.New("read failed")
		jobs.SaveStepErr = errors.New("write failed")
		steps := NewSteps(jobs, testLogger())

		out, err := RunStep(context.Background(), steps, uuid.New(), StepFetchText, func(ctx context.Context) (string, error) {
			return "text", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "text", out)
	})
}

func TestSummarizeChunkStep(t *testing.T) {
	assert.Equal(t, "summarize-chunk-0", SummarizeChunkStep(0))
	assert.Equal(t, "summarize-chunk-12", SummarizeChunkStep(12))
}
