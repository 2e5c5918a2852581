package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/summa/internal/store"
)

// Step names used as checkpoint keys.
const (
	StepFetchText = "fetch-text"
	StepReduce    = "reduce"
)

// SummarizeChunkStep returns the step name of the summary of chunk index.
func SummarizeChunkStep(index int) string {
	return fmt.Sprintf("summarize-chunk-%d", index)
}

// Steps memoizes step results in a StepStore. Checkpoint read and write
// failures are logged and never fail the step itself.
type Steps struct {
	store  store.StepStore
	logger *slog.Logger
}

// NewSteps creates a Steps backed by stepStore.
func NewSteps(stepStore store.StepStore, logger *slog.Logger) *Steps {
	return &Steps{
		store:  stepStore,
		logger: logger.With("component", "job_steps"),
	}
}

// RunStep returns the checkpointed result of step name of job jobID if there
// is one. Otherwise it runs fn and checkpoints its JSON-encoded result. An
// error from fn is returned as is and nothing is saved.
func RunStep[T any](
	ctx context.Context,
	steps *Steps,
	jobID uuid.UUID,
	name string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	log := steps.logger.With("job_id", jobID, "step", name)

	if out, ok := loadStep[T](ctx, steps, jobID, name, log); ok {
		log.DebugContext(ctx, "reusing step checkpoint")
		return out, nil
	}

	out, err := fn(ctx)
	if err != nil {
		return out, err
	}

	data, err := json.Marshal(out)
	if err != nil {
		log.WarnContext(ctx, "failed to encode step result", "error", err)
		return out, nil
	}
	if err := steps.store.SaveStep(ctx, jobID, name, data); err != nil {
		log.WarnContext(ctx, "failed to save step checkpoint", "error", err)
	}
	return out, nil
}

func loadStep[T any](ctx context.Context, steps *Steps, jobID uuid.UUID, name string, log *slog.Logger) (T, bool) {
	var out T

	data, err := steps.store.GetStep(ctx, jobID, name)
	if errors.Is(err, store.ErrStepNotFound) {
		return out, false
	}
	if err != nil {
		log.WarnContext(ctx, "failed to load step checkpoint", "error", err)
		return out, false
	}

	if err := json.Unmarshal(data, &out); err != nil {
		log.WarnContext(ctx, "discarding unreadable step checkpoint", "error", err)
		var zero T
		return zero, false
	}
	return out, true
}
