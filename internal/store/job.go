package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/summa/internal/domain"
)

// JobStore defines the interface for summarization job persistence.
type JobStore interface {
	// CreateOrGetActive atomically inserts job unless its document already
	// has an active (pending or processing) job. It returns the job that is
	// active afterwards and whether it was created by this call.
	CreateOrGetActive(ctx context.Context, job *domain.Job) (*domain.Job, bool, error)

	// GetByID retrieves a job by its unique ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// UpdateState records the pipeline state of a job.
	// Returns ErrJobNotFound if the job does not exist.
	UpdateState(ctx context.Context, id uuid.UUID, state domain.JobState) error
}

// StepStore persists step checkpoints so that a resumed job can skip steps
// that already completed.
type StepStore interface {
	// GetStep returns the saved result of a step.
	// Returns ErrStepNotFound if the step has no checkpoint.
	GetStep(ctx context.Context, jobID uuid.UUID, name string) ([]byte, error)

	// SaveStep stores the result of a completed step, replacing any previous
	// checkpoint for the same job and step name.
	SaveStep(ctx context.Context, jobID uuid.UUID, name string, result []byte) error
}
