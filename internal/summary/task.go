package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/task"
)

// SummarizationTask runs the pipeline for one job on the task runner. The
// task ID is the job ID.
type SummarizationTask struct {
	job      *domain.Job
	pipeline *Pipeline
	logger   *slog.Logger

	mu     sync.Mutex
	status task.TaskStatus
}

// NewSummarizationTask creates a task for job.
func NewSummarizationTask(job *domain.Job, pipeline *Pipeline, logger *slog.Logger) (*SummarizationTask, error) {
	if pipeline == nil {
		return nil, ErrNilPipeline
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if job == nil || job.ID == uuid.Nil || job.DocID == "" {
		return nil, fmt.Errorf("%w: job requires an ID and a document ID", ErrInvalidPayload)
	}

	return &SummarizationTask{
		job:      job,
		pipeline: pipeline,
		logger:   logger.With("task_type", task.TaskTypeDocumentSummarization, "job_id", job.ID),
		status:   task.TaskStatusPending,
	}, nil
}

// ID returns the job ID.
func (t *SummarizationTask) ID() uuid.UUID {
	return t.job.ID
}

// Type returns task.TaskTypeDocumentSummarization.
func (t *SummarizationTask) Type() string {
	return task.TaskTypeDocumentSummarization
}

// Payload returns the JSON payload the TaskFactory rebuilds the task from.
func (t *SummarizationTask) Payload() []byte {
	data, err := json.Marshal(taskPayload{DocID: t.job.DocID, Channel: t.job.Channel})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the task's last known status.
func (t *SummarizationTask) Status() task.TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Job returns the job this task runs.
func (t *SummarizationTask) Job() *domain.Job {
	return t.job
}

// Execute runs the pipeline. Running it again after an interruption resumes
// from the job's checkpoints.
func (t *SummarizationTask) Execute(ctx context.Context) error {
	t.setStatus(task.TaskStatusProcessing)

	if _, err := t.pipeline.Run(ctx, t.job); err != nil {
		t.setStatus(task.TaskStatusFailed)
		return err
	}

	t.setStatus(task.TaskStatusCompleted)
	return nil
}

func (t *SummarizationTask) setStatus(status task.TaskStatus) {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()
}

// TaskFactory rebuilds SummarizationTasks from persisted task records.
type TaskFactory struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewTaskFactory creates a TaskFactory whose tasks run on pipeline.
func NewTaskFactory(pipeline *Pipeline, logger *slog.Logger) *TaskFactory {
	return &TaskFactory{
		pipeline: pipeline,
		logger:   logger.With("component", "summarization_task_factory"),
	}
}

// CreateTask implements task.Factory.
func (f *TaskFactory) CreateTask(rec task.Record) (task.Task, error) {
	var payload taskPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	docID, err := domain.ParseDocID(payload.DocID.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	channel := payload.Channel
	if channel == "" {
		channel = rec.ID.String()
	}

	job := &domain.Job{
		ID:        rec.ID,
		DocID:     docID,
		Channel:   channel,
		State:     domain.JobStateCheckCache,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	return NewSummarizationTask(job, f.pipeline, f.logger)
}

var (
	_ task.Task    = (*SummarizationTask)(nil)
	_ task.Factory = (*TaskFactory)(nil)
)
