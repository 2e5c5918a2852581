package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/events"
	"github.com/phrazzld/summa/internal/store"
	"github.com/phrazzld/summa/internal/task"
	"golang.org/x/sync/singleflight"
)

// TriggerStatus tells the caller of Trigger what happened.
type TriggerStatus string

// Possible trigger statuses.
const (
	// TriggerStatusCached means a summary already exists and is returned.
	TriggerStatusCached TriggerStatus = "cached"
	// TriggerStatusStarted means this call started a new job.
	TriggerStatusStarted TriggerStatus = "started"
	// TriggerStatusJoined means a job for the document was already running.
	TriggerStatusJoined TriggerStatus = "joined"
)

// TriggerResult is returned by Trigger. BulletPoints is only set for
// TriggerStatusCached; JobID and Channel only for the other statuses.
type TriggerResult struct {
	Status       TriggerStatus
	BulletPoints []string
	JobID        uuid.UUID
	Channel      string
}

// taskPayload is the persisted payload of a summarization task.
type taskPayload struct {
	DocID   domain.DocID `json:"doc_id"`
	Channel string       `json:"channel"`
}

// ServiceStore is the job persistence a Service needs. UpdateTaskStatus
// settles jobs that RunSync runs outside the task runner.
type ServiceStore interface {
	store.JobStore
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status task.TaskStatus, errorMsg string) error
}

// Service is the entry point for requesting summaries.
type Service struct {
	summaries store.SummaryStore
	jobs      ServiceStore
	emitter   events.EventEmitter
	pipeline  *Pipeline
	group     singleflight.Group
	logger    *slog.Logger
}

// NewService creates a Service. Jobs it starts are announced through
// emitter as task request events.
func NewService(
	summaries store.SummaryStore,
	jobs ServiceStore,
	emitter events.EventEmitter,
	pipeline *Pipeline,
	logger *slog.Logger,
) (*Service, error) {
	switch {
	case summaries == nil:
		return nil, ErrNilSummaryStore
	case jobs == nil:
		return nil, ErrNilJobStore
	case emitter == nil:
		return nil, ErrNilEmitter
	case pipeline == nil:
		return nil, ErrNilPipeline
	case logger == nil:
		return nil, ErrNilLogger
	}

	return &Service{
		summaries: summaries,
		jobs:      jobs,
		emitter:   emitter,
		pipeline:  pipeline,
		logger:    logger.With("component", "summary_service"),
	}, nil
}

// GetCachedResult returns the stored summary of docID, or
// store.ErrSummaryNotFound. It has no side effects.
func (s *Service) GetCachedResult(ctx context.Context, docID domain.DocID) (*domain.SummaryRecord, error) {
	return s.summaries.Find(ctx, docID)
}

// Trigger returns the cached summary of docID if there is one. Otherwise it
// starts a job for the document, or joins the one already active, and
// returns without waiting for it. connectionID names the progress channel of
// a new job; when empty the job ID is used.
func (s *Service) Trigger(ctx context.Context, docID domain.DocID, connectionID string) (*TriggerResult, error) {
	log := s.logger.With("doc_id", docID)

	record, err := s.summaries.Find(ctx, docID)
	if err == nil {
		log.DebugContext(ctx, "summary found in cache")
		return &TriggerResult{Status: TriggerStatusCached, BulletPoints: record.BulletPoints}, nil
	}
	if !errors.Is(err, store.ErrSummaryNotFound) {
		log.ErrorContext(ctx, "failed to look up summary", "error", err)
		return nil, fmt.Errorf("failed to look up summary: %w", err)
	}

	executed := false
	v, err, _ := s.group.Do(docID.String(), func() (any, error) {
		executed = true
		// Joiners share this call, so one caller going away must not fail it.
		return s.startOrJoin(context.WithoutCancel(ctx), docID, connectionID)
	})
	if err != nil {
		return nil, err
	}

	result := *v.(*TriggerResult)
	if !executed {
		result.Status = TriggerStatusJoined
	}
	log.InfoContext(ctx, "summarization triggered",
		"status", result.Status,
		"job_id", result.JobID,
		"channel", result.Channel)
	return &result, nil
}

func (s *Service) startOrJoin(ctx context.Context, docID domain.DocID, connectionID string) (*TriggerResult, error) {
	job, err := domain.NewJob(docID, connectionID)
	if err != nil {
		return nil, err
	}

	active, created, err := s.jobs.CreateOrGetActive(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	if !created {
		return &TriggerResult{Status: TriggerStatusJoined, JobID: active.ID, Channel: active.Channel}, nil
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeDocumentSummarization, active.ID,
		taskPayload{DocID: active.DocID, Channel: active.Channel})
	if err != nil {
		return nil, fmt.Errorf("failed to create task request: %w", err)
	}

	// The job row is already pending, so a failed emit only delays the job
	// until the runner picks up stale pending tasks.
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit task request, job left pending",
			"job_id", active.ID,
			"doc_id", docID,
			"error", err)
	}

	return &TriggerResult{Status: TriggerStatusStarted, JobID: active.ID, Channel: active.Channel}, nil
}

// RunSync runs a summarization of docID in the calling goroutine and returns
// its result. It does not go through the task runner, but it still claims
// the document's active job slot so it never runs next to a background job.
func (s *Service) RunSync(ctx context.Context, docID domain.DocID, channel string) (*Result, error) {
	job, err := domain.NewJob(docID, channel)
	if err != nil {
		return nil, err
	}

	active, created, err := s.jobs.CreateOrGetActive(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	if !created {
		return nil, fmt.Errorf("%w: job %s", store.ErrActiveJobExists, active.ID)
	}

	s.settle(ctx, active.ID, task.TaskStatusProcessing, "")
	result, err := s.pipeline.Run(ctx, active)
	if err != nil {
		s.settle(context.WithoutCancel(ctx), active.ID, task.TaskStatusFailed, err.Error())
		return nil, err
	}
	s.settle(ctx, active.ID, task.TaskStatusCompleted, "")
	return result, nil
}

func (s *Service) settle(ctx context.Context, jobID uuid.UUID, status task.TaskStatus, msg string) {
	if err := s.jobs.UpdateTaskStatus(ctx, jobID, status, msg); err != nil {
		s.logger.WarnContext(ctx, "failed to update job status",
			"job_id", jobID,
			"status", status,
			"error", err)
	}
}
