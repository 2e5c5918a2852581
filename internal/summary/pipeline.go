package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/summa/internal/chunker"
	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/platform/logger"
	"github.com/phrazzld/summa/internal/progress"
	"github.com/phrazzld/summa/internal/store"
)

// TextSource resolves the full text of a document.
type TextSource interface {
	// GetDocumentText returns the text of docID, or an error wrapping
	// domain.ErrTextUnavailable.
	GetDocumentText(ctx context.Context, docID domain.DocID) (string, error)
}

// Summarizer produces partial summaries and reduces them to bullet points.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
	Reduce(ctx context.Context, partials []string) ([]string, error)
}

// PipelineStore is the persistence a pipeline needs: jobs and their step
// checkpoints.
type PipelineStore interface {
	store.JobStore
	store.StepStore
}

// PipelineDeps holds the collaborators of a Pipeline.
type PipelineDeps struct {
	Summaries  store.SummaryStore
	Jobs       PipelineStore
	Text       TextSource
	Summarizer Summarizer
	Chunker    *chunker.Chunker
	Publisher  progress.Publisher
}

// Outcome describes how a job finished.
type Outcome string

// Possible outcomes of a successful run.
const (
	OutcomeSummarized Outcome = "summarized"
	OutcomeCached     Outcome = "cached"
	OutcomeEmpty      Outcome = "empty"
)

// Result is the result of a successful run. Record is nil for OutcomeEmpty.
type Result struct {
	Outcome Outcome
	Record  *domain.SummaryRecord
}

// BulletPoints returns the final bullet points, or nil for an empty document.
func (r *Result) BulletPoints() []string {
	if r.Record == nil {
		return nil
	}
	return r.Record.BulletPoints
}

// Upserts are retried this many times, backing off from persistBackoff and
// doubling after each failure.
const (
	persistAttempts = 4
	persistBackoff  = 500 * time.Millisecond
)

// Pipeline runs summarization jobs.
type Pipeline struct {
	summaries  store.SummaryStore
	jobs       PipelineStore
	steps      *Steps
	text       TextSource
	summarizer Summarizer
	chunker    *chunker.Chunker
	publisher  progress.Publisher
	timeout    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// NewPipeline creates a Pipeline. A positive timeout bounds every run.
func NewPipeline(deps PipelineDeps, timeout time.Duration, logger *slog.Logger) (*Pipeline, error) {
	switch {
	case deps.Summaries == nil:
		return nil, ErrNilSummaryStore
	case deps.Jobs == nil:
		return nil, ErrNilJobStore
	case deps.Text == nil:
		return nil, ErrNilTextSource
	case deps.Summarizer == nil:
		return nil, ErrNilSummarizer
	case deps.Chunker == nil:
		return nil, ErrNilChunker
	case deps.Publisher == nil:
		return nil, ErrNilPublisher
	case logger == nil:
		return nil, ErrNilLogger
	}

	logger = logger.With("component", "summary_pipeline")
	return &Pipeline{
		summaries:  deps.Summaries,
		jobs:       deps.Jobs,
		steps:      NewSteps(deps.Jobs, logger),
		text:       deps.Text,
		summarizer: deps.Summarizer,
		chunker:    deps.Chunker,
		publisher:  deps.Publisher,
		timeout:    timeout,
		sleep:      sleepContext,
		logger:     logger,
	}, nil
}

// Run executes job to completion. On failure it publishes one failed event,
// moves the job to FAILED and returns the error. If ctx itself is cancelled
// the job is left as is so that it can be resumed.
func (p *Pipeline) Run(ctx context.Context, job *domain.Job) (*Result, error) {
	log := p.logger.With("job_id", job.ID, "doc_id", job.DocID, "channel", job.Channel)

	runCtx := logger.WithLogger(ctx, log)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, p.timeout)
		defer cancel()
	}

	tracker := progress.NewTracker(p.publisher, job.Channel, log)
	start := time.Now()

	result, err := p.run(runCtx, job, tracker)
	if err != nil {
		if ctx.Err() != nil {
			log.WarnContext(ctx, "summarization interrupted", "state", job.State, "error", err)
			return nil, err
		}

		failCtx := context.WithoutCancel(runCtx)
		log.ErrorContext(failCtx, "summarization failed", "state", job.State, "error", err)
		tracker.Fail(failCtx, FailureMessage(err))
		p.setState(failCtx, job, domain.JobStateFailed)
		return nil, err
	}

	log.InfoContext(ctx, "summarization finished",
		"outcome", result.Outcome,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, job *domain.Job, tracker *progress.Tracker) (*Result, error) {
	p.setState(ctx, job, domain.JobStateCheckCache)
	cached, err := p.summaries.Find(ctx, job.DocID)
	switch {
	case err == nil:
		p.setState(ctx, job, domain.JobStateDone)
		tracker.Complete(ctx, cached.BulletPoints)
		return &Result{Outcome: OutcomeCached, Record: cached}, nil
	case !errors.Is(err, store.ErrSummaryNotFound):
		return nil, fmt.Errorf("failed to check for an existing summary: %w", err)
	}

	p.setState(ctx, job, domain.JobStateFetchingText)
	text, err := RunStep(ctx, p.steps, job.ID, StepFetchText, func(ctx context.Context) (string, error) {
		return p.text.GetDocumentText(ctx, job.DocID)
	})
	if err != nil {
		return nil, err
	}
	tracker.Advance(ctx, domain.FetchUnits)

	p.setState(ctx, job, domain.JobStateChunking)
	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		p.setState(ctx, job, domain.JobStateDone)
		tracker.Complete(ctx, nil)
		return &Result{Outcome: OutcomeEmpty}, nil
	}
	tracker.SetPlan(ctx, domain.NewProgressPlan(len(chunks)))

	p.setState(ctx, job, domain.JobStateSummarizing)
	partials := make([]string, 0, len(chunks))
	for _, c := range chunks {
		partial, err := RunStep(ctx, p.steps, job.ID, SummarizeChunkStep(c.Index), func(ctx context.Context) (string, error) {
			return p.summarizer.Summarize(ctx, c.Text)
		})
		if err != nil {
			return nil, fmt.Errorf("chunk %d of %d: %w", c.Index+1, len(chunks), err)
		}
		partials = append(partials, partial)
		tracker.Advance(ctx, 1)
		// Refreshes updated_at so a long chunk loop never looks stuck.
		p.setState(ctx, job, domain.JobStateSummarizing)
	}

	p.setState(ctx, job, domain.JobStateReducing)
	bullets, err := RunStep(ctx, p.steps, job.ID, StepReduce, func(ctx context.Context) ([]string, error) {
		return p.summarizer.Reduce(ctx, partials)
	})
	if err != nil {
		return nil, err
	}
	tracker.Advance(ctx, domain.ReduceUnits)

	// Persisting is not checkpointed: the upsert is safe to repeat.
	p.setState(ctx, job, domain.JobStatePersisting)
	record, err := p.persist(ctx, job.DocID, bullets)
	if err != nil {
		return nil, err
	}

	p.setState(ctx, job, domain.JobStateDone)
	tracker.Complete(ctx, record.BulletPoints)
	return &Result{Outcome: OutcomeSummarized, Record: record}, nil
}

// persist upserts the summary, retrying store errors with a doubling backoff.
// Invalid records are not retried.
func (p *Pipeline) persist(ctx context.Context, docID domain.DocID, bullets []string) (*domain.SummaryRecord, error) {
	backoff := persistBackoff
	var err error
	for attempt := 1; ; attempt++ {
		var record *domain.SummaryRecord
		record, err = p.summaries.Upsert(ctx, docID, bullets)
		if err == nil {
			return record, nil
		}
		if attempt == persistAttempts || errors.Is(err, store.ErrInvalidEntity) {
			break
		}

		logger.FromContext(ctx).WarnContext(ctx, "failed to persist summary, retrying",
			"attempt", attempt,
			"backoff_ms", backoff.Milliseconds(),
			"error", err)
		if sleepErr := p.sleep(ctx, backoff); sleepErr != nil {
			err = errors.Join(err, sleepErr)
			break
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// setState records the job's state. Failures are logged only: the state
// column is informational and the task status drives recovery.
func (p *Pipeline) setState(ctx context.Context, job *domain.Job, state domain.JobState) {
	if err := job.Transition(state); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "invalid job state", "state", state, "error", err)
		return
	}
	if err := p.jobs.UpdateState(ctx, job.ID, state); err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "failed to record job state", "state", state, "error", err)
	}
}
