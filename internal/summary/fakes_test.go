package summary

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/summa/internal/chunker"
	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/progress"
	"github.com/phrazzld/summa/internal/store"
	"github.com/phrazzld/summa/internal/task"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fiveBullets(prefix string) []string {
	out := make([]string, domain.BulletPointCount)
	for i := range out {
		out[i] = fmt.Sprintf("%s bullet %d", prefix, i+1)
	}
	return out
}

// memSummaryStore is an in-memory store.SummaryStore.
type memSummaryStore struct {
	mu      sync.Mutex
	records map[domain.DocID]*domain.SummaryRecord
	upserts int

	FindErr   error
	UpsertErr error
	// UpsertFailures fails that many upserts with UpsertErr before the
	// store starts accepting them. Zero fails every upsert.
	UpsertFailures int
	upsertErrs     int
}

func newMemSummaryStore() *memSummaryStore {
	return &memSummaryStore{records: make(map[domain.DocID]*domain.SummaryRecord)}
}

func (s *memSummaryStore) Find(ctx context.Context, docID domain.DocID) (*domain.SummaryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	rec, ok := s.records[docID]
	if !ok {
		return nil, store.ErrSummaryNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memSummaryStore) Upsert(ctx context.Context, docID domain.DocID, bullets []string) (*domain.SummaryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertErr != nil && (s.UpsertFailures == 0 || s.upsertErrs < s.UpsertFailures) {
		s.upsertErrs++
		return nil, s.UpsertErr
	}
	rec, err := domain.NewSummaryRecord(docID, bullets)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if existing, ok := s.records[docID]; ok {
		rec.CreatedAt = existing.CreatedAt
	}
	s.records[docID] = rec
	s.upserts++
	cp := *rec
	return &cp, nil
}

func (s *memSummaryStore) put(docID domain.DocID, bullets []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[docID] = &domain.SummaryRecord{DocID: docID, BulletPoints: bullets}
}

func (s *memSummaryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memSummaryStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

// memJobStore is an in-memory ServiceStore and PipelineStore. A job stays
// active until its task status is completed or failed.
type memJobStore struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*domain.Job
	statuses map[uuid.UUID]task.TaskStatus
	steps    map[string][]byte
	states   map[uuid.UUID][]domain.JobState
	created  int

	GetStepErr  error
	SaveStepErr error
}

func newMemJobStore() *memJobStore {
	return &memJobStore{
		jobs:     make(map[uuid.UUID]*domain.Job),
		statuses: make(map[uuid.UUID]task.TaskStatus),
		steps:    make(map[string][]byte),
		states:   make(map[uuid.UUID][]domain.JobState),
	}
}

func stepKey(jobID uuid.UUID, name string) string {
	return jobID.String() + "/" + name
}

func (s *memJobStore) CreateOrGetActive(ctx context.Context, job *domain.Job) (*domain.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.jobs {
		if existing.DocID == job.DocID && s.statuses[id].IsActive() {
			cp := *existing
			return &cp, false, nil
		}
	}
	cp := *job
	s.jobs[job.ID] = &cp
	s.statuses[job.ID] = task.TaskStatusPending
	s.created++
	return job, true, nil
}

func (s *memJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *memJobStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.JobState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = append(s.states[id], state)
	if job, ok := s.jobs[id]; ok {
		job.State = state
	}
	return nil
}

func (s *memJobStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status task.TaskStatus, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return store.ErrJobNotFound
	}
	s.statuses[id] = status
	return nil
}

func (s *memJobStore) GetStep(ctx context.Context, jobID uuid.UUID, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetStepErr != nil {
		return nil, s.GetStepErr
	}
	data, ok := s.steps[stepKey(jobID, name)]
	if !ok {
		return nil, store.ErrStepNotFound
	}
	return data, nil
}

func (s *memJobStore) SaveStep(ctx context.Context, jobID uuid.UUID, name string, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveStepErr != nil {
		return s.SaveStepErr
	}
	s.steps[stepKey(jobID, name)] = result
	return nil
}

func (s *memJobStore) step(jobID uuid.UUID, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.steps[stepKey(jobID, name)]
	return data, ok
}

func (s *memJobStore) lastState(id uuid.UUID) domain.JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := s.states[id]
	if len(states) == 0 {
		return ""
	}
	return states[len(states)-1]
}

func (s *memJobStore) status(id uuid.UUID) task.TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[id]
}

func (s *memJobStore) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

// fakeTextSource serves texts from a map.
type fakeTextSource struct {
	texts map[domain.DocID]string
	calls atomic.Int32
}

func (f *fakeTextSource) GetDocumentText(ctx context.Context, docID domain.DocID) (string, error) {
	f.calls.Add(1)
	text, ok := f.texts[docID]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrTextUnavailable, docID)
	}
	return text, nil
}

// fakeSummarizer records calls and delegates to optional functions.
type fakeSummarizer struct {
	SummarizeFn func(ctx context.Context, call int, text string) (string, error)
	ReduceFn    func(ctx context.Context, partials []string) ([]string, error)

	mu         sync.Mutex
	summarized []string
	reduced    [][]string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	call := len(f.summarized)
	f.summarized = append(f.summarized, text)
	f.mu.Unlock()

	if f.SummarizeFn != nil {
		return f.SummarizeFn(ctx, call, text)
	}
	return fmt.Sprintf("partial of %d bytes", len(text)), nil
}

func (f *fakeSummarizer) Reduce(ctx context.Context, partials []string) ([]string, error) {
	f.mu.Lock()
	f.reduced = append(f.reduced, append([]string(nil), partials...))
	f.mu.Unlock()

	if f.ReduceFn != nil {
		return f.ReduceFn(ctx, partials)
	}
	return fiveBullets("final"), nil
}

func (f *fakeSummarizer) summarizeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.summarized...)
}

func (f *fakeSummarizer) reduceCalls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.reduced...)
}

// fixture wires a Pipeline to in-memory collaborators.
type fixture struct {
	summaries  *memSummaryStore
	jobs       *memJobStore
	text       *fakeTextSource
	summarizer *fakeSummarizer
	recorder   *progress.Recorder
	pipeline   *Pipeline
	waits      []time.Duration
}

func newFixture(t *testing.T, chunkSize int, timeout time.Duration) *fixture {
	t.Helper()

	c, err := chunker.New(chunkSize)
	require.NoError(t, err)

	f := &fixture{
		summaries:  newMemSummaryStore(),
		jobs:       newMemJobStore(),
		text:       &fakeTextSource{texts: make(map[domain.DocID]string)},
		summarizer: &fakeSummarizer{},
		recorder:   &progress.Recorder{},
	}

	f.pipeline, err = NewPipeline(PipelineDeps{
		Summaries:  f.summaries,
		Jobs:       f.jobs,
		Text:       f.text,
		Summarizer: f.summarizer,
		Chunker:    c,
		Publisher:  f.recorder,
	}, timeout, testLogger())
	require.NoError(t, err)
	f.pipeline.sleep = func(ctx context.Context, d time.Duration) error {
		f.waits = append(f.waits, d)
		return ctx.Err()
	}

	return f
}

// newJob creates a job and registers it as active in the job store.
func (f *fixture) newJob(t *testing.T, docID domain.DocID) *domain.Job {
	t.Helper()
	job, err := domain.NewJob(docID, "")
	require.NoError(t, err)
	_, created, err := f.jobs.CreateOrGetActive(context.Background(), job)
	require.NoError(t, err)
	require.True(t, created)
	return job
}

// lastEvent returns the last published event.
func (f *fixture) lastEvent(t *testing.T) progress.Event {
	t.Helper()
	events := f.recorder.Events()
	require.NotEmpty(t, events)
	return events[len(events)-1].Event
}
