package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobState represents the step a summarization job is in.
type JobState string

// Job states, in pipeline order. Done and Failed are terminal.
const (
	JobStateCheckCache   JobState = "CHECK_CACHE"
	JobStateFetchingText JobState = "FETCHING_TEXT"
	JobStateChunking     JobState = "CHUNKING"
	JobStateSummarizing  JobState = "SUMMARIZING"
	JobStateReducing     JobState = "REDUCING"
	JobStatePersisting   JobState = "PERSISTING"
	JobStateDone         JobState = "DONE"
	JobStateFailed       JobState = "FAILED"
)

// IsTerminal reports whether no further transitions leave s.
func (s JobState) IsTerminal() bool {
	return s == JobStateDone || s == JobStateFailed
}

// Valid reports whether s is a known state.
func (s JobState) Valid() bool {
	switch s {
	case JobStateCheckCache, JobStateFetchingText, JobStateChunking, JobStateSummarizing,
		JobStateReducing, JobStatePersisting, JobStateDone, JobStateFailed:
		return true
	default:
		return false
	}
}

// Job is one end-to-end run of the pipeline for one document. Channel is the
// name of the progress channel the job publishes to.
type Job struct {
	ID        uuid.UUID `json:"id"`
	DocID     DocID     `json:"doc_id"`
	Channel   string    `json:"channel"`
	State     JobState  `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJob creates a job in the CHECK_CACHE state. An empty channel defaults to
// the job ID.
func NewJob(docID DocID, channel string) (*Job, error) {
	if docID == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidDocID)
	}

	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.New(),
		DocID:     docID,
		Channel:   channel,
		State:     JobStateCheckCache,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if job.Channel == "" {
		job.Channel = job.ID.String()
	}

	return job, nil
}

// nextStates lists the forward moves out of each non-terminal state. A cache
// hit finishes from CHECK_CACHE and an empty document from CHUNKING.
var nextStates = map[JobState][]JobState{
	JobStateCheckCache:   {JobStateFetchingText, JobStateDone},
	JobStateFetchingText: {JobStateChunking},
	JobStateChunking:     {JobStateSummarizing, JobStateDone},
	JobStateSummarizing:  {JobStateReducing},
	JobStateReducing:     {JobStatePersisting},
	JobStatePersisting:   {JobStateDone},
}

// CanTransition reports whether a job in s may move to next. Staying in a
// non-terminal state is allowed, as is failing from any of them.
func (s JobState) CanTransition(next JobState) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	if next == s || next == JobStateFailed {
		return true
	}
	for _, allowed := range nextStates[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition moves the job to state and updates UpdatedAt. Moves the state
// machine does not allow return ErrInvalidJobState.
func (j *Job) Transition(state JobState) error {
	if !state.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidJobState, state)
	}
	if !j.State.CanTransition(state) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidJobState, j.State, state)
	}
	j.State = state
	j.UpdatedAt = time.Now().UTC()
	return nil
}
