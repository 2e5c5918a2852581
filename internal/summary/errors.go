package summary

import (
	"context"
	"errors"

	"github.com/phrazzld/summa/internal/domain"
)

// Common errors returned by constructors in this package.
var (
	ErrNilSummaryStore = errors.New("summary store cannot be nil")
	ErrNilJobStore     = errors.New("job store cannot be nil")
	ErrNilTextSource   = errors.New("text source cannot be nil")
	ErrNilSummarizer   = errors.New("summarizer cannot be nil")
	ErrNilChunker      = errors.New("chunker cannot be nil")
	ErrNilPublisher    = errors.New("progress publisher cannot be nil")
	ErrNilEmitter      = errors.New("event emitter cannot be nil")
	ErrNilPipeline     = errors.New("pipeline cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
	ErrInvalidPayload  = errors.New("invalid summarization task payload")
)

// Messages carried by failed progress events.
const (
	MessageTextUnavailable   = "The text of this document is not available."
	MessageGenerationFailed  = "Failed to generate summary for this document."
	MessagePersistenceFailed = "Failed to save the summary for this document."
	MessageTimedOut          = "Summarizing this document took too long."
	MessageUnexpected        = "Something went wrong while summarizing this document."
)

// FailureMessage returns the human-readable message published when a job
// fails with err.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrTextUnavailable):
		return MessageTextUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return MessageTimedOut
	case errors.Is(err, domain.ErrSummaryGenerationFailed):
		return MessageGenerationFailed
	case errors.Is(err, domain.ErrPersistenceFailure):
		return MessagePersistenceFailed
	default:
		return MessageUnexpected
	}
}
