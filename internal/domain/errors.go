package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDocID is returned when a document identifier is empty or malformed.
	ErrInvalidDocID = errors.New("invalid document ID")

	// ErrInvalidBulletPoints is returned when a summary does not hold exactly
	// BulletPointCount non-empty bullet points.
	ErrInvalidBulletPoints = errors.New("invalid bullet points")

	// ErrInvalidJobState is returned when a job state is not recognized.
	ErrInvalidJobState = errors.New("invalid job state")
)

// Pipeline error taxonomy. TextUnavailable, SummaryGenerationFailed and
// PersistenceFailure are fatal to a job. RateLimited is absorbed by the
// summarizer client and never reaches the orchestrator.
var (
	// ErrTextUnavailable is returned when the text of a document cannot be resolved.
	ErrTextUnavailable = errors.New("document text unavailable")

	// ErrRateLimited is returned by completion backends when the remote service
	// throttles a request.
	ErrRateLimited = errors.New("rate limited by completion service")

	// ErrSummaryGenerationFailed is returned for any non-rate-limit failure of
	// the completion service, including unparseable structured responses.
	ErrSummaryGenerationFailed = errors.New("summary generation failed")

	// ErrPersistenceFailure is returned when the summary record cannot be written.
	ErrPersistenceFailure = errors.New("failed to persist summary")
)
