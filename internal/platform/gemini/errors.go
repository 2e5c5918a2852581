package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrMissingAPIKey is returned when the client is configured without an API key.
	ErrMissingAPIKey = errors.New("gemini API key cannot be empty")

	// ErrNilLogger is returned when the client is constructed without a logger.
	ErrNilLogger = errors.New("logger cannot be nil")

	// ErrContentBlocked is returned when the prompt or response is blocked by safety filters.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrEmptyResponse is returned when the API returns no usable candidate.
	ErrEmptyResponse = errors.New("empty response from language model")
)
