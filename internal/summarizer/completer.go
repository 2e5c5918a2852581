package summarizer

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/summa/internal/domain"
)

// Role identifies the author of a chat message.
type Role string

// Chat roles understood by every backend.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message of a completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion request.
type Request struct {
	Messages []Message
	// JSON asks the backend for a JSON object response.
	JSON bool
}

// Completer is a chat-completion backend. Implementations return a
// *RateLimitError when the remote service throttles the request and a plain
// error for every other failure.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// RateLimitError signals that the completion service rejected a request
// because of throttling. RetryAfter is zero when the service gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
	// Message carries the service's explanation, if any.
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	msg := domain.ErrRateLimited.Error()
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("%s (retry after %s)", msg, e.RetryAfter)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap allows errors.Is(err, domain.ErrRateLimited).
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}
