package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is the type of context keys set by this package.
type ContextKey string

// TraceIDKey is the context key of the request trace ID.
const TraceIDKey ContextKey = "traceID"

// TraceIDLength is the length of a trace ID in hex characters.
const TraceIDLength = 32

// SetTraceID returns a copy of ctx carrying a new trace ID.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, NewTraceID())
}

// WithTraceID returns a copy of ctx carrying traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace ID stored in ctx, or "" if there is none.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// NewTraceID returns a random 32 character hex trace ID.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
