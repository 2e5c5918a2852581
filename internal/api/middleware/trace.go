package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/summa/internal/api/shared"
	"github.com/phrazzld/summa/internal/platform/logger"
)

// TraceHeader carries the trace ID of a request back to the client.
const TraceHeader = "X-Trace-ID"

// NewTraceMiddleware returns middleware that assigns each request a trace ID
// and stores a logger tagged with it in the request context. Apply it early
// in the chain so later handlers log with the trace ID.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			w.Header().Set(TraceHeader, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
