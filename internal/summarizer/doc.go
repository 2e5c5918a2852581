// Package summarizer implements the summarizer client: single-chunk
// summarization and the final reduction of partial summaries into bullet
// points, on top of a pluggable chat-completion backend.
//
// Rate-limit responses from the backend are absorbed here by waiting for the
// server-provided delay and retrying the same request, bounded by a total
// wait budget. Every other backend failure surfaces immediately as
// domain.ErrSummaryGenerationFailed.
package summarizer
