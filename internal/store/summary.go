package store

import (
	"context"

	"github.com/phrazzld/summa/internal/domain"
)

// SummaryStore defines the interface for summary record persistence.
type SummaryStore interface {
	// Find returns the summary record of a document.
	// Returns ErrSummaryNotFound if the document has not been summarized.
	Find(ctx context.Context, docID domain.DocID) (*domain.SummaryRecord, error)

	// Upsert creates the record for docID or overwrites its bullet points.
	// It never produces more than one record per document.
	// Returns ErrInvalidEntity if the bullet points fail validation.
	Upsert(ctx context.Context, docID domain.DocID, bulletPoints []string) (*domain.SummaryRecord, error)
}
