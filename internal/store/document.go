package store

import (
	"context"

	"github.com/phrazzld/summa/internal/domain"
)

// DocumentStore provides read access to source documents.
type DocumentStore interface {
	// GetByID returns the document with the given identifier.
	// Returns ErrDocumentNotFound if the document does not exist.
	GetByID(ctx context.Context, docID domain.DocID) (*domain.Document, error)
}
