package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/platform/logger"
	"github.com/phrazzld/summa/internal/store"
)

// PostgresDocumentStore implements store.DocumentStore on the documents table.
type PostgresDocumentStore struct {
	db store.DBTX
}

// NewPostgresDocumentStore creates a new PostgresDocumentStore
func NewPostgresDocumentStore(db store.DBTX) *PostgresDocumentStore {
	return &PostgresDocumentStore{db: db}
}

var _ store.DocumentStore = (*PostgresDocumentStore)(nil)

// GetByID returns the document with the given ID, or store.ErrDocumentNotFound.
func (s *PostgresDocumentStore) GetByID(ctx context.Context, docID domain.DocID) (*domain.Document, error) {
	query := `
		SELECT id, title, text, text_url, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	var (
		doc     domain.Document
		text    sql.NullString
		textURL sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, docID).Scan(
		&doc.ID,
		&doc.Title,
		&text,
		&textURL,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrDocumentNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get document", "doc_id", docID, "error", err)
		return nil, store.NewStoreError("document", "get", "query failed", MapError(err))
	}

	doc.Text = text.String
	doc.TextURL = textURL.String
	return &doc, nil
}
