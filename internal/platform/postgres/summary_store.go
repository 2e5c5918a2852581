package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/platform/logger"
	"github.com/phrazzld/summa/internal/store"
)

// PostgresSummaryStore implements store.SummaryStore on the summaries table.
type PostgresSummaryStore struct {
	db store.DBTX
}

// NewPostgresSummaryStore creates a new PostgresSummaryStore
func NewPostgresSummaryStore(db store.DBTX) *PostgresSummaryStore {
	return &PostgresSummaryStore{db: db}
}

var _ store.SummaryStore = (*PostgresSummaryStore)(nil)

// Find returns the summary record of docID, or store.ErrSummaryNotFound.
func (s *PostgresSummaryStore) Find(ctx context.Context, docID domain.DocID) (*domain.SummaryRecord, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT doc_id, bullet_points, created_at, updated_at
		FROM summaries
		WHERE doc_id = $1
	`

	var (
		record  domain.SummaryRecord
		bullets []byte
	)
	err := s.db.QueryRowContext(ctx, query, docID).Scan(
		&record.DocID,
		&bullets,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSummaryNotFound
	}
	if err != nil {
		log.Error("failed to find summary", "doc_id", docID, "error", err)
		return nil, store.NewStoreError("summary", "find", "query failed", MapError(err))
	}

	if err := json.Unmarshal(bullets, &record.BulletPoints); err != nil {
		return nil, store.NewStoreError("summary", "find", "corrupt bullet points", err)
	}
	return &record, nil
}

// Upsert inserts the summary of docID or replaces its bullet points. The
// UNIQUE(doc_id) constraint keeps one record per document even when two jobs
// persist concurrently.
func (s *PostgresSummaryStore) Upsert(
	ctx context.Context,
	docID domain.DocID,
	bulletPoints []string,
) (*domain.SummaryRecord, error) {
	log := logger.FromContext(ctx)

	candidate, err := domain.NewSummaryRecord(docID, bulletPoints)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	bullets, err := json.Marshal(candidate.BulletPoints)
	if err != nil {
		return nil, fmt.Errorf("%w: encode bullet points: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO summaries (doc_id, bullet_points, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (doc_id) DO UPDATE
		SET bullet_points = EXCLUDED.bullet_points, updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	record := *candidate
	now := time.Now().UTC()
	err = s.db.QueryRowContext(ctx, query, docID, string(bullets), now).Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		log.Error("failed to upsert summary", "doc_id", docID, "error", err)
		return nil, store.NewStoreError("summary", "upsert", "query failed", MapError(err))
	}

	log.Debug("summary upserted", "doc_id", docID)
	return &record, nil
}
