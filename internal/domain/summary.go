package domain

import (
	"fmt"
	"strings"
	"time"
)

// BulletPointCount is the exact number of bullet points in a final summary.
const BulletPointCount = 5

// SummaryRecord is the durable result of a successful summarization job.
// At most one record exists per DocID.
type SummaryRecord struct {
	DocID        DocID     `json:"doc_id"`
	BulletPoints []string  `json:"bulletpoints"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSummaryRecord creates a validated SummaryRecord with fresh timestamps.
func NewSummaryRecord(docID DocID, bulletPoints []string) (*SummaryRecord, error) {
	now := time.Now().UTC()
	record := &SummaryRecord{
		DocID:        docID,
		BulletPoints: append([]string(nil), bulletPoints...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}

// Validate checks if the SummaryRecord has valid data.
func (r *SummaryRecord) Validate() error {
	if r.DocID == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDocID)
	}
	return ValidateBulletPoints(r.BulletPoints)
}

// ValidateBulletPoints returns ErrInvalidBulletPoints unless bullets holds
// exactly BulletPointCount strings, none of them blank.
func ValidateBulletPoints(bullets []string) error {
	if len(bullets) != BulletPointCount {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidBulletPoints, BulletPointCount, len(bullets))
	}
	for i, b := range bullets {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("%w: bullet point %d is empty", ErrInvalidBulletPoints, i)
		}
	}
	return nil
}
