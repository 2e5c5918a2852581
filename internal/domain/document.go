package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxDocIDLength bounds the length of an external document identifier.
const MaxDocIDLength = 128

// DocID is the stable external identifier of a document.
type DocID string

// ParseDocID validates and normalizes a raw document identifier. Identifiers
// are limited to ASCII letters, digits, '-', '_' and '.'.
func ParseDocID(raw string) (DocID, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDocID)
	}
	if len(id) > MaxDocIDLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidDocID, MaxDocIDLength)
	}
	for _, r := range id {
		if !isDocIDRune(r) {
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalidDocID, r)
		}
	}
	return DocID(id), nil
}

func isDocIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.':
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (id DocID) String() string {
	return string(id)
}

// Document is the source record a summary is computed from. Its text is
// either stored inline or fetched from TextURL.
type Document struct {
	ID        DocID     `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text,omitempty"`
	TextURL   string    `json:"text_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasInlineText reports whether the document carries its text directly.
func (d *Document) HasInlineText() bool {
	return d.Text != ""
}
