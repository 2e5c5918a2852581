// Package chunker splits document text into ordered, contiguous,
// fixed-size chunks.
package chunker

import (
	"errors"
	"fmt"
)

// DefaultChunkSize is the chunk size in bytes used when none is configured.
const DefaultChunkSize = 16384

// ErrInvalidChunkSize is returned when the chunk size is not positive.
var ErrInvalidChunkSize = errors.New("chunk size must be greater than zero")

// Chunk is a contiguous slice of a document's text. Index fixes the order in
// which partial summaries are reduced.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Len returns the chunk length in bytes.
func (c Chunk) Len() int {
	return len(c.Text)
}

// Split divides text into chunks of exactly size bytes, except for the last
// chunk which may be shorter. Concatenating the chunk texts in index order
// reproduces text byte for byte. Empty text yields an empty, non-nil slice.
//
// Splitting is byte based, so a multi-byte rune may straddle two chunks.
func Split(text string, size int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}

	chunks := make([]Chunk, 0, (len(text)+size-1)/size)
	for start, i := 0, 0; start < len(text); start, i = start+size, i+1 {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, Chunk{Index: i, Text: text[start:end]})
	}

	return chunks, nil
}

// Chunker binds a chunk size so it can be injected where splitting happens.
type Chunker struct {
	size int
}

// New creates a Chunker for size-byte chunks.
func New(size int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	return &Chunker{size: size}, nil
}

// Size returns the configured chunk size in bytes.
func (c *Chunker) Size() int {
	return c.size
}

// Split splits text using the configured size.
func (c *Chunker) Split(text string) []Chunk {
	chunks, _ := Split(text, c.size)
	return chunks
}
