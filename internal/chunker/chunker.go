// Package chunker splits document text into fixed-size windows with
// overlap so that retrieval granularity stays uniform across the
// knowledge base.
//
// Windows are measured in runes, not bytes: the knowledge base carries
// accented Spanish text and splitting mid-codepoint would corrupt chunk
// boundaries.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidParams indicates size/overlap values that cannot make progress.
var ErrInvalidParams = errors.New("invalid chunking parameters")

// Chunker splits text into overlapping windows.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker.
// Returns ErrInvalidParams when size < 1, overlap < 0, or overlap >= size:
// with overlap >= size the window would never advance.
func New(size, overlap int) (*Chunker, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidParams, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap cannot be negative, got %d", ErrInvalidParams, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap (%d) must be smaller than size (%d)", ErrInvalidParams, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split returns the overlapping windows of text.
//
// Every chunk except the last has exactly size runes; consecutive
// chunks share exactly overlap runes. Empty or whitespace-only input
// yields no chunks.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}

	step := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
