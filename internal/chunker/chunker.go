// Package chunker splits document text into overlapping fixed-size
// windows, the unit of embedding and retrieval.
package chunker

import (
	"fmt"

	"document-qa/internal/models"
)

// Split slides a window of length size over text with step
// size-overlap. Every window becomes one chunk; the final chunk keeps
// the remainder even when shorter than size, so no suffix of the text
// is lost. Empty input produces an empty sequence.
//
// The parameters are validated upstream at configuration time, but an
// overlap >= size would loop forever, so it is rejected here as well.
func Split(documentID, text string, size, overlap int) ([]models.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be greater than 0, got %d",
			models.ErrInvalidConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must be non-negative, got %d",
			models.ErrInvalidConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be less than chunk size (%d)",
			models.ErrInvalidConfiguration, overlap, size)
	}
	if len(text) == 0 {
		return nil, nil
	}

	step := size - overlap
	chunks := make([]models.Chunk, 0, len(text)/step+1)

	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, models.Chunk{
			DocumentID: documentID,
			Index:      len(chunks),
			Text:       text[start:end],
			Start:      start,
			End:        end,
		})
		// The remainder past this point is already covered.
		if end == len(text) {
			break
		}
	}

	return chunks, nil
}
