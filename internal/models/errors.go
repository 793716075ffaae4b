package models

import "errors"

// Error kinds surfaced by the core. Wrap with fmt.Errorf("...: %w", ...)
// so callers can branch on kind with errors.Is while logs keep the
// offending parameter.
var (
	// ErrInvalidConfiguration indicates a bad chunk size, overlap or
	// topK. Fatal to the call, never retried.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmptyDocument indicates ingestion found no extractable content.
	ErrEmptyDocument = errors.New("document has no extractable content")

	// ErrModelUnavailable indicates the embedding or generation backend
	// is unreachable or misloaded. Surfaced, not retried: a missing
	// model asset does not heal on retry.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrStorageUnavailable indicates a vector store I/O failure.
	ErrStorageUnavailable = errors.New("vector storage unavailable")

	// ErrTimeout indicates a bounded operation exceeded its budget.
	// Distinct from ErrModelUnavailable so callers may choose to retry.
	ErrTimeout = errors.New("operation timed out")
)
