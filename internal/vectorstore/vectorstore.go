// Package vectorstore defines the contract for persisting chunk
// vectors and running similarity search over them.
package vectorstore

import (
	"context"

	"document-qa/internal/models"
)

// Store persists chunk vectors with their metadata and supports
// similarity search and deletion by document id.
//
// Ordering contract: Search returns results by descending similarity
// score; ties are broken by insertion order (first written wins), so
// results are deterministic for a fixed index state.
//
// Failure contract: connectivity or storage failures are surfaced as
// models.ErrStorageUnavailable; the store never retries silently.
type Store interface {
	// Upsert writes one record per chunk, all-or-nothing for the
	// document: a partial failure removes any records already written
	// under the same document id. Writing an id that already exists
	// replaces its previous records.
	Upsert(ctx context.Context, doc models.Document, chunks []models.Chunk, vectors [][]float32) error

	// Search returns up to topK results for the query embedding.
	// topK <= 0 is an input error; asking for more results than exist
	// returns all of them.
	Search(ctx context.Context, queryVector []float32, topK int) ([]models.SearchResult, error)

	// DeleteDocument removes all chunk records for the document.
	// Deleting an unknown id is a no-op.
	DeleteDocument(ctx context.Context, documentID string) error

	// ListDocuments returns the distinct document ids with filename,
	// file type and chunk count aggregated from stored chunk metadata.
	ListDocuments(ctx context.Context) ([]models.Document, error)

	// Count reports the number of stored chunk records.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying handle. Safe to call once all
	// outstanding operations have drained.
	Close() error
}
