// Package memory provides a brute-force cosine similarity vector
// store. It backs tests and small non-persistent deployments.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"document-qa/internal/models"
)

type record struct {
	seq      int64
	vector   []float32
	text     string
	metadata models.ChunkMetadata
}

// Store keeps all vectors in memory. The insertion sequence number is
// the tie-break for equal similarity scores.
type Store struct {
	mu        sync.RWMutex
	dimension int
	records   []record
	nextSeq   int64
}

func NewStore() *Store { return &Store{} }

func (s *Store) Upsert(ctx context.Context, doc models.Document, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors",
			models.ErrStorageUnavailable, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		s.dimension = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != s.dimension {
			// Nothing has been touched yet, so this is all-or-nothing.
			return fmt.Errorf("%w: vector %d has dimension %d, collection expects %d",
				models.ErrStorageUnavailable, i, len(v), s.dimension)
		}
	}

	// Re-upserting an id replaces its previous records.
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.metadata.DocumentID != doc.ID {
			kept = append(kept, rec)
		}
	}
	s.records = kept

	for i, chunk := range chunks {
		s.records = append(s.records, record{
			seq:    s.nextSeq,
			vector: vectors[i],
			text:   chunk.Text,
			metadata: models.ChunkMetadata{
				DocumentID: doc.ID,
				ChunkIndex: chunk.Index,
				Filename:   doc.Filename,
				FileType:   doc.FileType,
			},
		})
		s.nextSeq++
	}
	return nil
}

func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be greater than 0, got %d",
			models.ErrInvalidConfiguration, topK)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		rec   record
		score float32
	}
	candidates := make([]scored, 0, len(s.records))
	for _, rec := range s.records {
		candidates = append(candidates, scored{rec: rec, score: cosine(queryVector, rec.vector)})
	}

	// Score descending, then insertion order ascending.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].rec.seq < candidates[j].rec.seq
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}
	results := make([]models.SearchResult, 0, topK)
	for _, c := range candidates[:topK] {
		results = append(results, models.SearchResult{
			Text:     c.rec.text,
			Score:    c.score,
			Metadata: c.rec.metadata,
		})
	}
	return results, nil
}

func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.metadata.DocumentID != documentID {
			kept = append(kept, rec)
		}
	}
	s.records = kept
	return nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := make(map[string]*models.Document)
	var order []string
	for _, rec := range s.records {
		doc, ok := byID[rec.metadata.DocumentID]
		if !ok {
			doc = &models.Document{
				ID:       rec.metadata.DocumentID,
				Filename: rec.metadata.Filename,
				FileType: rec.metadata.FileType,
			}
			byID[rec.metadata.DocumentID] = doc
			order = append(order, rec.metadata.DocumentID)
		}
		doc.ChunkCount++
	}

	docs := make([]models.Document, 0, len(order))
	for _, id := range order {
		docs = append(docs, *byID[id])
	}
	return docs, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *Store) Close() error { return nil }

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
