// Package chromemdb adapts a chromem-go collection to the vectorstore
// contract. The database is a single long-lived handle: open it once
// at startup, share it, and close it after outstanding work drains.
package chromemdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

const compress = false

// manifest mirrors the chunk metadata that chromem holds, so document
// listing and the insertion-sequence tie-break survive restarts
// without scanning the collection.
type manifest struct {
	NextSeq   int64                    `json:"next_seq"`
	Dimension int                      `json:"dimension"`
	Documents map[string]documentEntry `json:"documents"`
}

type documentEntry struct {
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
	ChunkCount int    `json:"chunk_count"`
	FirstSeq   int64  `json:"first_seq"`
}

// Store is a vectorstore.Store backed by one chromem-go collection.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection

	mu           sync.Mutex
	man          manifest
	manifestPath string // empty for in-memory stores
}

// NewStore opens (or creates) the collection described by cfg.
func NewStore(cfg *config.VectorDBConfig) (*Store, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, compress)
		if err != nil {
			return nil, fmt.Errorf("%w: opening vector database: %v", models.ErrStorageUnavailable, err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating collection %q: %v",
			models.ErrStorageUnavailable, cfg.Collection, err)
	}

	s := &Store{
		db:         db,
		collection: collection,
		man:        manifest{Documents: map[string]documentEntry{}},
	}
	if !cfg.InMemory {
		s.manifestPath = filepath.Join(cfg.Path, cfg.Collection+".manifest.json")
		if err := s.loadManifest(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

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

	if s.man.Dimension == 0 {
		s.man.Dimension = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != s.man.Dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, collection expects %d",
				models.ErrStorageUnavailable, i, len(v), s.man.Dimension)
		}
	}

	// Re-upserting an id replaces its previous records; otherwise a
	// shrinking chunk count would leave stale tail chunks behind.
	if _, ok := s.man.Documents[doc.ID]; ok {
		if err := s.collection.Delete(ctx, map[string]string{"document_id": doc.ID}, nil); err != nil {
			return fmt.Errorf("%w: replacing document %s: %v",
				models.ErrStorageUnavailable, doc.ID, err)
		}
		delete(s.man.Documents, doc.ID)
	}

	firstSeq := s.man.NextSeq
	docs := make([]chromem.Document, 0, len(chunks))
	for i, chunk := range chunks {
		seq := firstSeq + int64(i)
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("%s-%d", doc.ID, chunk.Index),
			Content: chunk.Text,
			Metadata: map[string]string{
				"document_id": doc.ID,
				"chunk_index": strconv.Itoa(chunk.Index),
				"filename":    doc.Filename,
				"file_type":   doc.FileType,
				"seq":         strconv.FormatInt(seq, 10),
			},
			Embedding: vectors[i],
		})
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		// All-or-nothing per document: sweep out anything that made it in.
		_ = s.collection.Delete(ctx, map[string]string{"document_id": doc.ID}, nil)
		_ = s.saveManifest()
		return fmt.Errorf("%w: adding documents: %v", models.ErrStorageUnavailable, err)
	}

	s.man.NextSeq = firstSeq + int64(len(chunks))
	s.man.Documents[doc.ID] = documentEntry{
		Filename:   doc.Filename,
		FileType:   doc.FileType,
		ChunkCount: len(chunks),
		FirstSeq:   firstSeq,
	}
	return s.saveManifest()
}

func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be greater than 0, got %d",
			models.ErrInvalidConfiguration, topK)
	}

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	// chromem ranks with an unstable concurrent sort, so asking for
	// exactly topK hits can cut a run of tied scores differently on
	// every call. Fetch everything, order deterministically, truncate.
	hits, err := s.collection.QueryEmbedding(ctx, queryVector, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity query: %v", models.ErrStorageUnavailable, err)
	}

	type scored struct {
		result models.SearchResult
		seq    int64
	}
	candidates := make([]scored, 0, len(hits))
	for _, hit := range hits {
		chunkIndex, _ := strconv.Atoi(hit.Metadata["chunk_index"])
		seq, _ := strconv.ParseInt(hit.Metadata["seq"], 10, 64)
		candidates = append(candidates, scored{
			result: models.SearchResult{
				Text:  hit.Content,
				Score: hit.Similarity,
				Metadata: models.ChunkMetadata{
					DocumentID: hit.Metadata["document_id"],
					ChunkIndex: chunkIndex,
					Filename:   hit.Metadata["filename"],
					FileType:   hit.Metadata["file_type"],
				},
			},
			seq: seq,
		})
	}

	// Score descending, then insertion order ascending.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].result.Score != candidates[j].result.Score {
			return candidates[i].result.Score > candidates[j].result.Score
		}
		return candidates[i].seq < candidates[j].seq
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}
	results := make([]models.SearchResult, 0, topK)
	for _, c := range candidates[:topK] {
		results = append(results, c.result)
	}
	return results, nil
}

func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.man.Documents[documentID]; !ok {
		// Unknown id: idempotent no-op.
		return nil
	}
	if err := s.collection.Delete(ctx, map[string]string{"document_id": documentID}, nil); err != nil {
		return fmt.Errorf("%w: deleting document %s: %v",
			models.ErrStorageUnavailable, documentID, err)
	}
	delete(s.man.Documents, documentID)
	return s.saveManifest()
}

func (s *Store) ListDocuments(ctx context.Context) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]models.Document, 0, len(s.man.Documents))
	for id, entry := range s.man.Documents {
		docs = append(docs, models.Document{
			ID:         id,
			Filename:   entry.Filename,
			FileType:   entry.FileType,
			ChunkCount: entry.ChunkCount,
		})
	}
	entries := s.man.Documents
	sort.Slice(docs, func(i, j int) bool {
		return entries[docs[i].ID].FirstSeq < entries[docs[j].ID].FirstSeq
	})
	return docs, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Close flushes the manifest. chromem persists write-through, so there
// is no database handle to release.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveManifest()
}

func (s *Store) loadManifest() error {
	data, err := os.ReadFile(s.manifestPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: reading manifest: %v", models.ErrStorageUnavailable, err)
	}
	var man manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return fmt.Errorf("%w: corrupt manifest %s: %v",
			models.ErrStorageUnavailable, s.manifestPath, err)
	}
	if man.Documents == nil {
		man.Documents = map[string]documentEntry{}
	}
	s.man = man
	return nil
}

func (s *Store) saveManifest() error {
	if s.manifestPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.man, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding manifest: %v", models.ErrStorageUnavailable, err)
	}
	tmp := s.manifestPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing manifest: %v", models.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmp, s.manifestPath); err != nil {
		return fmt.Errorf("%w: writing manifest: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}
