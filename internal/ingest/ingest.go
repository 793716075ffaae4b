// Package ingest orchestrates the write path: chunk the document,
// embed the chunks, and commit them to the vector store as one unit.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"document-qa/internal/chunker"
	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/models"
	"document-qa/internal/vectorstore"
)

// Catalog records document rows in a relational store. It is optional:
// a nil catalog skips the bookkeeping without affecting ingestion.
type Catalog interface {
	Save(ctx context.Context, doc models.Document) error
	Delete(ctx context.Context, documentID string) error
}

// Ingestor runs the chunk-embed-store pipeline for one document at a
// time. A document either lands completely or not at all.
type Ingestor struct {
	store    vectorstore.Store
	embedder embedding.Embedder
	catalog  Catalog

	chunkSize    int
	chunkOverlap int
}

func NewIngestor(cfg *config.RAGConfig, store vectorstore.Store, embedder embedding.Embedder, catalog Catalog) *Ingestor {
	return &Ingestor{
		store:        store,
		embedder:     embedder,
		catalog:      catalog,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
	}
}

// Ingest chunks, embeds and stores doc.Text under doc.ID. The returned
// document carries the chunk count and creation time. A document whose
// text is empty after trimming is rejected with ErrEmptyDocument.
func (ing *Ingestor) Ingest(ctx context.Context, doc models.Document) (models.Document, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return doc, fmt.Errorf("%w: %s", models.ErrEmptyDocument, doc.Filename)
	}

	chunks, err := chunker.Split(doc.ID, doc.Text, ing.chunkSize, ing.chunkOverlap)
	if err != nil {
		return doc, fmt.Errorf("chunking %s: %w", doc.Filename, err)
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	vectors, err := ing.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return doc, fmt.Errorf("embedding %s: %w", doc.Filename, err)
	}

	doc.CreatedAt = time.Now().UTC()
	doc.ChunkCount = len(chunks)

	if err := ing.store.Upsert(ctx, doc, chunks, vectors); err != nil {
		return doc, fmt.Errorf("storing %s: %w", doc.Filename, err)
	}

	if ing.catalog != nil {
		if err := ing.catalog.Save(ctx, doc); err != nil {
			// Keep store and catalog consistent: undo the vector write.
			if derr := ing.store.DeleteDocument(ctx, doc.ID); derr != nil {
				log.Error().Err(derr).Str("document_id", doc.ID).
					Msg("rollback after catalog failure left orphaned vectors")
			}
			return doc, fmt.Errorf("cataloging %s: %w", doc.Filename, err)
		}
	}

	log.Info().Str("document_id", doc.ID).Str("filename", doc.Filename).
		Int("chunks", doc.ChunkCount).Msg("document ingested")
	return doc, nil
}

// Delete removes the document from the vector store and, when a
// catalog is configured, its row as well. Unknown ids are a no-op.
func (ing *Ingestor) Delete(ctx context.Context, documentID string) error {
	if err := ing.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	if ing.catalog != nil {
		if err := ing.catalog.Delete(ctx, documentID); err != nil {
			return fmt.Errorf("deleting catalog row %s: %w", documentID, err)
		}
	}
	return nil
}
