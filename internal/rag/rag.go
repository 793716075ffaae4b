// Package rag wires retrieval and answer generation into the query
// path: embed the question, search the vector store, then let the
// configured generator compose the answer.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/models"
	"document-qa/internal/vectorstore"
)

// Service answers questions over the ingested corpus.
type Service struct {
	store     vectorstore.Store
	embedder  embedding.Embedder
	generator Generator

	topK     int
	maxTopK  int
	minScore float32
}

func NewService(cfg *config.RAGConfig, store vectorstore.Store, embedder embedding.Embedder, generator Generator) *Service {
	return &Service{
		store:     store,
		embedder:  embedder,
		generator: generator,
		topK:      cfg.TopK,
		maxTopK:   cfg.MaxTopK,
		minScore:  cfg.MinScore,
	}
}

// Retrieve embeds the query and returns the most similar chunks,
// highest score first. topK <= 0 selects the configured default;
// anything above the configured maximum is clamped down to it.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", models.ErrInvalidConfiguration)
	}
	if topK <= 0 {
		topK = s.topK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.store.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("searching vector store: %w", err)
	}

	if s.minScore > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Score >= s.minScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	return results, nil
}

// Query runs retrieval and composes an answer. An empty retrieval
// produces the no-documents answer; a model failure falls back to the
// deterministic composer so the query still succeeds with sources.
func (s *Service) Query(ctx context.Context, query string, topK int) (*models.QueryResult, error) {
	results, err := s.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.topK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}

	if len(results) == 0 {
		return &models.QueryResult{
			Query:  query,
			Answer: models.NoRelevantDocuments,
			TopK:   topK,
		}, nil
	}

	contexts := make([]string, 0, len(results))
	for _, r := range results {
		contexts = append(contexts, r.Text)
	}

	answer, err := s.generator.Generate(ctx, query, contexts)
	if err != nil {
		log.Warn().Err(err).Msg("generation failed, composing fallback answer")
		answer, _ = FallbackGenerator{}.Generate(ctx, query, contexts)
	}

	return &models.QueryResult{
		Query:    query,
		Answer:   answer,
		Contexts: contexts,
		Sources:  results,
		TopK:     topK,
	}, nil
}
