package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/config"
	"document-qa/internal/models"
	"document-qa/internal/vectorstore/memory"
)

// fakeEmbedder returns a fixed vector for any input.
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type failingGenerator struct{}

func (failingGenerator) Generate(_ context.Context, _ string, _ []string) (string, error) {
	return "", models.ErrModelUnavailable
}

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, query string, contexts []string) (string, error) {
	return "answer to " + query, nil
}

func ragConfig() *config.RAGConfig {
	return &config.RAGConfig{ChunkSize: 500, TopK: 3, MaxTopK: 5}
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	doc := models.Document{ID: "doc-1", Filename: "a.txt", FileType: models.FileTypeText}
	chunks := []models.Chunk{
		{DocumentID: "doc-1", Index: 0, Text: "alpha facts"},
		{DocumentID: "doc-1", Index: 1, Text: "beta facts"},
		{DocumentID: "doc-1", Index: 2, Text: "gamma facts"},
	}
	vectors := [][]float32{{1, 0}, {0.9, 0.1}, {0, 1}}
	require.NoError(t, store.Upsert(context.Background(), doc, chunks, vectors))
	return store
}

func TestService_QueryWithModel(t *testing.T) {
	s := NewService(ragConfig(), seedStore(t), &fakeEmbedder{vector: []float32{1, 0}}, echoGenerator{})

	result, err := s.Query(context.Background(), "what is alpha?", 2)
	require.NoError(t, err)
	assert.Equal(t, "answer to what is alpha?", result.Answer)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "alpha facts", result.Contexts[0])
	assert.Equal(t, "beta facts", result.Contexts[1])
	assert.Equal(t, 2, result.TopK)
}

func TestService_QueryEmptyQuery(t *testing.T) {
	s := NewService(ragConfig(), memory.NewStore(), &fakeEmbedder{vector: []float32{1, 0}}, echoGenerator{})

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := s.Query(context.Background(), q, 3)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrInvalidConfiguration))
	}
}

func TestService_QueryEmptyStore(t *testing.T) {
	s := NewService(ragConfig(), memory.NewStore(), &fakeEmbedder{vector: []float32{1, 0}}, echoGenerator{})

	result, err := s.Query(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Equal(t, models.NoRelevantDocuments, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Equal(t, 3, result.TopK) // configured default
}

func TestService_QueryModelFailureFallsBack(t *testing.T) {
	s := NewService(ragConfig(), seedStore(t), &fakeEmbedder{vector: []float32{1, 0}}, failingGenerator{})

	result, err := s.Query(context.Background(), "what is alpha?", 2)
	require.NoError(t, err)
	assert.Contains(t, result.Answer, "alpha facts")
	assert.Contains(t, result.Answer, "[Document 1]")
	// Sources survive the fallback.
	require.Len(t, result.Sources, 2)
}

func TestService_RetrieveClampsTopK(t *testing.T) {
	s := NewService(ragConfig(), seedStore(t), &fakeEmbedder{vector: []float32{1, 0}}, echoGenerator{})

	// Above the maximum: clamped to max_top_k (5), store has 3.
	results, err := s.Retrieve(context.Background(), "q", 100)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// Zero selects the configured default.
	results, err = s.Retrieve(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestService_RetrieveMinScoreFilter(t *testing.T) {
	cfg := ragConfig()
	cfg.MinScore = 0.5
	s := NewService(cfg, seedStore(t), &fakeEmbedder{vector: []float32{1, 0}}, echoGenerator{})

	results, err := s.Retrieve(context.Background(), "q", 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, float32(0.5))
	}
	// The orthogonal chunk is filtered out.
	assert.Len(t, results, 2)
}

func TestService_RetrieveEmbedderError(t *testing.T) {
	s := NewService(ragConfig(), seedStore(t),
		&fakeEmbedder{err: models.ErrModelUnavailable}, echoGenerator{})

	_, err := s.Retrieve(context.Background(), "q", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrModelUnavailable))
}

func TestFallbackGenerator_Compose(t *testing.T) {
	answer, err := FallbackGenerator{}.Generate(context.Background(), "what is alpha?",
		[]string{"alpha is first", "beta is second", "gamma is third", "delta is fourth"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(answer, "Question: what is alpha?"))
	assert.Contains(t, answer, "[Document 1]")
	assert.Contains(t, answer, "[Document 3]")
	// Only the top three contexts are used.
	assert.NotContains(t, answer, "delta is fourth")
}
