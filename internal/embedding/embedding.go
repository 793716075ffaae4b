package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

// batchSize bounds the number of texts sent to the backend per call.
const batchSize = 32

// Embedder maps text to fixed-dimension dense vectors. Implementations
// must be deterministic for a fixed model and input, and return
// vectors index-aligned with the input texts.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// LangchainEmbedder wraps a langchaingo embedder client. Batching is
// handled by the underlying EmbedderImpl.
type LangchainEmbedder struct {
	impl *embeddings.EmbedderImpl
}

// NewEmbedder builds the embedder for the configured provider.
func NewEmbedder(cfg *config.LLMConfig) (*LangchainEmbedder, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaEmbedder(cfg)
	case "openai":
		return NewOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q",
			models.ErrInvalidConfiguration, cfg.Provider)
	}
}

// NewOllamaEmbedder connects to a local ollama server.
func NewOllamaEmbedder(cfg *config.LLMConfig) (*LangchainEmbedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, wrapModelErr(err)
	}
	impl, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(batchSize))
	if err != nil {
		return nil, wrapModelErr(err)
	}
	return &LangchainEmbedder{impl: impl}, nil
}

// NewOpenAIEmbedder connects to an OpenAI-compatible endpoint.
func NewOpenAIEmbedder(cfg *config.LLMConfig) (*LangchainEmbedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, wrapModelErr(err)
	}
	impl, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(batchSize))
	if err != nil {
		return nil, wrapModelErr(err)
	}
	return &LangchainEmbedder{impl: impl}, nil
}

// EmbedTexts embeds all texts, index-aligned with the input.
func (e *LangchainEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, wrapModelErr(err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts",
			models.ErrModelUnavailable, len(vectors), len(texts))
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (e *LangchainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, wrapModelErr(err)
	}
	return vector, nil
}

// wrapModelErr classifies backend failures: a blown deadline is a
// Timeout, everything else means the model is unreachable or
// misloaded and is not worth retrying.
func wrapModelErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
}
