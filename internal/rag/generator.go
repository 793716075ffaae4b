package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

// Generator turns a query and its retrieved contexts into an answer.
type Generator interface {
	Generate(ctx context.Context, query string, contexts []string) (string, error)
}

// NewGenerator selects the generator at construction time: a configured
// model name means model-backed, an empty one means the deterministic
// composer. A client that cannot be built degrades to the composer
// instead of failing startup.
func NewGenerator(cfg *config.LLMConfig) Generator {
	if cfg.Model == "" {
		log.Info().Msg("no generation model configured, using fallback composer")
		return FallbackGenerator{}
	}

	model, err := newModel(cfg)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.Provider).Str("model", cfg.Model).
			Msg("generation model unavailable, using fallback composer")
		return FallbackGenerator{}
	}
	log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).
		Msg("generation model ready")
	return &ModelBackedGenerator{model: model}
}

func newModel(cfg *config.LLMConfig) (llms.Model, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	case "openai":
		return openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("%w: unknown generation provider %q",
			models.ErrInvalidConfiguration, cfg.Provider)
	}
}

// ModelBackedGenerator prompts a generative model with the retrieved
// contexts embedded before the question.
type ModelBackedGenerator struct {
	model llms.Model
}

func (g *ModelBackedGenerator) Generate(ctx context.Context, query string, contexts []string) (string, error) {
	prompt := models.BuildQueryPrompt(query, contexts)
	answer, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt,
		llms.WithTemperature(0.1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: %v", models.ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
	}
	return strings.TrimSpace(answer), nil
}

// FallbackGenerator composes an answer from the contexts alone. It
// never fails, which makes it the safety net for model errors.
type FallbackGenerator struct{}

func (FallbackGenerator) Generate(_ context.Context, query string, contexts []string) (string, error) {
	return models.BuildFallbackAnswer(query, contexts), nil
}
