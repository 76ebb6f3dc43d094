package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"lecture-rag/internal/config"
	"lecture-rag/internal/models"
)

// NewEmbedder creates an OpenAI-compatible embedder
func NewEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Loaded embedder config")

	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithEmbeddingModel(llmConfig.Model),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding llm: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

// new ollama embedder
func NewOllamaEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Loaded embedder config")

	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding llm: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

// NewFromConfig picks the embedder for the configured provider.
func NewFromConfig(llmConfig *config.LLMConfig) (embeddings.Embedder, error) {
	switch llmConfig.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(llmConfig)
	case config.ProviderOpenAI:
		return NewEmbedder(llmConfig)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", llmConfig.Provider)
	}
}

// Provider maps text to fixed-width vectors using an injected embedding model.
type Provider struct {
	embedder embeddings.Embedder
	dim      int
}

func NewProvider(embedder embeddings.Embedder, dim int) *Provider {
	return &Provider{embedder: embedder, dim: dim}
}

// Dimension is the native width of the model, used for the text index.
func (p *Provider) Dimension() int { return p.dim }

// Embed encodes text and pads or truncates the result to targetDim.
// Model errors surface as ErrEmbeddingFailure; a zero vector is never substituted.
func (p *Provider) Embed(ctx context.Context, text string, targetDim int) ([]float32, error) {
	if targetDim <= 0 {
		return nil, fmt.Errorf("%w: invalid target dimension %d", models.ErrEmbeddingFailure, targetDim)
	}
	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingFailure, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: model returned an empty vector", models.ErrEmbeddingFailure)
	}
	return PadOrTruncate(vec, targetDim), nil
}

// EmbedDocuments embeds a batch of texts at targetDim.
func (p *Provider) EmbedDocuments(ctx context.Context, texts []string, targetDim int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingFailure, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", models.ErrEmbeddingFailure, len(texts), len(vecs))
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector for document %d", models.ErrEmbeddingFailure, i)
		}
		out[i] = PadOrTruncate(v, targetDim)
	}
	return out, nil
}

// PadOrTruncate returns a new vector of exactly targetDim values: longer
// input is cut, shorter input is zero-padded on the right.
func PadOrTruncate(vec []float32, targetDim int) []float32 {
	if targetDim < 0 {
		targetDim = 0
	}
	out := make([]float32, targetDim)
	copy(out, vec)
	return out
}
