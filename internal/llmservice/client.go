package llmservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"lecture-rag/internal/config"
	"lecture-rag/internal/models"
)

// NewModel creates the chat model for the configured provider
func NewModel(ctx context.Context, llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Interface("config", map[string]string{
		"provider": llmConfig.Provider,
		"base_url": llmConfig.BaseURL,
		"model":    llmConfig.Model,
	}).Msg("Loaded llm config")

	switch llmConfig.Provider {
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		return openai.New(opts...)
	case config.ProviderOllama:
		return ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	case config.ProviderGoogleAI:
		return googleai.New(ctx,
			googleai.WithAPIKey(llmConfig.Key),
			googleai.WithDefaultModel(llmConfig.Model),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", llmConfig.Provider)
	}
}

// Client wraps a model with a per-call timeout, the configured temperature
// and an optional request rate limit.
type Client struct {
	model       llms.Model
	limiter     *rate.Limiter
	timeout     time.Duration
	temperature float64
}

func NewClient(model llms.Model, llmConfig *config.LLMConfig) *Client {
	c := &Client{
		model:       model,
		timeout:     llmConfig.Timeout(),
		temperature: llmConfig.Temperature,
	}
	if llmConfig.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(llmConfig.RequestsPerMinute)), 1)
	}
	return c
}

func (c *Client) prepare(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("%w: rate limiter: %v", models.ErrGenerationFailure, err)
		}
	}
	if c.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	return ctx, cancel, nil
}

// Invoke sends a single prompt and returns the completion text.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	ctx, cancel, err := c.prepare(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGenerationFailure, err)
	}
	return out, nil
}

// call llm
func (c *Client) GenerateContent(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool) (*llms.ContentResponse, error) {
	ctx, cancel, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}
	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationFailure, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", models.ErrGenerationFailure)
	}
	return resp, nil
}
