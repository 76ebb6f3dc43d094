package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"lecture-rag/internal/models"
)

// VisionModel is a chat model that accepts image parts.
type VisionModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool) (*llms.ContentResponse, error)
}

type TextEmbedder interface {
	Embed(ctx context.Context, text string, targetDim int) ([]float32, error)
}

// CaptionEncoder describes an image with a vision model and embeds the
// description, giving images a vector in the text embedding space.
type CaptionEncoder struct {
	vision   VisionModel
	embedder TextEmbedder
}

func NewCaptionEncoder(vision VisionModel, embedder TextEmbedder) *CaptionEncoder {
	return &CaptionEncoder{vision: vision, embedder: embedder}
}

func (c *CaptionEncoder) Describe(ctx context.Context, data []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}
	resp, err := c.vision.GenerateContent(ctx, []llms.MessageContent{{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.BinaryPart(mimeType, data),
			llms.TextPart(models.CaptionPrompt),
		},
	}}, nil)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", models.ErrGenerationFailure)
	}
	caption := strings.TrimSpace(resp.Choices[0].Content)
	if caption == "" {
		return "", fmt.Errorf("%w: empty image description", models.ErrGenerationFailure)
	}
	return caption, nil
}

func (c *CaptionEncoder) EncodeImage(ctx context.Context, data []byte, mimeType string, targetDim int) ([]float32, string, error) {
	caption, err := c.Describe(ctx, data, mimeType)
	if err != nil {
		return nil, "", err
	}
	vec, err := c.embedder.Embed(ctx, caption, targetDim)
	if err != nil {
		return nil, "", err
	}
	return vec, caption, nil
}
