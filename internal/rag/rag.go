package rag

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"lecture-rag/internal/models"
)

type Options struct {
	TextTopK     int
	ImageTopK    int
	CaptionChars int
}

// RAG runs one turn: concurrent retrieval, fusion, then tiered generation.
type RAG struct {
	text      TextSearcher
	images    ImageSearcher
	generator *Generator
	opts      Options
}

func NewRAG(text TextSearcher, images ImageSearcher, generator *Generator, opts Options) *RAG {
	if opts.CaptionChars <= 0 {
		opts.CaptionChars = DefaultCaptionChars
	}
	return &RAG{text: text, images: images, generator: generator, opts: opts}
}

// Retrieve runs both retrievers concurrently and waits for both.
func (r *RAG) Retrieve(ctx context.Context, query string) models.Evidence {
	var ev models.Evidence
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ev.Text = r.text.SearchText(gctx, query, r.opts.TextTopK)
		return nil
	})
	g.Go(func() error {
		ev.Images = r.images.SearchImages(gctx, query, r.opts.ImageTopK)
		return nil
	})
	_ = g.Wait()
	log.Debug().Str("query", query).Int("text", len(ev.Text)).Int("images", len(ev.Images)).Msg("Retrieval done")
	return ev
}

// Generate fuses the evidence and runs the generation tiers.
func (r *RAG) Generate(ctx context.Context, query string, ev models.Evidence, history []models.ConversationTurn) *models.AnswerResult {
	req := BuildPrompt(query, ev.Text, ev.Images, r.opts.CaptionChars)
	req.History = history
	return r.generator.Generate(ctx, req)
}

// Query is Retrieve followed by Generate.
func (r *RAG) Query(ctx context.Context, query string, history []models.ConversationTurn) *models.AnswerResult {
	return r.Generate(ctx, query, r.Retrieve(ctx, query), history)
}
