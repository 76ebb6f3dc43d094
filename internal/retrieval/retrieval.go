package retrieval

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"lecture-rag/internal/models"
	"lecture-rag/internal/query"
)

// QueryEmbedder turns a query into a vector of the index's width.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string, targetDim int) ([]float32, error)
}

type TextIndex interface {
	Name() string
	SearchText(ctx context.Context, vec []float32, topK int) ([]models.TextHit, error)
}

type ImageIndex interface {
	Name() string
	SearchImages(ctx context.Context, vec []float32, topK int) ([]models.ImageCandidate, error)
}

// ImageMetadataStore materializes image payloads by id.
type ImageMetadataStore interface {
	GetImage(ctx context.Context, id string) (*models.ImageRecord, error)
}

// TextRetriever searches lecture text. Failures are logged and yield no matches.
type TextRetriever struct {
	embedder QueryEmbedder
	index    TextIndex
	dim      int
}

func NewTextRetriever(embedder QueryEmbedder, index TextIndex, dim int) *TextRetriever {
	return &TextRetriever{embedder: embedder, index: index, dim: dim}
}

// SearchText returns up to topK matches in index order.
func (r *TextRetriever) SearchText(ctx context.Context, rawQuery string, topK int) []models.TextMatch {
	if topK <= 0 {
		return nil
	}
	normalized := query.Normalize(rawQuery)
	vec, err := r.embedder.Embed(ctx, normalized, r.dim)
	if err != nil {
		log.Error().Err(err).Str("query", rawQuery).Str("collection", r.index.Name()).Msg("Text search embedding failed")
		return nil
	}
	hits, err := r.index.SearchText(ctx, vec, topK)
	if err != nil {
		log.Error().Err(err).Str("query", rawQuery).Str("collection", r.index.Name()).Msg("Text search failed")
		return nil
	}
	matches := make([]models.TextMatch, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, models.NewTextMatch(h))
	}
	log.Debug().Str("query", normalized).Int("matches", len(matches)).Msg("Text search done")
	return matches
}

// ImageRetriever searches the image index and then loads each candidate's
// payload from the metadata store.
type ImageRetriever struct {
	embedder    QueryEmbedder
	index       ImageIndex
	store       ImageMetadataStore
	dim         int
	concurrency int
}

func NewImageRetriever(embedder QueryEmbedder, index ImageIndex, store ImageMetadataStore, dim, concurrency int) *ImageRetriever {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ImageRetriever{embedder: embedder, index: index, store: store, dim: dim, concurrency: concurrency}
}

// SearchImages returns up to topK matches ordered by descending score.
// Candidates whose record is missing or incomplete are dropped.
func (r *ImageRetriever) SearchImages(ctx context.Context, rawQuery string, topK int) []models.ImageMatch {
	if topK <= 0 {
		return nil
	}
	normalized := query.Normalize(rawQuery)
	vec, err := r.embedder.Embed(ctx, normalized, r.dim)
	if err != nil {
		log.Error().Err(err).Str("query", rawQuery).Str("collection", r.index.Name()).Msg("Image search embedding failed")
		return nil
	}
	candidates, err := r.index.SearchImages(ctx, vec, topK)
	if err != nil {
		log.Error().Err(err).Str("query", rawQuery).Str("collection", r.index.Name()).Msg("Image search failed")
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}

	// slots keep candidate order so equal scores sort deterministically
	slots := make([]*models.ImageMatch, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			rec, err := r.store.GetImage(gctx, c.ID)
			if err != nil {
				if errors.Is(err, models.ErrPartialRecord) {
					log.Warn().Err(err).Str("id", c.ID).Msg("Dropping image candidate")
				} else {
					log.Error().Err(err).Str("id", c.ID).Msg("Image lookup failed")
				}
				return nil
			}
			if len(rec.Image) == 0 {
				log.Warn().Str("id", c.ID).Msg("Dropping image candidate without payload")
				return nil
			}
			m := models.NewImageMatch(*rec, c.Score)
			slots[i] = &m
			return nil
		})
	}
	_ = g.Wait()

	matches := make([]models.ImageMatch, 0, len(candidates))
	for _, m := range slots {
		if m != nil {
			matches = append(matches, *m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})
	log.Debug().Str("query", normalized).Int("candidates", len(candidates)).Int("matches", len(matches)).Msg("Image search done")
	return matches
}
