package chromemdb

import (
	"context"

	"github.com/philippgille/chromem-go"

	"lecture-rag/internal/models"
)

// TextCollection serves lecture text chunks from one chromem collection.
type TextCollection struct {
	m    *VectorDBManager
	name string
}

func (m *VectorDBManager) TextCollection(name string) *TextCollection {
	return &TextCollection{m: m, name: name}
}

func (t *TextCollection) Name() string { return t.name }

// SearchText returns hits ordered by descending similarity.
func (t *TextCollection) SearchText(ctx context.Context, vec []float32, topK int) ([]models.TextHit, error) {
	results, err := t.m.SearchWithQueryOptions(ctx, t.name, chromem.QueryOptions{
		QueryEmbedding: vec,
		NResults:       topK,
	})
	if err != nil {
		return nil, err
	}
	hits := make([]models.TextHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, models.TextHit{Content: r.Content, Metadata: r.Metadata, Score: r.Similarity})
	}
	return hits, nil
}

// AddText writes embedded chunks.
func (t *TextCollection) AddText(ctx context.Context, records []models.TextRecord) error {
	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{ID: r.ID, Content: r.Content, Metadata: r.Metadata, Embedding: r.Embedding}
	}
	return t.m.CreateDocs(ctx, t.name, docs)
}

// Drop deletes the collection and its documents.
func (t *TextCollection) Drop(ctx context.Context) error {
	return t.m.DeleteCollection(t.name)
}

// ImageCollection holds fused image vectors keyed by metadata-store id.
type ImageCollection struct {
	m    *VectorDBManager
	name string
}

func (m *VectorDBManager) ImageCollection(name string) *ImageCollection {
	return &ImageCollection{m: m, name: name}
}

func (c *ImageCollection) Name() string { return c.name }

// SearchImages returns candidate ids and cosine scores, best first.
func (c *ImageCollection) SearchImages(ctx context.Context, vec []float32, topK int) ([]models.ImageCandidate, error) {
	results, err := c.m.SearchWithQueryOptions(ctx, c.name, chromem.QueryOptions{
		QueryEmbedding: vec,
		NResults:       topK,
	})
	if err != nil {
		return nil, err
	}
	candidates := make([]models.ImageCandidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, models.ImageCandidate{ID: r.ID, Score: r.Similarity})
	}
	return candidates, nil
}

// AddImageVectors stores one vector per image id; the caption is kept as content.
func (c *ImageCollection) AddImageVectors(ctx context.Context, ids []string, captions []string, vectors [][]float32, metadata []map[string]string) error {
	docs := make([]chromem.Document, len(ids))
	for i := range ids {
		docs[i] = chromem.Document{ID: ids[i], Content: captions[i], Embedding: vectors[i], Metadata: metadata[i]}
	}
	return c.m.CreateDocs(ctx, c.name, docs)
}

func (c *ImageCollection) Drop(ctx context.Context) error {
	return c.m.DeleteCollection(c.name)
}
