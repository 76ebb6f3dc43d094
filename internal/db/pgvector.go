package db

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"lecture-rag/internal/models"
)

// TextChunkRow is a chunk stored in a pgvector column.
type TextChunkRow struct {
	bun.BaseModel `bun:"table:lecture_text_chunks,alias:tc"`
	ID            string            `bun:"id,pk"`
	Collection    string            `bun:"collection,notnull"`
	Content       string            `bun:"content"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	Embedding     pgvector.Vector   `bun:"embedding,type:vector"`
	Score         float32           `bun:"score,scanonly"`
}

// TextIndex is a pgvector-backed text index, an alternative to chromem.
type TextIndex struct {
	db   *bun.DB
	name string
}

func NewTextIndex(db *bun.DB, collection string) *TextIndex {
	return &TextIndex{db: db, name: collection}
}

func (t *TextIndex) Name() string { return t.name }

// InitText creates the vector extension and the chunk table
func (t *TextIndex) InitText(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("creating vector extension: %w", err)
	}
	if _, err := t.db.NewCreateTable().Model((*TextChunkRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("creating text chunk table: %w", err)
	}
	return nil
}

func (t *TextIndex) AddText(ctx context.Context, records []models.TextRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]TextChunkRow, len(records))
	for i, r := range records {
		rows[i] = TextChunkRow{
			ID:         r.ID,
			Collection: t.name,
			Content:    r.Content,
			Metadata:   r.Metadata,
			Embedding:  pgvector.NewVector(r.Embedding),
		}
	}
	if _, err := t.db.NewInsert().Model(&rows).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("inserting text chunks: %w", err)
	}
	return nil
}

// SearchText returns the topK chunks by cosine similarity, best first.
func (t *TextIndex) SearchText(ctx context.Context, vec []float32, topK int) ([]models.TextHit, error) {
	if topK <= 0 {
		return nil, nil
	}
	var rows []TextChunkRow
	err := t.db.NewSelect().
		Model(&rows).
		Column("id", "content", "metadata").
		ColumnExpr("1 - (embedding <=> ?) AS score", pgvector.NewVector(vec)).
		Where("collection = ?", t.name).
		OrderExpr("embedding <=> ?", pgvector.NewVector(vec)).
		Limit(topK).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexQueryFailure, err)
	}
	hits := make([]models.TextHit, len(rows))
	for i, r := range rows {
		hits[i] = models.TextHit{Content: r.Content, Metadata: r.Metadata, Score: r.Score}
	}
	return hits, nil
}

// Drop deletes the chunks of this collection.
func (t *TextIndex) Drop(ctx context.Context) error {
	_, err := t.db.NewDelete().Model((*TextChunkRow)(nil)).Where("collection = ?", t.name).Exec(ctx)
	if err != nil {
		return fmt.Errorf("deleting text chunks: %w", err)
	}
	return nil
}
