package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lecture-rag/internal/helper"
	"lecture-rag/internal/models"
	"lecture-rag/internal/parser"
)

const processedBy = "lecture-rag"

// DocumentEmbedder embeds batches of text at a fixed width.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string, targetDim int) ([][]float32, error)
}

type TextWriter interface {
	Name() string
	AddText(ctx context.Context, records []models.TextRecord) error
}

// TextMetadata describes the lecture a document belongs to.
type TextMetadata struct {
	ModuleCode    string
	ModuleName    string
	LectureNumber string
	LectureTitle  string
	// SourceType defaults to the file extension.
	SourceType string
}

type TextResult struct {
	Success    bool   `json:"success"`
	ChunkCount int    `json:"chunk_count"`
	Message    string `json:"message"`
}

// TextIndexer parses, chunks, embeds and writes lecture documents.
type TextIndexer struct {
	embedder     DocumentEmbedder
	writer       TextWriter
	dim          int
	chunkSize    int
	chunkOverlap int
	batchSize    int
	now          func() time.Time
}

func NewTextIndexer(embedder DocumentEmbedder, writer TextWriter, dim, chunkSize, chunkOverlap int) *TextIndexer {
	return &TextIndexer{
		embedder:     embedder,
		writer:       writer,
		dim:          dim,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		batchSize:    32,
		now:          time.Now,
	}
}

// IndexText never returns an error; failures are reported in the result.
// Chunk ids are derived from content, so re-ingesting a document rewrites
// the same records.
func (ix *TextIndexer) IndexText(ctx context.Context, path string, meta TextMetadata) TextResult {
	chunks, err := parser.ParseDocument(path, ix.chunkSize, ix.chunkOverlap)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to parse document")
		return TextResult{Message: fmt.Sprintf("Error: %v", err)}
	}
	if len(chunks) == 0 {
		return TextResult{Success: true, Message: "No text found in document"}
	}

	source := filepath.Base(path)
	processedAt := ix.now().Format(time.RFC3339)
	sourceType := meta.SourceType
	if sourceType == "" {
		sourceType = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	written := 0
	for start := 0; start < len(chunks); start += ix.batchSize {
		batch := chunks[start:min(start+ix.batchSize, len(chunks))]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vecs, err := ix.embedder.EmbedDocuments(ctx, texts, ix.dim)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Failed to embed chunks")
			return TextResult{ChunkCount: written, Message: fmt.Sprintf("Error: %v", err)}
		}

		records := make([]models.TextRecord, len(batch))
		for i, c := range batch {
			page := strconv.Itoa(c.PageNumber)
			records[i] = models.TextRecord{
				ID:        helper.DeterministicID(source, page, strconv.Itoa(c.ChunkID), c.Content),
				Content:   c.Content,
				Embedding: vecs[i],
				Metadata: map[string]string{
					models.MetaSource:        source,
					models.MetaPage:          page,
					models.MetaModuleCode:    meta.ModuleCode,
					models.MetaModuleName:    meta.ModuleName,
					models.MetaLectureNumber: meta.LectureNumber,
					models.MetaLectureTitle:  meta.LectureTitle,
					models.MetaSourceType:    sourceType,
					models.MetaProcessedAt:   processedAt,
				},
			}
		}
		if err := ix.writer.AddText(ctx, records); err != nil {
			log.Error().Err(err).Str("file", path).Str("collection", ix.writer.Name()).Msg("Failed to write chunks")
			return TextResult{ChunkCount: written, Message: fmt.Sprintf("Error: %v", err)}
		}
		written += len(records)
	}

	log.Info().Str("file", path).Int("chunks", written).Str("collection", ix.writer.Name()).Msg("Indexed document text")
	return TextResult{
		Success:    true,
		ChunkCount: written,
		Message:    fmt.Sprintf("Successfully processed %d text chunks", written),
	}
}
