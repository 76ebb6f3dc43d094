package ingest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"lecture-rag/internal/embedding"
	"lecture-rag/internal/helper"
	"lecture-rag/internal/models"
)

// ImageEncoder maps an image to a vector and a short description of it.
type ImageEncoder interface {
	EncodeImage(ctx context.Context, data []byte, mimeType string, targetDim int) ([]float32, string, error)
}

type ImageRecordWriter interface {
	StoreImages(ctx context.Context, records []models.ImageRecord, processedAt string) error
}

type ImageVectorWriter interface {
	Name() string
	AddImageVectors(ctx context.Context, ids []string, captions []string, vectors [][]float32, metadata []map[string]string) error
}

// ImageInput is one extracted image and the text found around it.
type ImageInput struct {
	Data       []byte
	MIMEType   string
	PageNumber int
	Text       string
}

type ImageMetadata struct {
	LectureCode   string
	ModuleID      string
	LectureNumber string
	LectureTitle  string
}

type ImageResult struct {
	Success           bool   `json:"success"`
	NumOriginalImages int    `json:"num_original_images"`
	NumFiltered       int    `json:"num_filtered"`
	NumUnique         int    `json:"num_unique"`
	NumInserted       int    `json:"num_inserted"`
	Message           string `json:"message"`
}

// ImageIndexer embeds images, drops near duplicates and writes payloads to the
// metadata store and vectors to the image index.
type ImageIndexer struct {
	encoder  ImageEncoder
	embedder DocumentEmbedder
	records  ImageRecordWriter
	vectors  ImageVectorWriter
	dim      int
	now      func() time.Time
}

// NewImageIndexer builds an indexer; dim is the native embedding width both
// modalities are brought to before fusion.
func NewImageIndexer(encoder ImageEncoder, embedder DocumentEmbedder, records ImageRecordWriter, vectors ImageVectorWriter, dim int) *ImageIndexer {
	return &ImageIndexer{encoder: encoder, embedder: embedder, records: records, vectors: vectors, dim: dim, now: time.Now}
}

type encodedImage struct {
	input   ImageInput
	caption string
	vector  []float32
}

// IndexDim is the width of the vectors written for cfg.
func IndexDim(cfg models.EmbeddingConfig, nativeDim int) int {
	if cfg.UseDimReduction() {
		return cfg.OutputDim()
	}
	return nativeDim
}

// IndexImages never returns an error; failures are reported in the result
// together with the counts reached so far.
func (ix *ImageIndexer) IndexImages(ctx context.Context, images []ImageInput, meta ImageMetadata, cfg models.EmbeddingConfig) ImageResult {
	res := ImageResult{NumOriginalImages: len(images)}
	if len(images) == 0 {
		res.Success = true
		res.Message = "No images to process"
		return res
	}

	var encoded []encodedImage
	for start := 0; start < len(images); start += cfg.BatchSize() {
		batch := images[start:min(start+cfg.BatchSize(), len(images))]
		out, err := ix.encodeBatch(ctx, batch, cfg)
		if err != nil {
			log.Error().Err(err).Int("batch_start", start).Msg("Failed to embed images")
			res.Message = fmt.Sprintf("Error: %v", err)
			return res
		}
		encoded = append(encoded, out...)
	}

	vecs := make([][]float32, len(encoded))
	for i, e := range encoded {
		vecs[i] = e.vector
	}
	kept := Dedup(vecs, cfg.SimilarityThreshold())
	res.NumUnique = len(kept)
	res.NumFiltered = len(images) - len(kept)
	log.Info().Int("original", len(images)).Int("unique", res.NumUnique).Float64("threshold", cfg.SimilarityThreshold()).Msg("Filtered similar images")

	processedAt := ix.now().Format(time.RFC3339)
	for start := 0; start < len(kept); start += cfg.BatchSize() {
		batch := kept[start:min(start+cfg.BatchSize(), len(kept))]
		if err := ix.writeBatch(ctx, encoded, batch, meta, processedAt); err != nil {
			log.Error().Err(err).Str("collection", ix.vectors.Name()).Msg("Failed to store images")
			res.Message = fmt.Sprintf("Error: %v", err)
			return res
		}
		res.NumInserted += len(batch)
	}

	res.Success = true
	res.Message = fmt.Sprintf("Successfully processed %d unique images", res.NumUnique)
	return res
}

func (ix *ImageIndexer) encodeBatch(ctx context.Context, batch []ImageInput, cfg models.EmbeddingConfig) ([]encodedImage, error) {
	imgVecs := make([][]float32, len(batch))
	captions := make([]string, len(batch))
	texts := make([]string, len(batch))
	for i, in := range batch {
		if len(in.Data) == 0 {
			return nil, fmt.Errorf("%w: image %d has no payload", models.ErrPartialRecord, i)
		}
		vec, caption, err := ix.encoder.EncodeImage(ctx, in.Data, in.MIMEType, ix.dim)
		if err != nil {
			return nil, err
		}
		imgVecs[i] = vec
		captions[i] = caption
		texts[i] = in.Text
		if texts[i] == "" {
			texts[i] = caption
		}
	}
	txtVecs, err := ix.embedder.EmbedDocuments(ctx, texts, ix.dim)
	if err != nil {
		return nil, err
	}

	out := make([]encodedImage, len(batch))
	for i, in := range batch {
		fused := Fuse(imgVecs[i], txtVecs[i], cfg.ImageWeight(), cfg.TextWeight(), cfg.UseEmbeddingAlignment())
		if cfg.UseDimReduction() {
			fused = embedding.PadOrTruncate(fused, cfg.OutputDim())
		}
		out[i] = encodedImage{input: in, caption: texts[i], vector: fused}
	}
	return out, nil
}

func (ix *ImageIndexer) writeBatch(ctx context.Context, encoded []encodedImage, batch []int, meta ImageMetadata, processedAt string) error {
	records := make([]models.ImageRecord, len(batch))
	ids := make([]string, len(batch))
	captions := make([]string, len(batch))
	vectors := make([][]float32, len(batch))
	metadata := make([]map[string]string, len(batch))
	for i, k := range batch {
		e := encoded[k]
		page := strconv.Itoa(e.input.PageNumber)
		id := helper.DeterministicID(meta.LectureCode, meta.LectureNumber, page, string(e.input.Data))
		records[i] = models.ImageRecord{
			ID:            id,
			Image:         e.input.Data,
			MIMEType:      e.input.MIMEType,
			LectureCode:   meta.LectureCode,
			ModuleID:      meta.ModuleID,
			LectureNumber: meta.LectureNumber,
			LectureTitle:  meta.LectureTitle,
			PageNumber:    page,
			Text:          e.caption,
		}
		ids[i] = id
		captions[i] = e.caption
		vectors[i] = e.vector
		metadata[i] = map[string]string{
			models.MetaLectureCode:   meta.LectureCode,
			models.MetaLectureNumber: meta.LectureNumber,
			models.MetaPageNumber:    page,
			models.MetaModuleID:      meta.ModuleID,
			models.MetaProcessedAt:   processedAt,
			models.MetaProcessedBy:   processedBy,
		}
	}
	// payloads first so an indexed vector always has a record behind it
	if err := ix.records.StoreImages(ctx, records, processedAt); err != nil {
		return err
	}
	return ix.vectors.AddImageVectors(ctx, ids, captions, vectors, metadata)
}
