package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"lecture-rag/internal/chromemdb"
	"lecture-rag/internal/config"
	"lecture-rag/internal/db"
	"lecture-rag/internal/embedding"
	"lecture-rag/internal/helper"
	"lecture-rag/internal/ingest"
	"lecture-rag/internal/llmservice"
	"lecture-rag/internal/models"
	"lecture-rag/internal/mongostore"
	"lecture-rag/internal/rag"
	"lecture-rag/internal/retrieval"
)

// textIndex is a text index that can be both searched and written to.
type textIndex interface {
	retrieval.TextIndex
	ingest.TextWriter
	Drop(ctx context.Context) error
}

// imageStore is the metadata store holding image payloads.
type imageStore interface {
	retrieval.ImageMetadataStore
	ingest.ImageRecordWriter
	DropImages(ctx context.Context) error
	io.Closer
}

// components are the long-lived backends shared by every command.
type components struct {
	cfg      *config.Config
	provider *embedding.Provider
	vectors  *chromemdb.VectorDBManager
	text     textIndex
	images   *chromemdb.ImageCollection
	store    imageStore
	closers  []io.Closer
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing backend")
		}
	}
}

// embeddingConfig builds the ingestion config from the file defaults.
func embeddingConfig(cfg *config.Config) (models.EmbeddingConfig, error) {
	return models.NewEmbeddingConfig(models.EmbeddingParams{
		ImageWeight:           cfg.Ingest.ImageWeight,
		TextWeight:            1 - cfg.Ingest.ImageWeight,
		SimilarityThreshold:   cfg.Ingest.SimilarityThreshold,
		BatchSize:             cfg.Ingest.BatchSize,
		UseDimReduction:       cfg.Ingest.UseDimReduction,
		OutputDim:             cfg.Ingest.OutputDim,
		UseEmbeddingAlignment: cfg.Ingest.UseEmbeddingAlignment,
		ImageCollection:       cfg.VectorStore.ImageCollection,
		MetadataCollection:    cfg.MetadataStore.Collection,
	})
}

// newComponents connects the embedder, the vector indexes and the image
// metadata store.
func newComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	c := &components{cfg: cfg}

	embedder, err := embedding.NewFromConfig(&cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}
	c.provider = embedding.NewProvider(embedder, cfg.EmbedLLM.Dimension)

	if !cfg.VectorStore.InMemory {
		if err := helper.CreateFolder(cfg.VectorStore.Path); err != nil {
			return nil, err
		}
	}
	c.vectors, err = chromemdb.NewVectorDBManager(cfg.VectorStore.Path, cfg.VectorStore.InMemory, cfg.VectorStore.Compress, cfg.RAG.EncryptionKey)
	if err != nil {
		return nil, err
	}
	c.images = c.vectors.ImageCollection(cfg.VectorStore.ImageCollection)

	if err := c.openTextIndex(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.openImageStore(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *components) openTextIndex(ctx context.Context) error {
	if c.cfg.VectorStore.Backend != config.BackendPgvector {
		c.text = c.vectors.TextCollection(c.cfg.VectorStore.TextCollection)
		return nil
	}
	sqldb, err := db.ConnectDB(&config.MetadataStoreConfig{
		Backend:  config.BackendPostgres,
		DSN:      c.cfg.VectorStore.DSN,
		Driver:   c.cfg.MetadataStore.Driver,
		Password: c.cfg.MetadataStore.Password,
	})
	if err != nil {
		return fmt.Errorf("connecting to pgvector: %w", err)
	}
	bunDB := db.NewDB(sqldb, config.BackendPostgres, c.cfg.MetadataStore.Debug)
	c.closers = append(c.closers, bunDB)
	index := db.NewTextIndex(bunDB, c.cfg.VectorStore.TextCollection)
	if err := index.InitText(ctx); err != nil {
		return err
	}
	c.text = index
	return nil
}

func (c *components) openImageStore(ctx context.Context) error {
	ms := c.cfg.MetadataStore
	var (
		store imageStore
		err   error
	)
	if ms.Backend == config.BackendMongo {
		store, err = mongostore.Connect(ctx, ms.DSN, ms.Database, ms.Collection)
	} else {
		store, err = db.Open(ctx, &ms)
	}
	if err != nil {
		return fmt.Errorf("opening image store: %w", err)
	}
	c.store = store
	c.closers = append(c.closers, store)
	return nil
}

// imageDim is the width the image collection was written at.
func (c *components) imageDim() int {
	return imageIndexDim(c.cfg, c.provider.Dimension())
}

// imageIndexDim is the image vector width implied by the config file.
func imageIndexDim(cfg *config.Config, nativeDim int) int {
	ec, err := embeddingConfig(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid ingest config, assuming native image dimension")
		return nativeDim
	}
	return ingest.IndexDim(ec, nativeDim)
}

// newPipeline assembles the retrievers and the tiered generator.
func (c *components) newPipeline(ctx context.Context) (*rag.RAG, error) {
	textRetriever := retrieval.NewTextRetriever(c.provider, c.text, c.provider.Dimension())
	imageRetriever := retrieval.NewImageRetriever(c.provider, c.images, c.store, c.imageDim(), c.cfg.RAG.LookupConcurrency)

	model, err := llmservice.NewModel(ctx, &c.cfg.LLM)
	if err != nil {
		return nil, err
	}
	client := llmservice.NewClient(model, &c.cfg.LLM)

	generator := rag.NewGenerator(
		rag.NewDirectStrategy(client),
		rag.NewAgentStrategy(client, c.cfg.RAG.MaxAgentIterations, c.cfg.RAG.AgentTimeout(),
			rag.TextSearchTool(textRetriever, c.cfg.RAG.TextTopK),
			rag.ImageSearchTool(imageRetriever, c.cfg.RAG.ImageTopK, c.cfg.RAG.CaptionMaxChars),
		),
	)
	return rag.NewRAG(textRetriever, imageRetriever, generator, rag.Options{
		TextTopK:     c.cfg.RAG.TextTopK,
		ImageTopK:    c.cfg.RAG.ImageTopK,
		CaptionChars: c.cfg.RAG.CaptionMaxChars,
	}), nil
}

// reset empties both vector collections and the stored images.
func (c *components) reset(ctx context.Context) error {
	if err := c.text.Drop(ctx); err != nil {
		return err
	}
	if err := c.images.Drop(ctx); err != nil {
		return err
	}
	return c.store.DropImages(ctx)
}
