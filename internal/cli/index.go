package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lecture-rag/internal/config"
	"lecture-rag/internal/helper"
	"lecture-rag/internal/ingest"
	"lecture-rag/internal/llmservice"
	"lecture-rag/internal/models"
	"lecture-rag/internal/parser"
)

var textMeta ingest.TextMetadata

var (
	imageMeta      ingest.ImageMetadata
	imageWeight    float64
	simThreshold   float64
	imageBatchSize int
	outputDim      int
	noDimReduction bool
	noAlignment    bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Add lecture text or images to the indexes",
}

var indexTextCmd = &cobra.Command{
	Use:   "text <file>...",
	Short: "Parse, chunk and embed lecture documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		comps, err := newComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer comps.Close()

		indexer := ingest.NewTextIndexer(comps.provider, comps.text, comps.provider.Dimension(), cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
		failed := 0
		for _, path := range args {
			if !parser.Supported(path) {
				log.Warn().Str("file", path).Msg("Skipping unsupported file type")
				continue
			}
			res := indexer.IndexText(ctx, path, textMeta)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ", path)
			_ = helper.PrettyPrintTo(cmd.OutOrStdout(), res)
			if !res.Success {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed to index", failed, len(args))
		}
		return nil
	},
}

var indexImagesCmd = &cobra.Command{
	Use:   "images <dir>",
	Short: "Caption, embed and store images extracted from a lecture",
	Long: `Loads every image in <dir>. The page number is read from names like
page12.png and nearby slide text from a sibling page12.txt, when present.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ec, err := imageEmbeddingConfig(cmd, cfg)
		if err != nil {
			return err
		}

		images, err := ingest.LoadImagesFromDir(args[0])
		if err != nil {
			return err
		}

		comps, err := newComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer comps.Close()

		visionCfg := cfg.LLM
		visionCfg.Model = cfg.Ingest.VisionModel
		model, err := llmservice.NewModel(ctx, &visionCfg)
		if err != nil {
			return err
		}
		encoder := ingest.NewCaptionEncoder(llmservice.NewClient(model, &visionCfg), comps.provider)
		indexer := ingest.NewImageIndexer(encoder, comps.provider, comps.store, comps.images, comps.provider.Dimension())

		res := indexer.IndexImages(ctx, images, imageMeta, ec)
		_ = helper.PrettyPrintTo(cmd.OutOrStdout(), res)
		if !res.Success {
			return fmt.Errorf("image indexing failed: %s", res.Message)
		}
		return nil
	},
}

var indexResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete everything indexed so far",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		comps, err := newComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer comps.Close()
		if err := comps.reset(ctx); err != nil {
			return err
		}
		log.Info().Str("text", cfg.VectorStore.TextCollection).Str("images", cfg.VectorStore.ImageCollection).Msg("Indexes cleared")
		return nil
	},
}

func init() {
	f := indexTextCmd.Flags()
	f.StringVar(&textMeta.ModuleCode, "module-code", "", "module code, e.g. CS229")
	f.StringVar(&textMeta.ModuleName, "module-name", "", "module name")
	f.StringVar(&textMeta.LectureNumber, "lecture-number", "", "lecture number")
	f.StringVar(&textMeta.LectureTitle, "lecture-title", "", "lecture title")
	f.StringVar(&textMeta.SourceType, "source-type", "", "source type; defaults to the file extension")

	f = indexImagesCmd.Flags()
	f.StringVar(&imageMeta.LectureCode, "lecture-code", "", "lecture code, e.g. CS229")
	f.StringVar(&imageMeta.ModuleID, "module-id", "", "module id")
	f.StringVar(&imageMeta.LectureNumber, "lecture-number", "", "lecture number")
	f.StringVar(&imageMeta.LectureTitle, "lecture-title", "", "lecture title")
	f.Float64Var(&imageWeight, "image-weight", 0, "weight of the image embedding; the caption gets the rest")
	f.Float64Var(&simThreshold, "threshold", 0, "cosine similarity above which images count as duplicates")
	f.IntVar(&imageBatchSize, "batch", 0, "images embedded and written per batch")
	f.IntVar(&outputDim, "output-dim", 0, "reduced embedding width; must give the width the config file gives")
	f.BoolVar(&noDimReduction, "no-dim-reduction", false, "keep the native embedding width; must give the width the config file gives")
	f.BoolVar(&noAlignment, "no-alignment", false, "fuse without normalizing each modality first")
	_ = indexImagesCmd.MarkFlagRequired("lecture-code")

	indexCmd.AddCommand(indexTextCmd, indexImagesCmd, indexResetCmd)
	rootCmd.AddCommand(indexCmd)
}

// imageEmbeddingConfig applies the flags the user set over the file defaults.
func imageEmbeddingConfig(cmd *cobra.Command, base *config.Config) (models.EmbeddingConfig, error) {
	c := *base
	f := cmd.Flags()
	if f.Changed("image-weight") {
		c.Ingest.ImageWeight = imageWeight
	}
	if f.Changed("threshold") {
		c.Ingest.SimilarityThreshold = simThreshold
	}
	if f.Changed("batch") {
		c.Ingest.BatchSize = imageBatchSize
	}
	if f.Changed("output-dim") {
		c.Ingest.OutputDim = outputDim
	}
	if noDimReduction {
		c.Ingest.UseDimReduction = false
	}
	if noAlignment {
		c.Ingest.UseEmbeddingAlignment = false
	}
	ec, err := embeddingConfig(&c)
	if err != nil {
		return ec, err
	}
	// queries size image vectors from the config file alone
	native := base.EmbedLLM.Dimension
	if got, want := ingest.IndexDim(ec, native), imageIndexDim(base, native); got != want {
		return models.EmbeddingConfig{}, fmt.Errorf("image vectors would be %d wide but queries use %d; set ingest.output_dim and ingest.use_dim_reduction in the config file instead", got, want)
	}
	return ec, nil
}
