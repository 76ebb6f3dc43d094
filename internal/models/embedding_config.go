package models

import (
	"fmt"
	"math"
	"slices"
)

// OutputDims lists the supported reduced embedding widths.
var OutputDims = []int{128, 256, 384, 512, 768}

// EmbeddingParams are the raw inputs to NewEmbeddingConfig.
type EmbeddingParams struct {
	ImageWeight           float64
	TextWeight            float64
	SimilarityThreshold   float64
	BatchSize             int
	UseDimReduction       bool
	OutputDim             int
	UseEmbeddingAlignment bool
	ImageCollection       string
	MetadataCollection    string
}

// EmbeddingConfig governs one image ingestion request. It is validated on
// construction and exposes its values through accessors only.
type EmbeddingConfig struct {
	p EmbeddingParams
}

func NewEmbeddingConfig(p EmbeddingParams) (EmbeddingConfig, error) {
	if p.ImageWeight < 0 || p.TextWeight < 0 {
		return EmbeddingConfig{}, fmt.Errorf("%w: weights must not be negative", ErrInvalidEmbeddingConfig)
	}
	if math.Abs(p.ImageWeight+p.TextWeight-1.0) > 1e-6 {
		return EmbeddingConfig{}, fmt.Errorf("%w: image_weight + text_weight must equal 1.0, got %.4f", ErrInvalidEmbeddingConfig, p.ImageWeight+p.TextWeight)
	}
	if p.SimilarityThreshold <= 0 || p.SimilarityThreshold >= 1 {
		return EmbeddingConfig{}, fmt.Errorf("%w: similarity_threshold must be in (0,1), got %v", ErrInvalidEmbeddingConfig, p.SimilarityThreshold)
	}
	if p.BatchSize <= 0 {
		return EmbeddingConfig{}, fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidEmbeddingConfig, p.BatchSize)
	}
	if !slices.Contains(OutputDims, p.OutputDim) {
		return EmbeddingConfig{}, fmt.Errorf("%w: output_dim must be one of %v, got %d", ErrInvalidEmbeddingConfig, OutputDims, p.OutputDim)
	}
	if p.ImageCollection == "" || p.MetadataCollection == "" {
		return EmbeddingConfig{}, fmt.Errorf("%w: collection names are required", ErrInvalidEmbeddingConfig)
	}
	return EmbeddingConfig{p: p}, nil
}

func (c EmbeddingConfig) ImageWeight() float64         { return c.p.ImageWeight }
func (c EmbeddingConfig) TextWeight() float64          { return c.p.TextWeight }
func (c EmbeddingConfig) SimilarityThreshold() float64 { return c.p.SimilarityThreshold }
func (c EmbeddingConfig) BatchSize() int               { return c.p.BatchSize }
func (c EmbeddingConfig) UseDimReduction() bool        { return c.p.UseDimReduction }
func (c EmbeddingConfig) OutputDim() int               { return c.p.OutputDim }
func (c EmbeddingConfig) UseEmbeddingAlignment() bool  { return c.p.UseEmbeddingAlignment }
func (c EmbeddingConfig) ImageCollection() string      { return c.p.ImageCollection }
func (c EmbeddingConfig) MetadataCollection() string   { return c.p.MetadataCollection }

// Params returns a copy of the values the config was built from.
func (c EmbeddingConfig) Params() EmbeddingParams { return c.p }
