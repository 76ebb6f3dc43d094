package embedding

import (
	"context"
	"errors"
	"testing"

	"lecture-rag/internal/models"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func TestPadOrTruncate(t *testing.T) {
	tests := []struct {
		name   string
		vector []float32
		dim    int
		want   []float32
	}{
		{name: "pads on the right", vector: []float32{1, 2}, dim: 4, want: []float32{1, 2, 0, 0}},
		{name: "truncates", vector: []float32{1, 2, 3, 4}, dim: 2, want: []float32{1, 2}},
		{name: "exact", vector: []float32{1, 2, 3}, dim: 3, want: []float32{1, 2, 3}},
		{name: "empty input", vector: nil, dim: 2, want: []float32{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PadOrTruncate(tt.vector, tt.dim)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPadOrTruncateDoesNotAlias(t *testing.T) {
	in := []float32{1, 2, 3}
	out := PadOrTruncate(in, 3)
	out[0] = 9
	if in[0] != 1 {
		t.Fatalf("input was modified through the result")
	}
}

func TestEmbedLengthMatchesTarget(t *testing.T) {
	p := NewProvider(&fakeEmbedder{vec: make384()}, 384)
	for _, dim := range models.OutputDims {
		vec, err := p.Embed(context.Background(), "gradient descent", dim)
		if err != nil {
			t.Fatalf("Embed(%d) error: %v", dim, err)
		}
		if len(vec) != dim {
			t.Errorf("len(Embed(_, %d)) = %d", dim, len(vec))
		}
	}
}

func TestEmbedDeterministic(t *testing.T) {
	p := NewProvider(&fakeEmbedder{vec: make384()}, 384)
	a, _ := p.Embed(context.Background(), "same text", 384)
	b, _ := p.Embed(context.Background(), "same text", 384)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at %d", i)
		}
	}
}

func TestEmbedFailure(t *testing.T) {
	p := NewProvider(&fakeEmbedder{err: errors.New("model offline")}, 384)
	vec, err := p.Embed(context.Background(), "anything", 384)
	if !errors.Is(err, models.ErrEmbeddingFailure) {
		t.Fatalf("expected ErrEmbeddingFailure, got %v", err)
	}
	if vec != nil {
		t.Fatalf("expected nil vector on failure, got %d values", len(vec))
	}

	empty := NewProvider(&fakeEmbedder{vec: []float32{}}, 384)
	if _, err := empty.Embed(context.Background(), "anything", 384); !errors.Is(err, models.ErrEmbeddingFailure) {
		t.Fatalf("expected ErrEmbeddingFailure for empty vector, got %v", err)
	}
}

func make384() []float32 {
	v := make([]float32, 384)
	for i := range v {
		v[i] = float32(i%7) + 0.5
	}
	return v
}
