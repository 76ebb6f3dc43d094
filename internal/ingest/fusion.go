package ingest

import (
	"math"

	"lecture-rag/internal/embedding"
)

// Normalize returns v scaled to unit length; a zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	n := float32(math.Sqrt(sum))
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

// Fuse combines the two modality vectors as imageWeight*img + textWeight*txt.
// Both inputs are brought to the same width first; with align set each is
// unit-normalized before weighting.
func Fuse(img, txt []float32, imageWeight, textWeight float64, align bool) []float32 {
	dim := max(len(img), len(txt))
	img = embedding.PadOrTruncate(img, dim)
	txt = embedding.PadOrTruncate(txt, dim)
	if align {
		img = Normalize(img)
		txt = Normalize(txt)
	}
	out := make([]float32, dim)
	for i := range out {
		out[i] = float32(imageWeight)*img[i] + float32(textWeight)*txt[i]
	}
	return out
}

// Cosine is the cosine similarity of two equal-width vectors.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Dedup keeps the first of every group of vectors whose cosine similarity
// reaches threshold and returns the indexes kept.
func Dedup(vecs [][]float32, threshold float64) []int {
	var kept []int
	for i, v := range vecs {
		dup := false
		for _, k := range kept {
			if Cosine(v, vecs[k]) >= threshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, i)
		}
	}
	return kept
}
