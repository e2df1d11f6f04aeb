// Package embedding holds helpers shared by the embedder implementations in
// its subpackages.
package embedding

import (
	"fmt"
	"math"

	"docintel/internal/domain"
)

// Cosine returns the cosine similarity of two vectors of equal length.
// A zero vector has similarity 0 with everything.
func Cosine(a, b []float64) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("cosine over dimensions %d and %d: %w", len(a), len(b), domain.ErrEmbeddingFailed)
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Normalize scales vec to unit L2 length in place and returns it.
// The zero vector is returned unchanged.
func Normalize(vec []float64) []float64 {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
