// Package hashing implements a corpus-free term-frequency embedder. Terms are
// mapped to a fixed number of buckets by hashing, so a text's vector depends
// on nothing but the text.
package hashing

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"

	"docintel/internal/embedding"
)

// DefaultDimension is the number of hash buckets when none is configured.
const DefaultDimension = 4096

// Embedder is stateless and safe for concurrent use.
type Embedder struct {
	dimension int
}

// New creates an embedder producing vectors of the given dimension.
func New(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Prepare is a no-op: vectors never depend on the corpus.
func (e *Embedder) Prepare(corpus []string) error { return nil }

// Embed returns the L2-normalised sublinear term-frequency vector of text.
// Text without terms yields the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	counts := make(map[int]int)
	for _, term := range embedding.Terms(text) {
		counts[e.bucket(term)]++
	}
	vec := make([]float64, e.dimension)
	for idx, n := range counts {
		vec[idx] = 1 + math.Log(float64(n))
	}
	return embedding.Normalize(vec), nil
}

func (e *Embedder) bucket(term string) int {
	return int(xxhash.Sum64String(term) % uint64(e.dimension))
}
