package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"sync"

	"docintel/internal/domain"
	"docintel/internal/metrics"
)

// Embedder memoises embeddings of the inner embedder for the lifetime of a run.
// The query embedding, shared by every section, is computed once.
// Failed embeddings are not cached.
type Embedder struct {
	domain.Embedder
	metrics *metrics.Run

	mu      sync.RWMutex
	vectors map[string][]float64
}

// New creates a caching decorator. Lookups are counted on m, which may be nil.
func New(inner domain.Embedder, m *metrics.Run) *Embedder {
	return &Embedder{Embedder: inner, metrics: m, vectors: make(map[string][]float64)}
}

// Prepare resets the cache and prepares the inner embedder, since a new
// corpus can change every vector.
func (c *Embedder) Prepare(corpus []string) error {
	c.mu.Lock()
	c.vectors = make(map[string][]float64)
	c.mu.Unlock()
	return c.Embedder.Prepare(corpus)
}

// Embed returns a cached embedding or calls the inner embedder.
func (c *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := hashString(text)

	c.mu.RLock()
	vec, ok := c.vectors[key]
	c.mu.RUnlock()
	c.metrics.CacheLookup(ok)
	if ok {
		return vec, nil
	}

	vec, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.vectors[key] = vec
	c.mu.Unlock()
	return vec, nil
}

// Close releases the inner embedder if it holds resources.
func (c *Embedder) Close() error {
	if closer, ok := c.Embedder.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}
