package embedding

import (
	"context"
	"io"
	"time"

	"docintel/internal/domain"
	"docintel/internal/metrics"
)

// InstrumentedEmbedder records request counts and latency of the inner embedder.
type InstrumentedEmbedder struct {
	domain.Embedder
	metrics *metrics.Run
}

// NewInstrumentedEmbedder wraps an embedder with run metrics.
func NewInstrumentedEmbedder(inner domain.Embedder, m *metrics.Run) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{Embedder: inner, metrics: m}
}

// Embed delegates to the inner embedder and records the outcome.
func (e *InstrumentedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	start := time.Now()
	vec, err := e.Embedder.Embed(ctx, text)
	e.metrics.Embedding(e.Embedder.Name(), time.Since(start).Seconds(), err)
	return vec, err
}

// Close releases the inner embedder if it holds resources.
func (e *InstrumentedEmbedder) Close() error {
	if c, ok := e.Embedder.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
