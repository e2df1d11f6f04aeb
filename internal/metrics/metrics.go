package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Run holds the Prometheus collectors of a single digest run.
// A nil *Run is valid and records nothing.
type Run struct {
	registry *prometheus.Registry

	DocumentsTotal          *prometheus.CounterVec
	SectionsScoredTotal     prometheus.Counter
	EmbeddingRequestsTotal  *prometheus.CounterVec
	EmbeddingRequestSeconds *prometheus.HistogramVec
	ScoringFallbacksTotal   prometheus.Counter
	EmbeddingCacheTotal     *prometheus.CounterVec
}

// NewRun creates and registers the collectors on a private registry.
func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		DocumentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docintel",
				Name:      "documents_total",
				Help:      "Input documents by outcome",
			},
			[]string{"status"}, // processed, skipped or failed
		),
		SectionsScoredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docintel",
			Name:      "sections_scored_total",
			Help:      "Total number of sections scored",
		}),
		EmbeddingRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docintel",
				Name:      "embedding_requests_total",
				Help:      "Total number of embedding requests",
			},
			[]string{"embedder", "status"},
		),
		EmbeddingRequestSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "docintel",
				Name:      "embedding_request_duration_seconds",
				Help:      "Embedding request duration in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"embedder"},
		),
		ScoringFallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docintel",
			Name:      "scoring_fallbacks_total",
			Help:      "Sections scored lexically because embedding failed",
		}),
		EmbeddingCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docintel",
				Name:      "embedding_cache_lookups_total",
				Help:      "Embedding cache lookups by result",
			},
			[]string{"result"}, // hit or miss
		),
	}
	r.registry.MustRegister(
		r.DocumentsTotal,
		r.SectionsScoredTotal,
		r.EmbeddingRequestsTotal,
		r.EmbeddingRequestSeconds,
		r.ScoringFallbacksTotal,
		r.EmbeddingCacheTotal,
	)
	return r
}

// Registry exposes the gatherer for tests and exporters.
func (r *Run) Registry() *prometheus.Registry { return r.registry }

// Document counts an input document by outcome.
func (r *Run) Document(status string) {
	if r != nil {
		r.DocumentsTotal.WithLabelValues(status).Inc()
	}
}

// SectionScored counts one scored section.
func (r *Run) SectionScored() {
	if r != nil {
		r.SectionsScoredTotal.Inc()
	}
}

// ScoringFallback counts one section scored without its semantic part.
func (r *Run) ScoringFallback() {
	if r != nil {
		r.ScoringFallbacksTotal.Inc()
	}
}

// CacheLookup counts one embedding cache lookup.
func (r *Run) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.EmbeddingCacheTotal.WithLabelValues(result).Inc()
}

// Embedding records one embedding call.
func (r *Run) Embedding(embedder string, seconds float64, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.EmbeddingRequestsTotal.WithLabelValues(embedder, status).Inc()
	r.EmbeddingRequestSeconds.WithLabelValues(embedder).Observe(seconds)
}

// WriteTextfile writes the collected metrics in the node exporter textfile format.
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
