package scorer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"docintel/internal/config"
	"docintel/internal/domain"
	"docintel/internal/embedding"
	"docintel/internal/metrics"
)

// Scorer blends embedding similarity with exact-term overlap between a
// section and the persona+job query. It owns its embedder.
type Scorer struct {
	embedder       domain.Embedder
	semanticWeight float64
	keywordWeight  float64
	logger         *zap.Logger
	metrics        *metrics.Run
}

// New creates a scorer over the given embedder. logger and m may be nil.
func New(emb domain.Embedder, cfg config.ScorerConfig, logger *zap.Logger, m *metrics.Run) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		embedder:       emb,
		semanticWeight: cfg.SemanticWeight,
		keywordWeight:  cfg.KeywordWeight,
		logger:         logger,
		metrics:        m,
	}
}

// Prepare hands the run's corpus to the embedder.
func (s *Scorer) Prepare(corpus []string) error {
	return s.embedder.Prepare(corpus)
}

// Score returns semanticWeight*cosine + keywordWeight*overlap. When the
// embedding fails the semantic part counts as zero.
func (s *Scorer) Score(ctx context.Context, content, persona, job string) float64 {
	query := domain.BuildQuery(persona, job)
	lexical := s.keywordWeight * KeywordScore(query, content)
	s.metrics.SectionScored()

	semantic, err := s.Semantic(ctx, query, content)
	if err != nil {
		s.metrics.ScoringFallback()
		s.logger.Warn("semantic scoring failed, using keyword score", zap.Error(err))
		return lexical
	}
	return s.semanticWeight*semantic + lexical
}

// Semantic returns the cosine similarity of the query and content embeddings.
func (s *Scorer) Semantic(ctx context.Context, query, content string) (float64, error) {
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("embed query: %w", err)
	}
	cv, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return 0, fmt.Errorf("embed content: %w", err)
	}
	return embedding.Cosine(qv, cv)
}

// Close releases the embedder if it holds resources.
func (s *Scorer) Close() error {
	if c, ok := s.embedder.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// KeywordScore is the fraction of distinct query words that occur in content.
// Words are lowercased and split on whitespace; an empty query scores 0.
func KeywordScore(query, content string) float64 {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return 0
	}
	contentWords := wordSet(content)
	shared := 0
	for w := range queryWords {
		if _, ok := contentWords[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(queryWords))
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	m := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		m[f] = struct{}{}
	}
	return m
}
