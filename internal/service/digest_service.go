package service

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docintel/internal/domain"
	"docintel/internal/metrics"
)

// DefaultTopK is the number of sections kept in a digest.
const DefaultTopK = 10

// TimestampLayout is the ISO-8601 form of processing_timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

// RelevanceScorer is the scorer as seen by the pipeline: it is prepared with
// the run's corpus before any section is scored.
type RelevanceScorer interface {
	domain.Scorer
	Prepare(corpus []string) error
}

// Options tunes a DigestService. Zero values select defaults.
type Options struct {
	TopK    int
	Workers int
	Logger  *zap.Logger
	Metrics *metrics.Run
	Clock   func() time.Time
}

// DigestServiceImpl runs documents through extraction, segmentation,
// scoring, ranking and refinement.
type DigestServiceImpl struct {
	extractor domain.Extractor
	segmenter domain.Segmenter
	scorer    RelevanceScorer
	refiner   domain.Refiner
	topK      int
	workers   int
	logger    *zap.Logger
	metrics   *metrics.Run
	now       func() time.Time
}

// NewDigestService wires the pipeline stages; zero Options fields take defaults.
func NewDigestService(extractor domain.Extractor, segmenter domain.Segmenter, scorer RelevanceScorer, refiner domain.Refiner, opts Options) *DigestServiceImpl {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &DigestServiceImpl{
		extractor: extractor,
		segmenter: segmenter,
		scorer:    scorer,
		refiner:   refiner,
		topK:      opts.TopK,
		workers:   opts.Workers,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Clock,
	}
}

// Process builds the digest for a request. Unreadable documents and failed
// embeddings are logged and skipped; only cancellation fails the run.
func (s *DigestServiceImpl) Process(ctx context.Context, req domain.Request) (*domain.Digest, error) {
	start := s.now()

	sections := s.collectSections(ctx, req.Documents)
	scored, err := s.score(ctx, sections, req.Persona, req.JobToBeDone)
	if err != nil {
		return nil, err
	}
	ranked := Rank(scored, s.topK)

	digest := &domain.Digest{
		Metadata: domain.Metadata{
			InputDocuments:      req.Basenames(),
			Persona:             req.Persona,
			JobToBeDone:         req.JobToBeDone,
			ProcessingTimestamp: start.Format(TimestampLayout),
		},
		ExtractedSections:  make([]domain.ExtractedSection, 0, len(ranked)),
		SubsectionAnalysis: make([]domain.SubsectionAnalysis, 0, len(ranked)),
	}
	for i, sec := range ranked {
		rank := i + 1
		digest.ExtractedSections = append(digest.ExtractedSections, domain.ExtractedSection{
			Document:       sec.Document,
			PageNumber:     sec.Page,
			SectionTitle:   sec.Title,
			ImportanceRank: rank,
		})
		digest.SubsectionAnalysis = append(digest.SubsectionAnalysis, domain.SubsectionAnalysis{
			Document:     sec.Document,
			SectionTitle: sec.Title,
			RefinedText:  s.refiner.Refine(sec.Content),
			PageNumber:   sec.Page,
		})
	}

	s.logger.Info("digest assembled",
		zap.Int("documents", len(req.Documents)),
		zap.Int("sections", len(sections)),
		zap.Int("ranked", len(ranked)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return digest, nil
}

// collectSections walks documents in input order and pages in ascending order.
func (s *DigestServiceImpl) collectSections(ctx context.Context, paths []string) []domain.Section {
	var sections []domain.Section
	for _, path := range paths {
		log := s.logger.With(zap.String("document", path))
		pages, err := s.extractor.Extract(ctx, path)
		if err != nil {
			if errors.Is(err, domain.ErrDocumentNotFound) {
				s.metrics.Document("skipped")
				log.Warn("document not found, skipping")
			} else {
				s.metrics.Document("failed")
				log.Warn("extraction failed, skipping", zap.Error(err))
			}
			continue
		}
		s.metrics.Document("processed")
		if len(pages) == 0 {
			log.Warn("no extractable text")
			continue
		}

		pages = slices.Clone(pages)
		sort.SliceStable(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
		name := filepath.Base(path)
		before := len(sections)
		for _, page := range pages {
			for _, sec := range s.segmenter.Segment(page.Text, page.Number) {
				sec.Document = name
				sections = append(sections, sec)
			}
		}
		log.Debug("document segmented", zap.Int("pages", len(pages)), zap.Int("sections", len(sections)-before))
	}
	return sections
}

// score fills one pre-allocated slot per section, so parallel workers never
// share an append target.
func (s *DigestServiceImpl) score(ctx context.Context, sections []domain.Section, persona, job string) ([]domain.ScoredSection, error) {
	if len(sections) == 0 {
		return nil, nil
	}
	corpus := make([]string, 0, len(sections)+1)
	for _, sec := range sections {
		corpus = append(corpus, sec.Content)
	}
	corpus = append(corpus, domain.BuildQuery(persona, job))
	if err := s.scorer.Prepare(corpus); err != nil {
		s.logger.Warn("embedder preparation failed, scores fall back to keywords", zap.Error(err))
	}

	scored := make([]domain.ScoredSection, len(sections))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range sections {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scored[i] = domain.ScoredSection{
				Section: sections[i],
				Score:   s.scorer.Score(gctx, sections[i].Content, persona, job),
				Order:   i,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

// Rank orders sections by descending score, keeping discovery order among
// equal scores, and keeps at most topK.
func Rank(scored []domain.ScoredSection, topK int) []domain.ScoredSection {
	ranked := slices.Clone(scored)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if topK >= 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}
