package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/config"
	"docintel/internal/domain"
	"docintel/internal/embedding/cache"
	"docintel/internal/embedding/hashing"
	"docintel/internal/extractor"
	"docintel/internal/metrics"
	"docintel/internal/refiner"
	"docintel/internal/scorer"
	"docintel/internal/segmenter"
)

var _ domain.DigestService = (*DigestServiceImpl)(nil)

var fixedTime = time.Date(2026, 10, 17, 9, 30, 0, 123456000, time.UTC)

type fakeExtractor struct {
	pages map[string][]domain.Page
	errs  map[string]error
}

func (f *fakeExtractor) Extract(_ context.Context, path string) ([]domain.Page, error) {
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	pages, ok := f.pages[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrDocumentNotFound)
	}
	return pages, nil
}

// tableScorer scores sections by a marker word in their content.
type tableScorer struct {
	mu       sync.Mutex
	scores   map[string]float64
	prepared []string
}

func (s *tableScorer) Prepare(corpus []string) error {
	s.prepared = corpus
	return nil
}

func (s *tableScorer) Score(_ context.Context, content, _, _ string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[strings.Fields(content)[0]]
}

// para builds a paragraph longer than the segmenter minimum, led by a marker word.
func para(marker string) string {
	return marker + " " + strings.Repeat("filler text ", 10)
}

func newService(ext domain.Extractor, sc RelevanceScorer, opts Options) *DigestServiceImpl {
	opts.Clock = func() time.Time { return fixedTime }
	return NewDigestService(ext, segmenter.NewParagraphSegmenter(100), sc, refiner.New(400, refiner.NewRegexSplitter()), opts)
}

func TestProcess_NoDocuments(t *testing.T) {
	svc := newService(&fakeExtractor{}, &tableScorer{}, Options{})
	req := domain.Request{Documents: []string{}, Persona: "analyst", JobToBeDone: "summarize"}

	d, err := svc.Process(context.Background(), req)
	require.NoError(t, err)

	assert.NotNil(t, d.ExtractedSections)
	assert.NotNil(t, d.SubsectionAnalysis)
	assert.Empty(t, d.ExtractedSections)
	assert.Empty(t, d.SubsectionAnalysis)
	assert.Equal(t, []string{}, d.Metadata.InputDocuments)
	assert.Equal(t, "analyst", d.Metadata.Persona)
	assert.Equal(t, "summarize", d.Metadata.JobToBeDone)
	assert.Equal(t, "2026-10-17T09:30:00.123456+00:00", d.Metadata.ProcessingTimestamp)
}

func TestProcess_MissingAndFailedDocumentsAreSkipped(t *testing.T) {
	m := metrics.NewRun()
	ext := &fakeExtractor{
		pages: map[string][]domain.Page{"/data/good.pdf": {{Number: 1, Text: para("good")}}},
		errs:  map[string]error{"/data/corrupt.pdf": errors.New("malformed pdf")},
	}
	sc := &tableScorer{scores: map[string]float64{"good": 0.5}}
	svc := newService(ext, sc, Options{Metrics: m})

	req := domain.Request{Documents: []string{"/data/missing.pdf", "/data/corrupt.pdf", "/data/good.pdf"}}
	d, err := svc.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"missing.pdf", "corrupt.pdf", "good.pdf"}, d.Metadata.InputDocuments)
	require.Len(t, d.ExtractedSections, 1)
	assert.Equal(t, "good.pdf", d.ExtractedSections[0].Document)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("processed")))
}

func TestProcess_ZeroPagesContributeNothing(t *testing.T) {
	ext := &fakeExtractor{pages: map[string][]domain.Page{"empty.pdf": nil}}
	sc := &tableScorer{}
	d, err := newService(ext, sc, Options{}).Process(context.Background(), domain.Request{Documents: []string{"empty.pdf"}})
	require.NoError(t, err)
	assert.Empty(t, d.ExtractedSections)
	assert.Nil(t, sc.prepared, "nothing to prepare without sections")
}

func TestProcess_RankingAndTieBreak(t *testing.T) {
	ext := &fakeExtractor{pages: map[string][]domain.Page{
		"a.pdf": {
			// Out-of-order pages are walked in ascending page order.
			{Number: 2, Text: para("a2")},
			{Number: 1, Text: para("a1a") + "\n\n" + para("a1b")},
		},
		"b.pdf": {{Number: 1, Text: para("b1")}},
	}}
	sc := &tableScorer{scores: map[string]float64{"a1a": 0.2, "a1b": 0.9, "a2": 0.5, "b1": 0.5}}

	d, err := newService(ext, sc, Options{}).Process(context.Background(),
		domain.Request{Documents: []string{"a.pdf", "b.pdf"}, Persona: "p", JobToBeDone: "j"})
	require.NoError(t, err)

	want := []domain.ExtractedSection{
		{Document: "a.pdf", PageNumber: 1, SectionTitle: "Section 2", ImportanceRank: 1},
		{Document: "a.pdf", PageNumber: 2, SectionTitle: "Section 1", ImportanceRank: 2},
		{Document: "b.pdf", PageNumber: 1, SectionTitle: "Section 1", ImportanceRank: 3},
		{Document: "a.pdf", PageNumber: 1, SectionTitle: "Section 1", ImportanceRank: 4},
	}
	assert.Equal(t, want, d.ExtractedSections)

	require.Len(t, d.SubsectionAnalysis, len(want))
	for i, sub := range d.SubsectionAnalysis {
		assert.Equal(t, want[i].Document, sub.Document)
		assert.Equal(t, want[i].SectionTitle, sub.SectionTitle)
		assert.Equal(t, want[i].PageNumber, sub.PageNumber)
	}

	// Corpus is every section in discovery order followed by the query.
	require.Len(t, sc.prepared, 5)
	assert.Equal(t, "p j", sc.prepared[4])
	assert.True(t, strings.HasPrefix(sc.prepared[0], "a1a"))
}

func TestProcess_KeepsTopTen(t *testing.T) {
	var pages []domain.Page
	scores := map[string]float64{}
	for i := 1; i <= 12; i++ {
		marker := fmt.Sprintf("s%02d", i)
		pages = append(pages, domain.Page{Number: i, Text: para(marker)})
		scores[marker] = float64(i)
	}
	ext := &fakeExtractor{pages: map[string][]domain.Page{"big.pdf": pages}}

	d, err := newService(ext, &tableScorer{scores: scores}, Options{}).Process(context.Background(),
		domain.Request{Documents: []string{"big.pdf"}})
	require.NoError(t, err)

	require.Len(t, d.ExtractedSections, 10)
	require.Len(t, d.SubsectionAnalysis, 10)
	for i, es := range d.ExtractedSections {
		assert.Equal(t, i+1, es.ImportanceRank)
		assert.Equal(t, 12-i, es.PageNumber)
	}
}

func TestProcess_RefinesLongSections(t *testing.T) {
	long := "Opening sentence of the section. " + strings.Repeat("Middle sentence that pads things out. ", 15) + "Closing sentence."
	ext := &fakeExtractor{pages: map[string][]domain.Page{"doc.pdf": {{Number: 1, Text: long}}}}
	sc := &tableScorer{scores: map[string]float64{}}

	d, err := newService(ext, sc, Options{}).Process(context.Background(), domain.Request{Documents: []string{"doc.pdf"}})
	require.NoError(t, err)

	require.Len(t, d.SubsectionAnalysis, 1)
	got := d.SubsectionAnalysis[0].RefinedText
	assert.True(t, strings.HasPrefix(got, "Opening sentence of the section."))
	assert.True(t, strings.HasSuffix(got, "Closing sentence."))
	assert.LessOrEqual(t, len(got), 400)
}

func TestProcess_ParallelScoringMatchesSequential(t *testing.T) {
	pages := map[string][]domain.Page{}
	scores := map[string]float64{}
	var docs []string
	for d := 0; d < 4; d++ {
		name := fmt.Sprintf("doc%d.pdf", d)
		docs = append(docs, name)
		for p := 1; p <= 3; p++ {
			marker := fmt.Sprintf("d%dp%d", d, p)
			pages[name] = append(pages[name], domain.Page{Number: p, Text: para(marker)})
			scores[marker] = float64((d + p) % 3)
		}
	}
	ext := &fakeExtractor{pages: pages}
	req := domain.Request{Documents: docs, Persona: "p", JobToBeDone: "j"}

	seq, err := newService(ext, &tableScorer{scores: scores}, Options{Workers: 1}).Process(context.Background(), req)
	require.NoError(t, err)
	par, err := newService(ext, &tableScorer{scores: scores}, Options{Workers: 8}).Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
}

func TestProcess_Cancelled(t *testing.T) {
	ext := &fakeExtractor{pages: map[string][]domain.Page{"a.pdf": {{Number: 1, Text: para("x")}}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(ext, &tableScorer{}, Options{}).Process(ctx, domain.Request{Documents: []string{"a.pdf"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess_EngineerScenario(t *testing.T) {
	p150 := "Engineers optimize performance by profiling the hot paths first, " +
		"then removing allocations and caching results that are expensive to recompute."
	p150 = p150 + strings.Repeat(".", 150-len(p150))
	p50 := strings.Repeat("z", 50)
	require.Len(t, p150, 150)

	ext := &fakeExtractor{pages: map[string][]domain.Page{"perf.pdf": {{Number: 1, Text: p150 + "\n\n" + p50}}}}
	sc := scorer.New(cache.New(hashing.New(0), nil), config.ScorerConfig{SemanticWeight: 0.7, KeywordWeight: 0.3}, nil, nil)

	d, err := newService(ext, sc, Options{}).Process(context.Background(),
		domain.Request{Documents: []string{"perf.pdf"}, Persona: "engineer", JobToBeDone: "optimize performance"})
	require.NoError(t, err)

	require.Len(t, d.ExtractedSections, 1)
	assert.Equal(t, domain.ExtractedSection{Document: "perf.pdf", PageNumber: 1, SectionTitle: "Section 1", ImportanceRank: 1}, d.ExtractedSections[0])
	assert.Equal(t, p150, d.SubsectionAnalysis[0].RefinedText)
}

// recordingScorer remembers the score given to each section content.
type recordingScorer struct {
	RelevanceScorer
	mu     sync.Mutex
	scores map[string]float64
}

func (r *recordingScorer) Score(ctx context.Context, content, persona, job string) float64 {
	score := r.RelevanceScorer.Score(ctx, content, persona, job)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scores == nil {
		r.scores = map[string]float64{}
	}
	r.scores[content] = score
	return score
}

func TestProcess_SectionScoreIgnoresOtherDocuments(t *testing.T) {
	x := "Profiling hot paths is the first step when engineers optimize performance of a service under heavy load."
	y := "Caching layers reduce database load and help engineers keep tail latency low during seasonal traffic peaks."
	z := "The holiday rota lists who covers the support desk over the long winter break and all public holidays."
	ext := &fakeExtractor{pages: map[string][]domain.Page{
		"x.pdf": {{Number: 1, Text: x}},
		"y.pdf": {{Number: 1, Text: y}},
		"z.pdf": {{Number: 1, Text: z}},
	}}
	scoreOfX := func(other string) float64 {
		rec := &recordingScorer{RelevanceScorer: scorer.New(cache.New(hashing.New(0), nil), config.ScorerConfig{SemanticWeight: 0.7, KeywordWeight: 0.3}, nil, nil)}
		_, err := newService(ext, rec, Options{}).Process(context.Background(),
			domain.Request{Documents: []string{"x.pdf", other}, Persona: "engineer", JobToBeDone: "optimize performance"})
		require.NoError(t, err)
		require.Contains(t, rec.scores, x)
		return rec.scores[x]
	}

	assert.Equal(t, scoreOfX("y.pdf"), scoreOfX("z.pdf"))
}

func TestProcess_RealExtractorMissingFile(t *testing.T) {
	ext := extractor.NewPDFExtractor(config.ExtractorConfig{}, nil)
	missing := filepath.Join(t.TempDir(), "nope.pdf")

	d, err := newService(ext, &tableScorer{}, Options{}).Process(context.Background(),
		domain.Request{Documents: []string{missing}, Persona: "p", JobToBeDone: "j"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nope.pdf"}, d.Metadata.InputDocuments)
	assert.Empty(t, d.ExtractedSections)
}

func TestRank(t *testing.T) {
	in := []domain.ScoredSection{
		{Score: 0.1, Order: 0},
		{Score: 0.3, Order: 1},
		{Score: 0.3, Order: 2},
		{Score: 0.2, Order: 3},
	}
	got := Rank(in, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].Order, got[1].Order, got[2].Order})
	assert.Equal(t, 0, in[0].Order, "input must not be reordered")

	assert.Len(t, Rank(in, 10), 4)
	assert.Empty(t, Rank(nil, 10))
}
