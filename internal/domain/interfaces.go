package domain

import "context"

// Page is the raw text of a single 1-based PDF page.
type Page struct {
	Number int
	Text   string
}

// Section is a paragraph-level chunk of a page and the unit of ranking.
type Section struct {
	Title    string
	Content  string
	Page     int
	Document string
}

// ScoredSection is a section with its relevance score.
// Order is the discovery index (document, then page, then section).
type ScoredSection struct {
	Section
	Score float64
	Order int
}

// BuildQuery joins persona and job the way every section is scored against.
func BuildQuery(persona, job string) string {
	return persona + " " + job
}

// Extractor reads a file and returns its non-blank pages in ascending order.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]Page, error)
}

// Segmenter splits page text into sections above a minimum length.
type Segmenter interface {
	Segment(text string, page int) []Section
}

// Embedder converts free text into a numeric vector representation.
// Prepare hands it the run's corpus; embedders that do not learn from the
// corpus ignore it.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Scorer computes the relevance of a section's content to persona and job.
type Scorer interface {
	Score(ctx context.Context, content, persona, job string) float64
}

// Refiner compresses section text into a short excerpt.
type Refiner interface {
	Refine(text string) string
}

// DigestService defines the operations exposed by the application core.
type DigestService interface {
	Process(ctx context.Context, req Request) (*Digest, error)
}
