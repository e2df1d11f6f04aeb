package refiner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Splitter breaks text into trimmed, non-empty sentences.
type Splitter interface {
	Split(text string) []string
}

// PunktSplitter uses the pretrained English Punkt model, which knows common
// abbreviations and initials.
type PunktSplitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewPunktSplitter loads the English Punkt model.
func NewPunktSplitter() (*PunktSplitter, error) {
	t, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load punkt model: %w", err)
	}
	return &PunktSplitter{tokenizer: t}, nil
}

// Split returns the trimmed, non-empty sentences of text.
func (p *PunktSplitter) Split(text string) []string {
	var out []string
	for _, s := range p.tokenizer.Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// RegexSplitter ends a sentence at terminal punctuation; trailing text
// without punctuation forms the last sentence.
type RegexSplitter struct {
	pattern *regexp.Regexp
}

// NewRegexSplitter creates a punctuation-based splitter.
func NewRegexSplitter() *RegexSplitter {
	return &RegexSplitter{pattern: regexp.MustCompile(`[^.!?]+(?:[.!?]+["')\]]*|$)`)}
}

// Split returns the trimmed, non-empty sentences of text.
func (r *RegexSplitter) Split(text string) []string {
	var out []string
	for _, s := range r.pattern.FindAllString(text, -1) {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// NewSplitter returns the splitter registered under name.
func NewSplitter(name string) (Splitter, error) {
	switch name {
	case "punkt", "":
		return NewPunktSplitter()
	case "regex":
		return NewRegexSplitter(), nil
	default:
		return nil, fmt.Errorf("unknown sentence splitter: %s", name)
	}
}
