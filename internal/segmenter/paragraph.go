package segmenter

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"docintel/internal/domain"
)

// DefaultMinLength is the number of characters a paragraph must exceed to become a section.
const DefaultMinLength = 100

// ParagraphSegmenter splits page text on blank lines into positional sections.
type ParagraphSegmenter struct {
	minLength int
	separator string
}

// NewParagraphSegmenter keeps paragraphs longer than minLength characters.
func NewParagraphSegmenter(minLength int) *ParagraphSegmenter {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &ParagraphSegmenter{minLength: minLength, separator: "\n\n"}
}

// Segment returns the sections of a page in discovery order. Titles are
// "Section N" where N is the paragraph's position on the page, so filtered
// paragraphs leave gaps in the numbering.
func (s *ParagraphSegmenter) Segment(text string, page int) []domain.Section {
	paragraphs := strings.Split(text, s.separator)
	var sections []domain.Section
	for i, para := range paragraphs {
		content := strings.TrimSpace(para)
		if utf8.RuneCountInString(content) <= s.minLength {
			continue
		}
		sections = append(sections, domain.Section{
			Title:   "Section " + strconv.Itoa(i+1),
			Content: content,
			Page:    page,
		})
	}
	return sections
}
