package refiner

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the excerpt budget in characters.
const DefaultMaxLength = 400

// Refiner shortens section text to a sentence-aligned excerpt that keeps the
// opening and closing sentences.
type Refiner struct {
	maxLength int
	splitter  Splitter
}

// New creates a refiner producing excerpts of about maxLength characters.
func New(maxLength int, splitter Splitter) *Refiner {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Refiner{maxLength: maxLength, splitter: splitter}
}

// Refine returns text unchanged when it fits. Otherwise it keeps the first
// sentence, then every interior sentence that still leaves room for the last
// sentence, then the last sentence. The last sentence is always appended, so
// the result can exceed maxLength.
func (r *Refiner) Refine(text string) string {
	if runeLen(text) <= r.maxLength {
		return text
	}
	sents := r.splitter.Split(text)
	if len(sents) == 0 {
		return string([]rune(text)[:r.maxLength]) + "..."
	}

	result := []string{sents[0]}
	if len(sents) == 1 {
		return sents[0]
	}
	last := sents[len(sents)-1]
	budget := r.maxLength - runeLen(last)
	joined := runeLen(sents[0])
	for _, s := range sents[1 : len(sents)-1] {
		// Sentences that do not fit are skipped; shorter ones after them may still fit.
		if n := joined + 1 + runeLen(s); n <= budget {
			result = append(result, s)
			joined = n
		}
	}
	result = append(result, last)
	return strings.Join(result, " ")
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
