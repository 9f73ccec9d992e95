// Package similarity scores how close two utterances are. The dispatcher
// converts each incoming utterance once and every skill compares the shared
// converted form against its own reference phrases.
package similarity

import (
	"math"
	"strings"
	"unicode"
)

// Form is the comparable representation of a piece of text. Forms from
// different Oracle implementations must not be mixed.
type Form struct {
	normalized string
	bag        map[string]float64
	norm       float64
}

// Normalized returns the lower-cased, whitespace-collapsed text behind the form.
func (f Form) Normalized() string { return f.normalized }

// Oracle converts text to a comparable form and scores two forms in [0,1].
type Oracle interface {
	Convert(text string) Form
	Score(a, b Form) float64
}

// Bag is the default Oracle: a word-bag cosine over normalized tokens.
// Identical normalized texts always score exactly 1.
type Bag struct{}

func NewBag() *Bag { return &Bag{} }

func (Bag) Convert(text string) Form {
	tokens := tokenize(text)
	bag := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		bag[t]++
	}
	var sum float64
	for _, c := range bag {
		sum += c * c
	}
	return Form{
		normalized: strings.Join(tokens, " "),
		bag:        bag,
		norm:       math.Sqrt(sum),
	}
}

func (Bag) Score(a, b Form) float64 {
	if a.normalized == b.normalized {
		return 1
	}
	if a.norm == 0 || b.norm == 0 {
		return 0
	}
	smaller, larger := a.bag, b.bag
	if len(smaller) > len(larger) {
		smaller, larger = larger, smaller
	}
	var dot float64
	for w, c := range smaller {
		dot += c * larger[w]
	}
	score := dot / (a.norm * b.norm)
	if score > 1 {
		score = 1
	}
	// Distinct texts never report an exact match; 1.0 is reserved for
	// identical normalized forms so exact-keyword gating stays deterministic.
	if score == 1 {
		score = 0.9999
	}
	return score
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
