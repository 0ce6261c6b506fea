package symptom

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// CorrectorOption is a functional option for configuring a [Corrector].
type CorrectorOption func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched vocabulary word to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) CorrectorOption {
	return func(c *Corrector) {
		c.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the corrector falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) CorrectorOption {
	return func(c *Corrector) {
		c.fuzzyThreshold = threshold
	}
}

// Corrector repairs misspelled symptom words ("yelow", "blite") against the
// rule vocabulary so that keyword rules still fire on noisy input — typed in
// a hurry or transcribed from a voice note.
//
// The algorithm proceeds in two stages per word:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     the word and each vocabulary entry; entries sharing a code become
//     candidates, ranked by Jaro-Winkler similarity against the original
//     strings.
//  2. Fuzzy fallback: when no phonetic candidate clears the phonetic
//     threshold, the vocabulary entry with the highest pure Jaro-Winkler
//     similarity is accepted if it clears the (stricter) fuzzy threshold.
//
// Words already present in the vocabulary pass through untouched, as does
// any word for which neither stage produces a confident candidate. The
// Corrector is read-only after construction and safe for concurrent use.
type Corrector struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewCorrector returns a Corrector configured with the supplied options.
func NewCorrector(opts ...CorrectorOption) *Corrector {
	c := &Corrector{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct rewrites each word of text that is absent from vocab with its best
// confident vocabulary match, leaving everything else unchanged. text is
// expected to be lower-cased already; the result joins words with single
// spaces.
func (c *Corrector) Correct(text string, vocab []string) string {
	if len(vocab) == 0 {
		return text
	}

	known := make(map[string]struct{}, len(vocab))
	for _, w := range vocab {
		known[w] = struct{}{}
	}

	words := strings.Fields(text)
	for i, w := range words {
		if _, ok := known[w]; ok {
			continue
		}
		if corrected, ok := c.match(w, vocab); ok {
			words[i] = corrected
		}
	}
	return strings.Join(words, " ")
}

// match finds the best vocabulary candidate for word, or ok=false when no
// candidate clears the relevant threshold.
func (c *Corrector) match(word string, vocab []string) (corrected string, ok bool) {
	p1, s1 := matchr.DoubleMetaphone(word)

	var (
		bestPhonetic      string
		bestPhoneticScore float64
		bestFuzzy         string
		bestFuzzyScore    float64
	)

	for _, candidate := range vocab {
		score := matchr.JaroWinkler(word, candidate, true)

		p2, s2 := matchr.DoubleMetaphone(candidate)
		if codesOverlap(p1, s1, p2, s2) && score > bestPhoneticScore {
			bestPhonetic, bestPhoneticScore = candidate, score
		}
		if score > bestFuzzyScore {
			bestFuzzy, bestFuzzyScore = candidate, score
		}
	}

	if bestPhonetic != "" && bestPhoneticScore >= c.phoneticThreshold {
		return bestPhonetic, true
	}
	if bestFuzzy != "" && bestFuzzyScore >= c.fuzzyThreshold {
		return bestFuzzy, true
	}
	return "", false
}

// codesOverlap reports whether any non-empty Double Metaphone code from the
// first pair equals any from the second.
func codesOverlap(p1, s1, p2, s2 string) bool {
	for _, a := range []string{p1, s1} {
		if a == "" {
			continue
		}
		if a == p2 || (s2 != "" && a == s2) {
			return true
		}
	}
	return false
}
