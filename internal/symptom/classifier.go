package symptom

import "strings"

// Strategy selects how the rule table is evaluated against the input.
type Strategy string

const (
	// StrategyFirstMatch iterates rules longest-keyword-first (ties broken by
	// lexicographic keyword order) and returns the label of the first rule
	// whose keyword is a substring of the normalised input. The length-based
	// order is deliberate: it guarantees that a specific phrase can never be
	// pre-empted by a generic word it contains, independent of how the rule
	// file happens to be written.
	StrategyFirstMatch Strategy = "first-match"

	// StrategyScoring accumulates one point per matching keyword per label
	// and returns the label with the strictly highest score. When two or
	// more labels tie for the highest nonzero score the input is ambiguous
	// and the result is [LabelUnknown] — a deterministic answer is preferred
	// over an arbitrary pick.
	StrategyScoring Strategy = "scoring"
)

// IsValid reports whether s is a recognised strategy.
func (s Strategy) IsValid() bool {
	return s == StrategyFirstMatch || s == StrategyScoring
}

// Classifier maps free-text symptom descriptions to disease labels.
// It is read-only after construction and safe for concurrent use.
type Classifier struct {
	rules     *RuleSet
	strategy  Strategy
	corrector *Corrector
}

// ClassifierOption is a functional option for configuring a Classifier.
type ClassifierOption func(*Classifier)

// WithStrategy selects the matching strategy. Defaults to [StrategyScoring],
// matching the most mature variant of the original matcher.
func WithStrategy(s Strategy) ClassifierOption {
	return func(c *Classifier) {
		c.strategy = s
	}
}

// WithCorrector enables fuzzy correction of misspelled symptom words against
// the rule vocabulary before rule evaluation. Correction only rewrites
// individual words; it never introduces labels by itself.
func WithCorrector(cor *Corrector) ClassifierOption {
	return func(c *Classifier) {
		c.corrector = cor
	}
}

// NewClassifier creates a Classifier over the given rule set.
func NewClassifier(rules *RuleSet, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		rules:    rules,
		strategy: StrategyScoring,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify maps text to a disease label, or [LabelUnknown] when the input is
// empty, matches no rule, or (under the scoring strategy) matches multiple
// labels equally well. Classify has no side effects.
func (c *Classifier) Classify(text string) string {
	normalised := strings.ToLower(strings.TrimSpace(text))
	if normalised == "" {
		return LabelUnknown
	}

	if c.corrector != nil {
		normalised = c.corrector.Correct(normalised, c.rules.Vocabulary())
	}

	switch c.strategy {
	case StrategyFirstMatch:
		return c.classifyFirstMatch(normalised)
	default:
		return c.classifyScoring(normalised)
	}
}

// Strategy returns the configured matching strategy.
func (c *Classifier) Strategy() Strategy {
	return c.strategy
}

// classifyFirstMatch returns the label of the longest matching keyword.
func (c *Classifier) classifyFirstMatch(text string) string {
	for _, r := range c.rules.byLength {
		if strings.Contains(text, r.Keyword) {
			return r.Label
		}
	}
	return LabelUnknown
}

// classifyScoring returns the label with the strictly highest keyword count.
func (c *Classifier) classifyScoring(text string) string {
	scores := map[string]int{}
	for _, r := range c.rules.rules {
		if strings.Contains(text, r.Keyword) {
			scores[r.Label]++
		}
	}

	best, bestScore, tied := LabelUnknown, 0, false
	for label, score := range scores {
		switch {
		case score > bestScore:
			best, bestScore, tied = label, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}
	if bestScore == 0 || tied {
		return LabelUnknown
	}
	return best
}
