// Package symptom implements the deterministic free-text symptom classifier.
//
// A classifier owns an immutable, ordered table of keyword→disease rules and
// maps arbitrary user text to a disease label by case-insensitive substring
// matching. Two matching strategies are supported (see [Strategy]); both are
// pure functions of the rule table and the input string, so classification
// is fully deterministic and safe to share read-only across all requests.
package symptom

import (
	"fmt"
	"sort"
	"strings"
)

// LabelUnknown is returned when no rule matches, when the input is empty,
// and when the scoring strategy finds an ambiguous tie.
const LabelUnknown = "Unknown"

// Rule maps a keyword or phrase to a disease label. Multiple rules may map
// to the same label.
type Rule struct {
	// Keyword is the phrase matched as a case-insensitive substring of the
	// normalised input (e.g., "yellow leaf curl", "brown spots").
	Keyword string `yaml:"keyword"`

	// Label is the disease key the keyword votes for
	// (e.g., "Tomato___YellowLeaf__Curl_Virus").
	Label string `yaml:"label"`
}

// RuleSet is an immutable collection of symptom rules. Construct one with
// [NewRuleSet] so keywords are normalised and the first-match evaluation
// order is fixed up front.
type RuleSet struct {
	// rules holds the normalised rules in declaration order.
	rules []Rule

	// byLength holds the same rules sorted longest-keyword-first, ties broken
	// by lexicographic keyword order. This is the first-match evaluation
	// order: a specific phrase like "yellow leaf curl" must win over a
	// generic word like "yellow" regardless of declaration order.
	byLength []Rule
}

// NewRuleSet builds a RuleSet from rules. Keywords are lower-cased and
// trimmed; empty keywords or labels are rejected, as are duplicate keywords
// (a keyword can vote for only one label).
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("symptom: rule set must not be empty")
	}

	seen := make(map[string]string, len(rules))
	normalised := make([]Rule, 0, len(rules))
	for i, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		label := strings.TrimSpace(r.Label)
		if kw == "" {
			return nil, fmt.Errorf("symptom: rule %d: keyword must not be empty", i)
		}
		if label == "" {
			return nil, fmt.Errorf("symptom: rule %d (%q): label must not be empty", i, r.Keyword)
		}
		if prev, ok := seen[kw]; ok {
			return nil, fmt.Errorf("symptom: keyword %q maps to both %q and %q", kw, prev, label)
		}
		seen[kw] = label
		normalised = append(normalised, Rule{Keyword: kw, Label: label})
	}

	byLength := make([]Rule, len(normalised))
	copy(byLength, normalised)
	sort.SliceStable(byLength, func(i, j int) bool {
		if len(byLength[i].Keyword) != len(byLength[j].Keyword) {
			return len(byLength[i].Keyword) > len(byLength[j].Keyword)
		}
		return byLength[i].Keyword < byLength[j].Keyword
	})

	return &RuleSet{rules: normalised, byLength: byLength}, nil
}

// Rules returns the rules in declaration order. The returned slice is a copy.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Vocabulary returns the sorted set of distinct single words occurring in
// rule keywords. Used by the fuzzy corrector to repair misspelled symptom
// words before rule evaluation.
func (rs *RuleSet) Vocabulary() []string {
	set := map[string]struct{}{}
	for _, r := range rs.rules {
		for _, w := range strings.Fields(r.Keyword) {
			set[w] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// DefaultRules returns the built-in tomato symptom rule table. Deployments
// that grow their own crops supply a rules file instead (see [LoadRulesFile]).
func DefaultRules() []Rule {
	return []Rule{
		{Keyword: "late blight", Label: "Tomato___Late_blight"},
		{Keyword: "dark brown spots", Label: "Tomato___Late_blight"},
		{Keyword: "brown spots", Label: "Tomato___Late_blight"},
		{Keyword: "white fuzzy", Label: "Tomato___Late_blight"},
		{Keyword: "fuzzy growth", Label: "Tomato___Late_blight"},
		{Keyword: "underside", Label: "Tomato___Late_blight"},

		{Keyword: "early blight", Label: "Tomato___Early_blight"},
		{Keyword: "concentric rings", Label: "Tomato___Early_blight"},
		{Keyword: "yellowing around spots", Label: "Tomato___Early_blight"},
		{Keyword: "target spots", Label: "Tomato___Early_blight"},

		{Keyword: "leaf mold", Label: "Tomato___Leaf_Mold"},
		{Keyword: "yellow spots", Label: "Tomato___Leaf_Mold"},
		{Keyword: "olive-green", Label: "Tomato___Leaf_Mold"},
		{Keyword: "olive green", Label: "Tomato___Leaf_Mold"},
		{Keyword: "fuzzy underneath", Label: "Tomato___Leaf_Mold"},

		{Keyword: "septoria", Label: "Tomato___Septoria_leaf_spot"},
		{Keyword: "circular spots", Label: "Tomato___Septoria_leaf_spot"},
		{Keyword: "dark borders", Label: "Tomato___Septoria_leaf_spot"},
		{Keyword: "gray centers", Label: "Tomato___Septoria_leaf_spot"},
		{Keyword: "black dots", Label: "Tomato___Septoria_leaf_spot"},

		{Keyword: "bacterial spot", Label: "Tomato___Bacterial_spot"},
		{Keyword: "scab-like", Label: "Tomato___Bacterial_spot"},
		{Keyword: "raised spots", Label: "Tomato___Bacterial_spot"},
		{Keyword: "bacterial", Label: "Tomato___Bacterial_spot"},

		{Keyword: "yellow leaf curl", Label: "Tomato___YellowLeaf__Curl_Virus"},
		{Keyword: "upward curling", Label: "Tomato___YellowLeaf__Curl_Virus"},
		{Keyword: "curling leaves", Label: "Tomato___YellowLeaf__Curl_Virus"},
		{Keyword: "curl virus", Label: "Tomato___YellowLeaf__Curl_Virus"},
		{Keyword: "stunted", Label: "Tomato___YellowLeaf__Curl_Virus"},

		{Keyword: "mosaic", Label: "Tomato___mosaic_virus"},
		{Keyword: "mottled", Label: "Tomato___mosaic_virus"},
		{Keyword: "distorted", Label: "Tomato___mosaic_virus"},
		{Keyword: "reduced yield", Label: "Tomato___mosaic_virus"},

		{Keyword: "no symptoms", Label: "Tomato___healthy"},
		{Keyword: "looks fine", Label: "Tomato___healthy"},
		{Keyword: "healthy", Label: "Tomato___healthy"},
	}
}
