package symptom_test

import (
	"strings"
	"testing"

	"github.com/verdantlabs/leafdoc/internal/symptom"
)

func defaultClassifier(t *testing.T, opts ...symptom.ClassifierOption) *symptom.Classifier {
	t.Helper()
	rs, err := symptom.NewRuleSet(symptom.DefaultRules())
	if err != nil {
		t.Fatalf("NewRuleSet(DefaultRules()): %v", err)
	}
	return symptom.NewClassifier(rs, opts...)
}

func TestClassifier_EmptyInputIsUnknown(t *testing.T) {
	t.Parallel()

	c := defaultClassifier(t)

	for _, input := range []string{"", "   ", "\t\n"} {
		if got := c.Classify(input); got != symptom.LabelUnknown {
			t.Errorf("Classify(%q) = %q, want %q", input, got, symptom.LabelUnknown)
		}
	}
}

func TestClassifier_NoMatchIsUnknown(t *testing.T) {
	t.Parallel()

	c := defaultClassifier(t)

	if got := c.Classify("the sky is blue today"); got != symptom.LabelUnknown {
		t.Errorf("Classify(no-match) = %q, want %q", got, symptom.LabelUnknown)
	}
}

func TestClassifier_CaseInsensitive(t *testing.T) {
	t.Parallel()

	c := defaultClassifier(t)

	got := c.Classify("Leaves Show CONCENTRIC RINGS near the stem")
	if got != "Tomato___Early_blight" {
		t.Errorf("Classify(mixed case) = %q, want %q", got, "Tomato___Early_blight")
	}
}

func TestClassifier_ScoringPicksMajorityLabel(t *testing.T) {
	t.Parallel()

	c := defaultClassifier(t, symptom.WithStrategy(symptom.StrategyScoring))

	// Two late-blight keywords ("dark brown spots" also implies "brown spots",
	// plus "white fuzzy") against at most one vote for any other label.
	got := c.Classify("dark brown spots with white fuzzy growth on the underside")
	if got != "Tomato___Late_blight" {
		t.Errorf("Classify(scoring) = %q, want %q", got, "Tomato___Late_blight")
	}
}

func TestClassifier_ScoringTieIsUnknown(t *testing.T) {
	t.Parallel()

	c := defaultClassifier(t, symptom.WithStrategy(symptom.StrategyScoring))

	// One vote for early blight ("concentric rings") and one for mosaic virus
	// ("mottled"). The tie is ambiguous, so no label wins.
	got := c.Classify("concentric rings and mottled patches")
	if got != symptom.LabelUnknown {
		t.Errorf("Classify(tie) = %q, want %q", got, symptom.LabelUnknown)
	}
}

func TestClassifier_FirstMatchPrefersLongestKeyword(t *testing.T) {
	t.Parallel()

	// "curl" appears inside "yellow leaf curl"; the longer phrase must win
	// regardless of declaration order.
	rs, err := symptom.NewRuleSet([]symptom.Rule{
		{Keyword: "curl", Label: "A"},
		{Keyword: "yellow leaf curl", Label: "B"},
	})
	if err != nil {
		t.Fatalf("NewRuleSet: %v", err)
	}

	c := symptom.NewClassifier(rs, symptom.WithStrategy(symptom.StrategyFirstMatch))

	if got := c.Classify("leaves show yellow leaf curl"); got != "B" {
		t.Errorf("Classify = %q, want longest-keyword label %q", got, "B")
	}
	if got := c.Classify("just some curl"); got != "A" {
		t.Errorf("Classify = %q, want %q", got, "A")
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	t.Parallel()

	c := defaultClassifier(t)

	input := "yellow spots with olive green patches, fuzzy underneath"
	first := c.Classify(input)
	for i := 0; i < 50; i++ {
		if got := c.Classify(input); got != first {
			t.Fatalf("Classify run %d = %q, want stable %q", i, got, first)
		}
	}
	if first != "Tomato___Leaf_Mold" {
		t.Errorf("Classify = %q, want %q", first, "Tomato___Leaf_Mold")
	}
}

func TestClassifier_WithCorrectorRepairsMisspellings(t *testing.T) {
	t.Parallel()

	c := defaultClassifier(t,
		symptom.WithStrategy(symptom.StrategyFirstMatch),
		symptom.WithCorrector(symptom.NewCorrector()),
	)

	// "helthy" is phonetically identical to the vocabulary word "healthy".
	got := c.Classify("plant looks helthy to me")
	if got != "Tomato___healthy" {
		t.Errorf("Classify(misspelled) = %q, want %q", got, "Tomato___healthy")
	}
}

func TestNewRuleSet_RejectsEmptyAndDuplicates(t *testing.T) {
	t.Parallel()

	if _, err := symptom.NewRuleSet(nil); err == nil {
		t.Error("NewRuleSet(nil): want error, got nil")
	}

	_, err := symptom.NewRuleSet([]symptom.Rule{
		{Keyword: "", Label: "X"},
	})
	if err == nil {
		t.Error("NewRuleSet(empty keyword): want error, got nil")
	}

	_, err = symptom.NewRuleSet([]symptom.Rule{
		{Keyword: "mosaic", Label: "A"},
		{Keyword: "Mosaic", Label: "B"},
	})
	if err == nil || !strings.Contains(err.Error(), "mosaic") {
		t.Errorf("NewRuleSet(duplicate keyword): err=%v, want duplicate error naming the keyword", err)
	}
}

func TestRuleSet_VocabularyIsSortedAndDistinct(t *testing.T) {
	t.Parallel()

	rs, err := symptom.NewRuleSet([]symptom.Rule{
		{Keyword: "yellow spots", Label: "A"},
		{Keyword: "yellow leaf curl", Label: "B"},
	})
	if err != nil {
		t.Fatalf("NewRuleSet: %v", err)
	}

	got := rs.Vocabulary()
	want := []string{"curl", "leaf", "spots", "yellow"}
	if len(got) != len(want) {
		t.Fatalf("Vocabulary() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Vocabulary() = %v, want %v", got, want)
		}
	}
}
