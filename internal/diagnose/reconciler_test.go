package diagnose_test

import (
	"testing"

	"github.com/verdantlabs/leafdoc/internal/diagnose"
)

func newReconciler(t *testing.T, opts ...diagnose.ReconcilerOption) *diagnose.Reconciler {
	t.Helper()
	r, err := diagnose.NewReconciler(opts...)
	if err != nil {
		t.Fatalf("NewReconciler: %v", err)
	}
	return r
}

func conf(v float64) *float64 { return &v }

func TestReconcile_HighConfidenceImageWins(t *testing.T) {
	t.Parallel()

	r := newReconciler(t)

	// A 0.85 image beats a conflicting text match.
	got := r.Reconcile([]diagnose.Evidence{
		{Label: "Tomato___Late_blight", Confidence: conf(0.85), Source: diagnose.SourceImage},
		{Label: "Tomato___Early_blight", Source: diagnose.SourceText},
	})

	if got.State != diagnose.StateResolved {
		t.Fatalf("State = %q, want %q", got.State, diagnose.StateResolved)
	}
	if got.Source != diagnose.SourceImage || got.FinalLabel != "Tomato___Late_blight" {
		t.Errorf("got source=%q label=%q, want image/Tomato___Late_blight", got.Source, got.FinalLabel)
	}
	if got.Level != diagnose.LevelHigh {
		t.Errorf("Level = %q, want %q", got.Level, diagnose.LevelHigh)
	}
}

func TestReconcile_VoiceBeatsTextAndModerateImage(t *testing.T) {
	t.Parallel()

	r := newReconciler(t)

	got := r.Reconcile([]diagnose.Evidence{
		{Label: "Tomato___Leaf_Mold", Confidence: conf(0.6), Source: diagnose.SourceImage},
		{Label: "Tomato___Early_blight", Source: diagnose.SourceVoice},
		{Label: "Tomato___Late_blight", Source: diagnose.SourceText},
	})

	if got.Source != diagnose.SourceVoice || got.FinalLabel != "Tomato___Early_blight" {
		t.Errorf("got source=%q label=%q, want voice/Tomato___Early_blight", got.Source, got.FinalLabel)
	}
	if got.Level != diagnose.LevelUnknown {
		t.Errorf("Level = %q, want %q (keyword channels carry no score)", got.Level, diagnose.LevelUnknown)
	}
}

func TestReconcile_UnknownKeywordLabelsAreSkipped(t *testing.T) {
	t.Parallel()

	r := newReconciler(t)

	got := r.Reconcile([]diagnose.Evidence{
		{Label: "Unknown", Source: diagnose.SourceVoice},
		{Label: "Unknown", Source: diagnose.SourceText},
		{Label: "Tomato___Leaf_Mold", Confidence: conf(0.6), Source: diagnose.SourceImage},
	})

	if got.Source != diagnose.SourceImage || got.Level != diagnose.LevelModerate {
		t.Errorf("got source=%q level=%q, want image/moderate fallback", got.Source, got.Level)
	}
}

func TestReconcile_ThresholdBoundariesAreInclusive(t *testing.T) {
	t.Parallel()

	r := newReconciler(t)

	// Exactly 0.80 is high, not moderate.
	got := r.Reconcile([]diagnose.Evidence{
		{Label: "X", Confidence: conf(0.80), Source: diagnose.SourceImage},
	})
	if got.Level != diagnose.LevelHigh {
		t.Errorf("confidence 0.80: Level = %q, want %q", got.Level, diagnose.LevelHigh)
	}

	// Exactly 0.40 is moderate, not low.
	got = r.Reconcile([]diagnose.Evidence{
		{Label: "X", Confidence: conf(0.40), Source: diagnose.SourceImage},
	})
	if got.Level != diagnose.LevelModerate {
		t.Errorf("confidence 0.40: Level = %q, want %q", got.Level, diagnose.LevelModerate)
	}
}

func TestReconcile_LowConfidenceImageIsUncertain(t *testing.T) {
	t.Parallel()

	r := newReconciler(t)

	got := r.Reconcile([]diagnose.Evidence{
		{Label: "X", Confidence: conf(0.3), Source: diagnose.SourceImage},
	})

	if !got.IsUncertain {
		t.Error("IsUncertain = false, want true")
	}
	if got.FinalLabel != "" {
		t.Errorf("FinalLabel = %q, want empty (no label surfaced below the moderate threshold)", got.FinalLabel)
	}
	if got.Level != diagnose.LevelLow {
		t.Errorf("Level = %q, want %q", got.Level, diagnose.LevelLow)
	}
}

func TestReconcile_NoEvidenceIsAwaitingInput(t *testing.T) {
	t.Parallel()

	r := newReconciler(t)

	got := r.Reconcile(nil)
	if got.State != diagnose.StateAwaitingInput {
		t.Fatalf("State = %q, want %q", got.State, diagnose.StateAwaitingInput)
	}
	if got.IsUncertain {
		t.Error("IsUncertain = true, want false: awaiting input is distinct from uncertainty")
	}
}

func TestReconcile_AllChannelsEmptyIsNoMatch(t *testing.T) {
	t.Parallel()

	r := newReconciler(t)

	got := r.Reconcile([]diagnose.Evidence{
		{Label: "Unknown", Source: diagnose.SourceText},
	})
	if got.State != diagnose.StateNoMatch {
		t.Fatalf("State = %q, want %q", got.State, diagnose.StateNoMatch)
	}
	if !got.IsUncertain {
		t.Error("IsUncertain = false, want true for provided-but-unusable evidence")
	}
}

func TestReconcile_ImageWithoutConfidenceIsIgnored(t *testing.T) {
	t.Parallel()

	r := newReconciler(t)

	got := r.Reconcile([]diagnose.Evidence{
		{Label: "X", Source: diagnose.SourceImage},
		{Label: "Tomato___mosaic_virus", Source: diagnose.SourceText},
	})
	if got.Source != diagnose.SourceText {
		t.Errorf("Source = %q, want text: ungraded image evidence must not fire image rules", got.Source)
	}
}

func TestNewReconciler_RejectsInvalidThresholds(t *testing.T) {
	t.Parallel()

	if _, err := diagnose.NewReconciler(
		diagnose.WithHighThreshold(0.3),
		diagnose.WithModerateThreshold(0.5),
	); err == nil {
		t.Error("NewReconciler(moderate > high): want error, got nil")
	}
	if _, err := diagnose.NewReconciler(diagnose.WithHighThreshold(1.5)); err == nil {
		t.Error("NewReconciler(high > 1): want error, got nil")
	}
}
