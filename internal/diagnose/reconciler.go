package diagnose

import (
	"fmt"

	"github.com/verdantlabs/leafdoc/internal/symptom"
)

const (
	// DefaultHighThreshold is the image confidence at or above which a
	// diagnosis is accepted outright.
	DefaultHighThreshold = 0.80

	// DefaultModerateThreshold is the image confidence at or above which a
	// diagnosis is accepted with a moderate qualifier, when no keyword
	// channel produced a label.
	DefaultModerateThreshold = 0.40
)

// Reconciler selects one final diagnosis from zero or more evidences using a
// fixed source-priority and confidence-threshold policy. It is read-only
// after construction and safe for concurrent use.
//
// The policy, first applicable rule wins:
//
//  1. Image evidence with confidence >= high threshold: accepted, level high.
//  2. Voice evidence with a known label: accepted, level unknown.
//  3. Text evidence with a known label: accepted, level unknown.
//  4. Image evidence with confidence in [moderate, high): accepted, level
//     moderate.
//  5. Image evidence with confidence below the moderate threshold: uncertain,
//     level low, no label.
//  6. No evidence at all: awaiting input.
//
// Image confidence is the only graded signal. Keyword channels are binary,
// so they are trusted only when unambiguous, ranked above a middling visual
// guess but below a highly confident one. Threshold comparisons are
// inclusive at the lower bound, so exactly 0.80 is high and exactly 0.40 is
// moderate.
type Reconciler struct {
	high     float64
	moderate float64
}

// ReconcilerOption is a functional option for configuring a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithHighThreshold overrides the high-confidence threshold.
func WithHighThreshold(v float64) ReconcilerOption {
	return func(r *Reconciler) {
		r.high = v
	}
}

// WithModerateThreshold overrides the moderate-confidence threshold.
func WithModerateThreshold(v float64) ReconcilerOption {
	return func(r *Reconciler) {
		r.moderate = v
	}
}

// NewReconciler builds a Reconciler. The thresholds must satisfy
// 0 < moderate <= high <= 1.
func NewReconciler(opts ...ReconcilerOption) (*Reconciler, error) {
	r := &Reconciler{
		high:     DefaultHighThreshold,
		moderate: DefaultModerateThreshold,
	}
	for _, o := range opts {
		o(r)
	}
	if r.moderate <= 0 || r.high > 1 || r.moderate > r.high {
		return nil, fmt.Errorf("diagnose: invalid thresholds: moderate=%.2f high=%.2f", r.moderate, r.high)
	}
	return r, nil
}

// Reconcile applies the priority policy to evidences, in the order given.
// Evidence with an empty label, or image evidence without a confidence
// score, contributes nothing; a degraded collaborator result therefore
// degrades the diagnosis, never crashes it.
func (r *Reconciler) Reconcile(evidences []Evidence) DiagnosisResult {
	img := firstImage(evidences)

	// Rule 1: a highly confident visual match beats everything.
	if img != nil && *img.Confidence >= r.high {
		return DiagnosisResult{
			FinalLabel: img.Label,
			Level:      LevelHigh,
			Source:     SourceImage,
			State:      StateResolved,
		}
	}

	// Rules 2 and 3: unambiguous keyword channels, voice before text.
	for _, src := range []Source{SourceVoice, SourceText} {
		if ev := firstLabelled(evidences, src); ev != nil {
			return DiagnosisResult{
				FinalLabel: ev.Label,
				Level:      LevelUnknown,
				Source:     src,
				State:      StateResolved,
			}
		}
	}

	// Rules 4 and 5: fall back to the graded visual signal.
	if img != nil {
		if *img.Confidence >= r.moderate {
			return DiagnosisResult{
				FinalLabel: img.Label,
				Level:      LevelModerate,
				Source:     SourceImage,
				State:      StateResolved,
			}
		}
		return DiagnosisResult{
			Level:       LevelLow,
			Source:      SourceImage,
			State:       StateUncertain,
			IsUncertain: true,
		}
	}

	// Rule 6: nothing at all versus channels that all came back empty.
	if len(evidences) == 0 {
		return DiagnosisResult{
			Level: LevelUnknown,
			State: StateAwaitingInput,
		}
	}
	return DiagnosisResult{
		Level:       LevelUnknown,
		State:       StateNoMatch,
		IsUncertain: true,
	}
}

// firstImage returns the first image evidence carrying both a label and a
// confidence score, or nil.
func firstImage(evidences []Evidence) *Evidence {
	for i := range evidences {
		ev := &evidences[i]
		if ev.Source == SourceImage && ev.Label != "" && ev.Confidence != nil {
			return ev
		}
	}
	return nil
}

// firstLabelled returns the first evidence from src whose label is present
// and not the unknown sentinel, or nil.
func firstLabelled(evidences []Evidence, src Source) *Evidence {
	for i := range evidences {
		ev := &evidences[i]
		if ev.Source == src && ev.Label != "" && ev.Label != symptom.LabelUnknown {
			return ev
		}
	}
	return nil
}
