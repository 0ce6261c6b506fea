// Package diagnose implements the evidence reconciliation policy and the
// diagnosis service that composes classifier, reconciler, knowledge base and
// unknown-case logging into one request-scoped pipeline.
package diagnose

// Source identifies the input channel an [Evidence] came from.
type Source string

const (
	SourceImage Source = "image"
	SourceVoice Source = "voice"
	SourceText  Source = "text"
)

// ConfidenceLevel is the discretised confidence band attached to a diagnosis.
type ConfidenceLevel string

const (
	// LevelHigh means a graded confidence score at or above the high
	// threshold (default 0.80).
	LevelHigh ConfidenceLevel = "high"

	// LevelModerate means a graded confidence score in the moderate band
	// (default [0.40, 0.80)).
	LevelModerate ConfidenceLevel = "moderate"

	// LevelLow means a graded confidence score below the moderate threshold.
	LevelLow ConfidenceLevel = "low"

	// LevelUnknown means the winning channel carries no numeric confidence
	// (keyword channels are binary: matched or not).
	LevelUnknown ConfidenceLevel = "unknown"
)

// Evidence is one unit of diagnostic input from one channel. It is immutable
// once created and discarded after reconciliation.
//
// An empty Label means the channel produced no usable signal; the reconciler
// treats such evidence as absent rather than failing on it. Confidence is nil
// for channels that carry no graded score (voice, text).
type Evidence struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
	Source     Source   `json:"source"`
}

// State is the terminal state of a reconciliation.
type State string

const (
	// StateResolved means a single final label was selected.
	StateResolved State = "resolved"

	// StateUncertain means graded evidence existed but scored too low to
	// trust (low-confidence image only).
	StateUncertain State = "uncertain"

	// StateNoMatch means evidence was provided but every channel came back
	// without a usable label.
	StateNoMatch State = "no_match"

	// StateAwaitingInput means no evidence was provided at all. This is an
	// explicit state distinct from uncertainty.
	StateAwaitingInput State = "awaiting_input"
)

// DiagnosisResult is the reconciler's output. FinalLabel is empty unless
// State is [StateResolved].
type DiagnosisResult struct {
	FinalLabel  string          `json:"final_label,omitempty"`
	Level       ConfidenceLevel `json:"confidence_level"`
	Source      Source          `json:"source,omitempty"`
	State       State           `json:"state"`
	IsUncertain bool            `json:"is_uncertain"`
}
