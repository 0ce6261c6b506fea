package diagnose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/verdantlabs/leafdoc/internal/knowledge"
	"github.com/verdantlabs/leafdoc/internal/observe"
	"github.com/verdantlabs/leafdoc/internal/unknownlog"
	"github.com/verdantlabs/leafdoc/pkg/provider/stt"
	"github.com/verdantlabs/leafdoc/pkg/provider/vision"
)

// ErrCollaborator marks failures of an external model collaborator (image
// classifier, speech transcription). Callers can distinguish these from
// domain outcomes with errors.Is.
var ErrCollaborator = errors.New("diagnose: collaborator unavailable")

// Classifier maps free text to a disease label. Implemented by
// [symptom.Classifier].
type Classifier interface {
	Classify(text string) string
}

// KnowledgeBase looks up treatment advice by disease key. Implementations
// must resolve misses to a synthesized record, never an error for "not
// found"; errors signal infrastructure failure only.
type KnowledgeBase interface {
	Lookup(ctx context.Context, key string) (*knowledge.TreatmentRecord, error)
}

// UnknownLogger records labels that had no knowledge-base entry. Recording
// is fire-and-forget; implementations swallow their own write failures.
type UnknownLogger interface {
	Record(entry unknownlog.Entry)
}

// Request carries the raw inputs of one diagnosis interaction. Any subset of
// the three channels may be present.
type Request struct {
	Image []byte
	Audio []byte
	Text  string
}

// Diagnosis is the full outcome of one interaction: the reconciled result,
// the evidence that produced it, treatment advice when resolved, and a
// user-readable message for every terminal state.
type Diagnosis struct {
	Result     DiagnosisResult            `json:"result"`
	Evidences  []Evidence                 `json:"evidences"`
	Transcript string                     `json:"transcript,omitempty"`
	Record     *knowledge.TreatmentRecord `json:"record,omitempty"`
	Message    string                     `json:"message"`
}

// Service assembles evidence from the input channels, reconciles it and
// resolves treatment advice. It is safe for concurrent use.
type Service struct {
	classifier Classifier
	reconciler *Reconciler
	kb         KnowledgeBase
	unknownLog UnknownLogger
	vision     vision.Provider
	stt        stt.Provider
	logger     *slog.Logger
	metrics    *observe.Metrics
}

// ServiceOption is a functional option for configuring a Service.
type ServiceOption func(*Service)

// WithVision enables the image channel.
func WithVision(p vision.Provider) ServiceOption {
	return func(s *Service) {
		s.vision = p
	}
}

// WithSTT enables the voice channel.
func WithSTT(p stt.Provider) ServiceOption {
	return func(s *Service) {
		s.stt = p
	}
}

// WithUnknownLogger enables unknown-case recording.
func WithUnknownLogger(l UnknownLogger) ServiceOption {
	return func(s *Service) {
		s.unknownLog = l
	}
}

// WithMetrics enables instrument recording.
func WithMetrics(m *observe.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService builds a diagnosis Service. classifier, reconciler and kb are
// required; the image and voice channels are optional and simply absent from
// the evidence when unconfigured.
func NewService(classifier Classifier, reconciler *Reconciler, kb KnowledgeBase, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if classifier == nil || reconciler == nil || kb == nil {
		return nil, fmt.Errorf("diagnose: classifier, reconciler and knowledge base are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		classifier: classifier,
		reconciler: reconciler,
		kb:         kb,
		logger:     logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Diagnose runs the full pipeline for one request: channel conversion,
// reconciliation, knowledge lookup and unknown-case recording. Collaborator
// failures are returned wrapped in [ErrCollaborator]; everything else is a
// terminal state expressed in the Diagnosis itself.
func (s *Service) Diagnose(ctx context.Context, req Request) (*Diagnosis, error) {
	evidences := make([]Evidence, 0, 3)
	var transcript string

	if len(req.Image) > 0 {
		if s.vision == nil {
			return nil, errors.Join(ErrCollaborator, errors.New("image channel not configured"))
		}
		start := time.Now()
		pred, err := s.vision.Classify(ctx, req.Image)
		s.recordProviderCall(ctx, "vision", start, err)
		if err != nil {
			return nil, errors.Join(ErrCollaborator, fmt.Errorf("classify image: %w", err))
		}
		if pred.Label != "" {
			conf := pred.Confidence
			evidences = append(evidences, Evidence{
				Label:      pred.Label,
				Confidence: &conf,
				Source:     SourceImage,
			})
		}
	}

	if len(req.Audio) > 0 {
		if s.stt == nil {
			return nil, errors.Join(ErrCollaborator, errors.New("voice channel not configured"))
		}
		start := time.Now()
		text, err := s.stt.Transcribe(ctx, req.Audio)
		s.recordProviderCall(ctx, "stt", start, err)
		if err != nil {
			return nil, errors.Join(ErrCollaborator, fmt.Errorf("transcribe audio: %w", err))
		}
		transcript = text
		if strings.TrimSpace(text) != "" {
			evidences = append(evidences, Evidence{
				Label:  s.classify(ctx, text),
				Source: SourceVoice,
			})
		}
	}

	if strings.TrimSpace(req.Text) != "" {
		evidences = append(evidences, Evidence{
			Label:  s.classify(ctx, req.Text),
			Source: SourceText,
		})
	}

	start := time.Now()
	result := s.reconciler.Reconcile(evidences)
	if s.metrics != nil {
		s.metrics.ObserveReconcile(ctx, time.Since(start))
		s.metrics.RecordDiagnosis(ctx, string(result.Source), string(result.Level), string(result.State))
	}

	diag := &Diagnosis{
		Result:     result,
		Evidences:  evidences,
		Transcript: transcript,
	}

	if result.State == StateResolved {
		record, err := s.kb.Lookup(ctx, result.FinalLabel)
		if err != nil {
			return nil, fmt.Errorf("diagnose: knowledge lookup %q: %w", result.FinalLabel, err)
		}
		diag.Record = record
		if !record.Found {
			s.noteUnknownCase(ctx, result, evidences)
		}
	}

	diag.Message = messageFor(result, diag.Record)
	return diag, nil
}

// classify runs the symptom classifier with duration instrumentation.
func (s *Service) classify(ctx context.Context, text string) string {
	start := time.Now()
	label := s.classifier.Classify(text)
	if s.metrics != nil {
		s.metrics.ObserveClassify(ctx, time.Since(start))
	}
	return label
}

// noteUnknownCase records a resolved label that had no knowledge-base entry.
// The record path must never affect the response.
func (s *Service) noteUnknownCase(ctx context.Context, result DiagnosisResult, evidences []Evidence) {
	if s.metrics != nil {
		s.metrics.RecordLookupMiss(ctx)
	}
	s.logger.Warn("disease label missing from knowledge base",
		"label", result.FinalLabel,
		"normalized", knowledge.NormalizeKey(result.FinalLabel),
		"source", result.Source)

	if s.unknownLog == nil {
		return
	}
	entry := unknownlog.Entry{
		DiseaseKey:    result.FinalLabel,
		NormalizedKey: knowledge.NormalizeKey(result.FinalLabel),
		Timestamp:     time.Now().UTC(),
	}
	for _, ev := range evidences {
		if ev.Source == result.Source && ev.Confidence != nil {
			c := *ev.Confidence
			entry.Confidence = &c
			break
		}
	}
	s.unknownLog.Record(entry)
}

// recordProviderCall instruments one collaborator round trip: its latency
// histogram, the request counter partitioned by status, and the error counter
// on failure.
func (s *Service) recordProviderCall(ctx context.Context, kind string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	d := time.Since(start)
	switch kind {
	case "vision":
		s.metrics.ObserveVision(ctx, d)
	case "stt":
		s.metrics.ObserveTranscribe(ctx, d)
	}
	if err != nil {
		s.metrics.RecordProviderRequest(ctx, kind, "error")
		s.metrics.RecordProviderError(ctx, kind)
		return
	}
	s.metrics.RecordProviderRequest(ctx, kind, "ok")
}

// messageFor renders the non-empty user message required for every terminal
// state.
func messageFor(result DiagnosisResult, record *knowledge.TreatmentRecord) string {
	switch result.State {
	case StateResolved:
		name := strings.ReplaceAll(result.FinalLabel, "_", " ")
		if record != nil {
			name = record.DiseaseName
		}
		switch result.Level {
		case LevelHigh:
			return fmt.Sprintf("Diagnosis: %s (high confidence, %s analysis).", name, result.Source)
		case LevelModerate:
			return fmt.Sprintf("Probable diagnosis: %s (moderate confidence, %s analysis). Consider confirming with another photo.", name, result.Source)
		default:
			return fmt.Sprintf("Diagnosis: %s (matched from your %s description).", name, result.Source)
		}
	case StateUncertain:
		return "The photo could not be identified with enough confidence. Try a clearer, well-lit close-up of an affected leaf."
	case StateNoMatch:
		return "No clear match for the described symptoms. Try rephrasing, adding detail, or attaching a photo."
	default:
		return "Awaiting input. Provide a leaf photo, a voice note, or a written description of the symptoms."
	}
}
