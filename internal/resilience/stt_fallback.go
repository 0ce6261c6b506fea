package resilience

import (
	"context"

	"github.com/verdantlabs/leafdoc/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// speech-to-text backends. Each backend has its own circuit breaker.
//
// The typical chain is a local whisper.cpp instance as the primary with a
// hosted API as the fallback, so transcription keeps working when the local
// model is unavailable.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe converts the audio clip to text using the first healthy provider.
// An empty transcript with a nil error is a success (silence), not a reason to
// fail over.
func (f *STTFallback) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return ExecuteWithResult(f.group, func(p stt.Provider) (string, error) {
		return p.Transcribe(ctx, audio)
	})
}
