// Package stt defines the Provider interface for speech-to-text backends.
//
// Voice input reaches leafdoc as short recorded clips (a farmer describing
// symptoms), not as a live stream, so the interface is a single batch call:
// hand over the audio clip, receive the transcript. Streaming recognition,
// partial results, and vocabulary boosting are implementation concerns that
// no caller in this system needs.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Provider is the abstraction over any speech-to-text backend.
type Provider interface {
	// Transcribe converts a complete audio clip to text. The accepted audio
	// encoding is implementation-specific (see each provider's documentation);
	// the whisper providers expect 16-bit little-endian PCM at 16 kHz mono,
	// optionally wrapped in a WAV header.
	//
	// An empty transcript with a nil error means the clip contained no
	// recognisable speech; callers treat this as "no evidence from this
	// channel". A non-nil error is a collaborator failure and must be
	// propagated, not mapped to a diagnosis.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
