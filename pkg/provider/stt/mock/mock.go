// Package mock provides a configurable in-memory stt.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/verdantlabs/leafdoc/pkg/provider/stt"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider is a mock speech-to-text provider. Configure either the static
// Text and Err fields or a TranscribeFunc for per-call behaviour. Safe for
// concurrent use.
type Provider struct {
	mu sync.Mutex

	// Text is returned by Transcribe when TranscribeFunc is nil.
	Text string

	// Err is returned by Transcribe when TranscribeFunc is nil.
	Err error

	// TranscribeFunc, when set, handles calls entirely.
	TranscribeFunc func(ctx context.Context, audio []byte) (string, error)

	// Calls counts Transcribe invocations.
	Calls int
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, audio []byte) (string, error) {
	p.mu.Lock()
	p.Calls++
	fn := p.TranscribeFunc
	text, err := p.Text, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, audio)
	}
	return text, err
}
