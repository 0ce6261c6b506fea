// Package mock provides a configurable in-memory embeddings.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/verdantlabs/leafdoc/pkg/provider/embeddings"
)

// Compile-time assertion that Provider implements embeddings.Provider.
var _ embeddings.Provider = (*Provider)(nil)

// Provider is a mock embeddings provider. Configure either the static Vector
// and Err fields or an EmbedFunc for per-call behaviour. Safe for concurrent
// use.
type Provider struct {
	mu sync.Mutex

	// Vector is returned by Embed when EmbedFunc is nil.
	Vector []float32

	// Err is returned by Embed when EmbedFunc is nil.
	Err error

	// EmbedFunc, when set, handles calls entirely.
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	// Texts records every input received, in order.
	Texts []string
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.Texts = append(p.Texts, text)
	fn := p.EmbedFunc
	vec, err := p.Vector, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	return vec, err
}
