// Package mock provides a configurable in-memory vision.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/verdantlabs/leafdoc/pkg/provider/vision"
)

// Compile-time assertion that Provider implements vision.Provider.
var _ vision.Provider = (*Provider)(nil)

// Provider is a mock vision provider. Configure either the static Prediction
// and Err fields or a ClassifyFunc for per-call behaviour. Safe for
// concurrent use.
type Provider struct {
	mu sync.Mutex

	// Prediction is returned by Classify when ClassifyFunc is nil.
	Prediction vision.Prediction

	// Err is returned by Classify when ClassifyFunc is nil.
	Err error

	// ClassifyFunc, when set, handles calls entirely.
	ClassifyFunc func(ctx context.Context, image []byte) (vision.Prediction, error)

	// Calls counts Classify invocations.
	Calls int
}

// Classify implements vision.Provider.
func (p *Provider) Classify(ctx context.Context, image []byte) (vision.Prediction, error) {
	p.mu.Lock()
	p.Calls++
	fn := p.ClassifyFunc
	pred, err := p.Prediction, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, image)
	}
	return pred, err
}
