package resilience

import (
	"context"

	"github.com/verdantlabs/leafdoc/pkg/provider/vision"
)

// VisionFallback implements [vision.Provider] with automatic failover across
// multiple image classification backends, e.g. two TorchServe replicas or a
// local instance backed by a remote one. Each backend has its own circuit
// breaker.
type VisionFallback struct {
	group *FallbackGroup[vision.Provider]
}

// Compile-time interface assertion.
var _ vision.Provider = (*VisionFallback)(nil)

// NewVisionFallback creates a [VisionFallback] with primary as the preferred
// backend.
func NewVisionFallback(primary vision.Provider, primaryName string, cfg FallbackConfig) *VisionFallback {
	return &VisionFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional vision provider as a fallback.
func (f *VisionFallback) AddFallback(name string, provider vision.Provider) {
	f.group.AddFallback(name, provider)
}

// Classify runs inference using the first healthy provider. A prediction with
// an empty label is a valid model answer and does not trigger failover.
func (f *VisionFallback) Classify(ctx context.Context, image []byte) (vision.Prediction, error) {
	return ExecuteWithResult(f.group, func(p vision.Provider) (vision.Prediction, error) {
		return p.Classify(ctx, image)
	})
}
