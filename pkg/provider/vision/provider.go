// Package vision defines the Provider interface for image classification
// backends.
//
// A vision provider wraps a trained leaf-disease classification model served
// by an external inference process (e.g., a TorchServe instance) and exposes
// a single batch call: hand over the raw image bytes, receive the top label
// and its softmax confidence. The model itself — architecture, weights,
// preprocessing — is entirely the collaborator's concern.
//
// Implementations must be safe for concurrent use.
package vision

import "context"

// Prediction is the top-1 classification result for one image.
type Prediction struct {
	// Label is the predicted disease class (e.g., "Tomato___Late_blight").
	// An empty label means the model produced no usable prediction; callers
	// treat this as "no evidence from this channel", not as an error.
	Label string

	// Confidence is the softmax probability of Label in [0, 1].
	Confidence float64
}

// Provider is the abstraction over any image classification backend.
type Provider interface {
	// Classify runs inference on the given encoded image (JPEG or PNG bytes)
	// and returns the top prediction.
	//
	// Returns an error when the backend is unreachable or rejects the input;
	// such errors are collaborator failures and must be surfaced to the
	// caller rather than mapped to an "Unknown" diagnosis.
	Classify(ctx context.Context, image []byte) (Prediction, error)
}
