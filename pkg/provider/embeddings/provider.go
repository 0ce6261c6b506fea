// Package embeddings defines the Provider interface for text embedding
// backends. Embeddings feed the optional semantic symptom index in the
// knowledge store; nothing in the deterministic diagnosis path depends on
// them.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text embedding backend.
type Provider interface {
	// Embed returns the embedding vector for text. The vector dimension is
	// fixed per configured model and must match the dimension the semantic
	// index was created with.
	Embed(ctx context.Context, text string) ([]float32, error)
}
