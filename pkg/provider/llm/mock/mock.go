// Package mock provides a configurable in-memory llm.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/verdantlabs/leafdoc/pkg/provider/llm"
)

// Compile-time assertion that Provider implements llm.Provider.
var _ llm.Provider = (*Provider)(nil)

// Provider is a mock chat-completion provider. Configure either the static
// Content and Err fields or a CompleteFunc for per-call behaviour. Safe for
// concurrent use.
type Provider struct {
	mu sync.Mutex

	// Content is returned by Complete when CompleteFunc is nil.
	Content string

	// Err is returned by Complete when CompleteFunc is nil.
	Err error

	// CompleteFunc, when set, handles calls entirely.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// Requests records every request received, in order.
	Requests []llm.CompletionRequest
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.Requests = append(p.Requests, req)
	fn := p.CompleteFunc
	content, err := p.Content, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Content: content}, nil
}
