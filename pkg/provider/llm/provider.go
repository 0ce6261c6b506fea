// Package llm defines the Provider interface for chat-completion backends.
//
// leafdoc uses an LLM in exactly one place: the assistant's fallback symptom
// classifier, which asks the model to pick a disease key from the knowledge
// base's label list when deterministic keyword matching finds nothing. The
// interface is therefore deliberately small — a single non-streaming
// completion call. Tool calling, token accounting, and streaming belong to
// richer hosts and are not modelled here.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Message represents a single message in a conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest carries everything the model needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history. The last message is
	// typically from the "user" role and drives the response.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation history.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. 0.0 requests
	// greedy decoding — the right choice for classification prompts.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the model's reply to a CompletionRequest.
type CompletionResponse struct {
	// Content is the generated text.
	Content string
}

// Provider is the abstraction over any chat-completion backend.
type Provider interface {
	// Complete performs a single blocking completion.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
