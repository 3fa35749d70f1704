package provider

import (
	"context"

	"github.com/llmkit-go/llmkit/streamevent"
)

// Model is a single backend-bound chat-completion model. Implementations
// live under providers/openai, providers/anthropic, providers/ollama, and
// providers/mock.
type Model interface {
	// Name identifies the backend family, e.g. "openai", "anthropic", "ollama".
	Name() string

	// ModelID is the concrete model identifier this instance is bound to.
	ModelID() string

	// Capabilities reports what this model supports without a round trip.
	Capabilities() Capabilities

	// Generate performs a single non-streaming chat completion.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Stream performs a streaming chat completion. The returned Stream must
	// be closed by the caller.
	Stream(ctx context.Context, req Request) (streamevent.Stream, error)
}

// Provider constructs Models by model ID for one backend family.
type Provider interface {
	Name() string
	LanguageModel(modelID string) (Model, error)
}
