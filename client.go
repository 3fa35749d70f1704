// Package llmkit is the high-level, provider-agnostic chat-completion
// client: a stateless Client, a Stateful wrapper that persists conversation
// turns through a convstate.Store, and a Parallel wrapper that fans a
// request out across several models with a combination strategy.
package llmkit

import (
	"context"

	"github.com/llmkit-go/llmkit/middleware"
	"github.com/llmkit-go/llmkit/provider"
	"github.com/llmkit-go/llmkit/streamevent"
	"github.com/llmkit-go/llmkit/telemetry"
)

// Client performs chat completions against one bound provider.Model,
// through an optional middleware stack.
type Client struct {
	model     provider.Model
	generate  middleware.GenerateService
	stream    middleware.StreamService
	telemetry *telemetry.Settings
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithGenerateLayers installs layers around the non-streaming path,
// outermost first (matching middleware.Stack's composition order).
func WithGenerateLayers(layers ...middleware.GenerateLayer) Option {
	return func(c *Client) {
		c.generate = middleware.Stack[provider.Request, *provider.Response](c.generate, layers...)
	}
}

// WithStreamLayers installs layers around the streaming path.
func WithStreamLayers(layers ...middleware.StreamLayer) Option {
	return func(c *Client) {
		c.stream = middleware.Stack[provider.Request, streamevent.Stream](c.stream, layers...)
	}
}

// WithTelemetry enables span-per-call tracing.
func WithTelemetry(s *telemetry.Settings) Option {
	return func(c *Client) { c.telemetry = s }
}

// New builds a Client bound to model.
func New(model provider.Model, opts ...Option) *Client {
	leaf := middleware.ModelService{Model: model}
	c := &Client{model: model, generate: leaf.Generate(), stream: leaf.Stream()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat performs a single non-streaming completion.
func (c *Client) Chat(ctx context.Context, req provider.Request) (*provider.Response, error) {
	ctx, span := telemetry.StartGenerateSpan(ctx, c.telemetry, req.Model)
	resp, err := c.generate.Handle(ctx, req)
	telemetry.EndSpan(span, err)
	return resp, err
}

// StreamChat performs a streaming completion. The caller must Close the
// returned Stream.
func (c *Client) StreamChat(ctx context.Context, req provider.Request) (streamevent.Stream, error) {
	return c.stream.Handle(ctx, req)
}

// Model returns the underlying bound model, e.g. for Capabilities checks.
func (c *Client) Model() provider.Model {
	return c.model
}
