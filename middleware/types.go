package middleware

import (
	"context"

	"github.com/llmkit-go/llmkit/provider"
	"github.com/llmkit-go/llmkit/streamevent"
)

// GenerateService handles a non-streaming chat-completion call.
type GenerateService = Service[provider.Request, *provider.Response]

// GenerateLayer wraps a GenerateService.
type GenerateLayer = Layer[provider.Request, *provider.Response]

// StreamService handles a streaming chat-completion call.
type StreamService = Service[provider.Request, streamevent.Stream]

// StreamLayer wraps a StreamService.
type StreamLayer = Layer[provider.Request, streamevent.Stream]

// ModelService adapts a provider.Model to both Generate and Stream
// services, the two leaves every middleware Stack is built around.
type ModelService struct {
	Model provider.Model
}

func (m ModelService) Generate() GenerateService {
	return ServiceFunc[provider.Request, *provider.Response](func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		return m.Model.Generate(ctx, req)
	})
}

func (m ModelService) Stream() StreamService {
	return ServiceFunc[provider.Request, streamevent.Stream](func(ctx context.Context, req provider.Request) (streamevent.Stream, error) {
		return m.Model.Stream(ctx, req)
	})
}
