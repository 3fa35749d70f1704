// Package request provides a fluent builder for provider.Request, grounded
// on the teacher's pkg/ai/generate.go options-struct style (GenerateOptions
// assembled field by field before a single call), simplified to a chained
// builder with an explicit validating Build step.
package request

import (
	"github.com/llmkit-go/llmkit/llmkiterr"
	"github.com/llmkit-go/llmkit/provider"
)

// reservedToolNames are the synthetic tool names reserved for structured
// output (§4.7): the Anthropic adapter forces "structured_output", and
// "json_output" is reserved alongside it. Callers may not define tools under
// these names, since the adapter couldn't tell which one produced a given
// tool-use block.
var reservedToolNames = map[string]bool{
	"structured_output": true,
	"json_output":       true,
}

// Builder assembles a provider.Request incrementally.
type Builder struct {
	req provider.Request
	err error
}

// New starts a Builder for modelID.
func New(modelID string) *Builder {
	return &Builder{req: provider.Request{Model: modelID}}
}

func (b *Builder) System(prompt string) *Builder {
	b.req.System = prompt
	return b
}

func (b *Builder) AddMessage(m provider.Message) *Builder {
	b.req.Messages = append(b.req.Messages, m)
	return b
}

func (b *Builder) UserText(text string) *Builder {
	return b.AddMessage(provider.Message{Role: provider.RoleUser, Content: provider.TextContent{Text: text}})
}

func (b *Builder) AssistantText(text string) *Builder {
	return b.AddMessage(provider.Message{Role: provider.RoleAssistant, Content: provider.TextContent{Text: text}})
}

func (b *Builder) Tools(tools ...provider.Tool) *Builder {
	b.req.Tools = append(b.req.Tools, tools...)
	return b
}

func (b *Builder) ToolChoice(choice provider.ToolChoice) *Builder {
	b.req.ToolChoice = &choice
	return b
}

func (b *Builder) ResponseFormat(f provider.ResponseFormat) *Builder {
	b.req.ResponseFormat = &f
	return b
}

func (b *Builder) Temperature(v float64) *Builder {
	b.req.Parameters.Temperature = &v
	return b
}

func (b *Builder) TopP(v float64) *Builder {
	b.req.Parameters.TopP = &v
	return b
}

func (b *Builder) MaxTokens(v int) *Builder {
	b.req.Parameters.MaxTokens = &v
	return b
}

func (b *Builder) StopSequences(stops ...string) *Builder {
	b.req.Parameters.StopSequences = stops
	return b
}

func (b *Builder) Seed(v int64) *Builder {
	b.req.Parameters.Seed = &v
	return b
}

func (b *Builder) Header(key, value string) *Builder {
	if b.req.Headers == nil {
		b.req.Headers = map[string]string{}
	}
	b.req.Headers[key] = value
	return b
}

// Build validates the accumulated request and returns it, or the first
// validation error recorded.
func (b *Builder) Build() (provider.Request, error) {
	if b.req.Model == "" {
		return provider.Request{}, llmkiterr.NewInvalidRequest("model", "model ID is required")
	}
	if len(b.req.Messages) == 0 {
		return provider.Request{}, llmkiterr.NewInvalidRequest("messages", "at least one message is required")
	}
	if b.req.ToolChoice != nil && b.req.ToolChoice.Mode == "required" && len(b.req.Tools) == 0 {
		return provider.Request{}, llmkiterr.NewInvalidRequest("tools", "tool_choice=required but no tools were provided")
	}

	seenToolNames := make(map[string]bool, len(b.req.Tools))
	for _, tool := range b.req.Tools {
		if reservedToolNames[tool.Name] {
			return provider.Request{}, llmkiterr.NewInvalidRequest("tools", "tool name %q is reserved for structured-output emulation", tool.Name)
		}
		if seenToolNames[tool.Name] {
			return provider.Request{}, llmkiterr.NewInvalidRequest("tools", "duplicate tool name %q", tool.Name)
		}
		seenToolNames[tool.Name] = true
	}

	if p := b.req.Parameters; p.MaxTokens != nil && *p.MaxTokens == 0 {
		return provider.Request{}, llmkiterr.NewInvalidRequest("max_tokens", "max_tokens must be greater than 0")
	}
	if p := b.req.Parameters; p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
		return provider.Request{}, llmkiterr.NewInvalidRequest("temperature", "temperature %v is out of range [0, 2]", *p.Temperature)
	}
	if p := b.req.Parameters; p.TopP != nil && (*p.TopP < 0 || *p.TopP > 1) {
		return provider.Request{}, llmkiterr.NewInvalidRequest("top_p", "top_p %v is out of range [0, 1]", *p.TopP)
	}

	return b.req, nil
}
