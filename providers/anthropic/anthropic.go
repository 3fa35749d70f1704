// Package anthropic adapts llmkit's contract to Anthropic's Messages API:
// a distinct system field (outside the messages array), named SSE events
// instead of OpenAI's uniform "data:" deltas, and no native response_format
// — structured output is obtained by forcing a single synthetic tool call.
//
// Grounded on the teacher's pkg/providers/anthropic/language_model.go
// (model-ID substring capability checks, beta-header handling) and
// pkg/providerutils/prompt/converter.go's ExtractSystemMessage.
package anthropic

import (
	"context"
	"encoding/json"

	"github.com/llmkit-go/llmkit/llmkiterr"
	"github.com/llmkit-go/llmkit/provider"
	"github.com/llmkit-go/llmkit/providers/wire"
	"github.com/llmkit-go/llmkit/streamevent"
	"github.com/llmkit-go/llmkit/transport"
)

// structuredOutputToolName is the synthetic tool forced on the model to
// obtain JSON-Schema-shaped output, since Anthropic has no response_format.
const structuredOutputToolName = "structured_output"

var claudeStructuredOutputModels = []string{"claude-3-5", "claude-3-7", "claude-opus-4", "claude-sonnet-4"}

type Provider struct {
	client *transport.Client
}

func New(baseURL, apiKey, version string) *Provider {
	c := transport.NewClient(transport.Config{BaseURL: baseURL})
	c.SetHeader("x-api-key", apiKey)
	c.SetHeader("anthropic-version", version)
	return &Provider{client: c}
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) LanguageModel(modelID string) (provider.Model, error) {
	return &LanguageModel{client: p.client, modelID: modelID}, nil
}

type LanguageModel struct {
	client  *transport.Client
	modelID string
}

func (m *LanguageModel) Name() string    { return "anthropic" }
func (m *LanguageModel) ModelID() string { return m.modelID }

func (m *LanguageModel) Capabilities() provider.Capabilities {
	caps := provider.Capabilities{SupportsTools: true, SupportsImageInput: true, SupportsStreaming: true}
	for _, prefix := range claudeStructuredOutputModels {
		if len(m.modelID) >= len(prefix) && m.modelID[:len(prefix)] == prefix {
			caps.SupportsStructuredOutput = true
			break
		}
	}
	return caps
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

type requestBody struct {
	Model         string              `json:"model"`
	System        string              `json:"system,omitempty"`
	Messages      []anthropicMessage  `json:"messages"`
	MaxTokens     int                 `json:"max_tokens"`
	Temperature   *float64            `json:"temperature,omitempty"`
	TopP          *float64            `json:"top_p,omitempty"`
	TopK          *int                `json:"top_k,omitempty"`
	StopSequences []string            `json:"stop_sequences,omitempty"`
	Tools         []anthropicTool     `json:"tools,omitempty"`
	ToolChoice    any                 `json:"tool_choice,omitempty"`
	Stream        bool                `json:"stream,omitempty"`
}

// buildRequestBody extracts the system prompt (Anthropic carries it outside
// the messages array) and, when req.ResponseFormat requests JSON-Schema
// output, substitutes a forced synthetic tool since Anthropic has no native
// response_format. warn reports whether that substitution happened, so the
// caller can surface a Warning on the Response.
func buildRequestBody(req provider.Request, stream bool) (body requestBody, warn bool) {
	body.Model = req.Model
	body.System = req.System
	body.Stream = stream

	maxTokens := 4096
	if req.Parameters.MaxTokens != nil {
		maxTokens = *req.Parameters.MaxTokens
	}
	body.MaxTokens = maxTokens
	body.Temperature = req.Parameters.Temperature
	body.TopP = req.Parameters.TopP
	body.TopK = req.Parameters.TopK
	body.StopSequences = req.Parameters.StopSequences

	for _, m := range req.Messages {
		body.Messages = append(body.Messages, toAnthropicMessage(m))
	}

	for _, t := range req.Tools {
		body.Tools = append(body.Tools, anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters})
	}

	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_schema" {
		body.Tools = append(body.Tools, anthropicTool{
			Name:        structuredOutputToolName,
			Description: "Return the final answer matching the required schema.",
			InputSchema: req.ResponseFormat.Schema,
		})
		body.ToolChoice = map[string]string{"type": "tool", "name": structuredOutputToolName}
		warn = true
		return body, warn
	}

	if req.ToolChoice != nil {
		switch req.ToolChoice.Mode {
		case "none":
			body.ToolChoice = map[string]string{"type": "none"}
		case "required":
			body.ToolChoice = map[string]string{"type": "any"}
		case "auto":
			body.ToolChoice = map[string]string{"type": "auto"}
		default:
			if req.ToolChoice.Name != "" {
				body.ToolChoice = map[string]string{"type": "tool", "name": req.ToolChoice.Name}
			}
		}
	}
	return body, warn
}

func toAnthropicMessage(m provider.Message) anthropicMessage {
	role := string(m.Role)
	if m.Role == provider.RoleTool {
		return anthropicMessage{Role: "user", Content: []anthropicContentBlock{{
			Type: "tool_result", ToolUseID: m.ToolCallID, Content: textOf(m.Content),
		}}}
	}
	return anthropicMessage{Role: role, Content: []anthropicContentBlock{{Type: "text", Text: textOf(m.Content)}}}
}

func textOf(c provider.Content) string {
	if tc, ok := c.(provider.TextContent); ok {
		return tc.Text
	}
	return ""
}

type apiResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func mapStopReason(reason string) provider.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return provider.FinishStop
	case "max_tokens":
		return provider.FinishLength
	case "tool_use":
		return provider.FinishToolCalls
	default:
		return provider.FinishUnknown
	}
}

func (m *LanguageModel) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	body, forcedStructured := buildRequestBody(req, false)

	var resp apiResponse
	if err := m.client.PostJSON(ctx, "/messages", body, &resp); err != nil {
		return nil, err
	}

	result := &provider.Response{
		FinishReason: mapStopReason(resp.StopReason),
		Usage: provider.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Metadata: provider.ResponseMetadata{ProviderName: "anthropic", ModelID: m.modelID},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.Text += block.Text
		case "tool_use":
			if forcedStructured && block.Name == structuredOutputToolName {
				raw, err := json.Marshal(block.Input)
				if err != nil {
					return nil, llmkiterr.NewSerialization(err, "marshal structured output tool input")
				}
				result.Text = string(raw)
				result.Warnings = append(result.Warnings, provider.Warning{
					Code:    "structured_output_via_tool",
					Message: "anthropic has no native response_format; output was obtained via a forced synthetic tool call",
				})
				continue
			}
			result.ToolCalls = append(result.ToolCalls, provider.ToolCall{ID: block.ID, Name: block.Name, Arguments: mustJSON(block.Input)})
		}
	}

	return result, nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

type sseMessageStart struct {
	Message struct {
		ID    string `json:"id"`
		Model string `json:"model"`
	} `json:"message"`
}

type sseError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type sseMessageDelta struct {
	Delta struct {
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type sseContentBlockStart struct {
	Index        int                   `json:"index"`
	ContentBlock anthropicContentBlock `json:"content_block"`
}

type sseContentBlockDelta struct {
	Index int `json:"index"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
}

type anthropicStream struct {
	parser           *wire.SSEParser
	closer           func() error
	forcedStructured bool
	toolNameByIndex  map[int]string
}

func (m *LanguageModel) Stream(ctx context.Context, req provider.Request) (streamevent.Stream, error) {
	body, forcedStructured := buildRequestBody(req, true)
	httpResp, err := m.client.DoStream(ctx, transport.Request{Method: "POST", Path: "/messages", Body: body})
	if err != nil {
		return nil, err
	}
	return &anthropicStream{
		parser:           wire.NewSSEParser(httpResp.Body),
		closer:           httpResp.Body.Close,
		forcedStructured: forcedStructured,
		toolNameByIndex:  map[int]string{},
	}, nil
}

func (s *anthropicStream) Next() (*streamevent.Event, error) {
	for {
		ev, err := s.parser.Next()
		if err != nil {
			return nil, err
		}

		switch ev.Event {
		case "message_start":
			var start sseMessageStart
			if err := json.Unmarshal([]byte(ev.Data), &start); err != nil {
				return nil, llmkiterr.NewSerialization(err, "decode anthropic message_start")
			}
			return &streamevent.Event{Kind: streamevent.KindMetadata, Metadata: map[string]any{
				"id": start.Message.ID, "model": start.Message.Model,
			}}, nil

		case "error":
			var se sseError
			if err := json.Unmarshal([]byte(ev.Data), &se); err != nil {
				return nil, llmkiterr.NewSerialization(err, "decode anthropic error event")
			}
			return nil, llmkiterr.NewProvider("anthropic", 0, nil, "stream error: %s: %s", se.Error.Type, se.Error.Message)

		case "content_block_start":
			var start sseContentBlockStart
			if err := json.Unmarshal([]byte(ev.Data), &start); err != nil {
				return nil, llmkiterr.NewSerialization(err, "decode anthropic content_block_start")
			}
			if start.ContentBlock.Type == "tool_use" {
				s.toolNameByIndex[start.Index] = start.ContentBlock.Name
				return &streamevent.Event{Kind: streamevent.KindToolCallDelta, ToolCall: streamevent.ToolCallDelta{
					Index: start.Index, ID: start.ContentBlock.ID, Name: start.ContentBlock.Name,
				}}, nil
			}
			continue

		case "content_block_delta":
			var delta sseContentBlockDelta
			if err := json.Unmarshal([]byte(ev.Data), &delta); err != nil {
				return nil, llmkiterr.NewSerialization(err, "decode anthropic content_block_delta")
			}
			if delta.Delta.Type == "text_delta" {
				return &streamevent.Event{Kind: streamevent.KindTextDelta, TextDelta: delta.Delta.Text}, nil
			}
			if delta.Delta.Type == "input_json_delta" {
				return &streamevent.Event{Kind: streamevent.KindToolCallDelta, ToolCall: streamevent.ToolCallDelta{
					Index: delta.Index, ArgumentsDelta: delta.Delta.PartialJSON,
				}}, nil
			}
			continue

		case "message_delta":
			var md sseMessageDelta
			if err := json.Unmarshal([]byte(ev.Data), &md); err != nil {
				return nil, llmkiterr.NewSerialization(err, "decode anthropic message_delta")
			}
			return &streamevent.Event{Kind: streamevent.KindMetadata, Metadata: map[string]any{
				"finish_reason":     string(mapStopReason(md.Delta.StopReason)),
				"completion_tokens": md.Usage.OutputTokens,
			}}, nil

		case "message_stop":
			return &streamevent.Event{Kind: streamevent.KindDone}, nil

		default:
			// content_block_stop, ping: no information the accumulator needs.
			continue
		}
	}
}

func (s *anthropicStream) Close() error {
	return s.closer()
}
