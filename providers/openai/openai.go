// Package openai adapts llmkit's provider-agnostic Request/Response/Stream
// contract to OpenAI-style chat-completion APIs (OpenAI itself and any
// OpenAI-compatible endpoint).
//
// Grounded on the teacher's pkg/providers/openai/language_model.go:
// LanguageModel{provider,modelID}, buildRequestBody, convertResponse, and an
// SSE-backed stream wrapper. The teacher's stream wrapper carried a
// "// TODO: Handle streaming tool calls" that was never implemented; this
// adapter implements real index-keyed tool-call delta assembly, matching
// what spec.md's invariants require of every streaming backend.
package openai

import (
	"context"
	"encoding/json"
	"io"

	"github.com/llmkit-go/llmkit/llmkiterr"
	"github.com/llmkit-go/llmkit/provider"
	"github.com/llmkit-go/llmkit/providers/wire"
	"github.com/llmkit-go/llmkit/streamevent"
	"github.com/llmkit-go/llmkit/transport"
)

// imageCapableModels lists model-ID substrings known to accept image input,
// grounded on the teacher's hardcoded SupportsImageInput list.
var imageCapableModels = []string{"gpt-4o", "gpt-4-turbo", "gpt-4-vision", "o1", "o3", "gpt-5"}

// Provider constructs openai Models bound to a transport.Client.
type Provider struct {
	client *transport.Client
}

// New builds a Provider pointed at baseURL (e.g. "https://api.openai.com/v1")
// with apiKey sent as a Bearer token.
func New(baseURL, apiKey string) *Provider {
	c := transport.NewClient(transport.Config{BaseURL: baseURL})
	c.SetHeader("Authorization", "Bearer "+apiKey)
	return &Provider{client: c}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) LanguageModel(modelID string) (provider.Model, error) {
	return &LanguageModel{client: p.client, modelID: modelID}, nil
}

// LanguageModel is one OpenAI-style chat-completion model bound to a
// transport.Client.
type LanguageModel struct {
	client  *transport.Client
	modelID string
}

func (m *LanguageModel) Name() string    { return "openai" }
func (m *LanguageModel) ModelID() string { return m.modelID }

func (m *LanguageModel) Capabilities() provider.Capabilities {
	caps := provider.Capabilities{SupportsTools: true, SupportsStructuredOutput: true, SupportsStreaming: true}
	for _, prefix := range imageCapableModels {
		if containsFold(m.modelID, prefix) {
			caps.SupportsImageInput = true
			break
		}
	}
	return caps
}

func containsFold(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if equalFold(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type requestBody struct {
	Model            string          `json:"model"`
	Messages         []chatMessage   `json:"messages"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	MaxTokens        *int            `json:"max_tokens,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	Seed             *int64          `json:"seed,omitempty"`
	Tools            []toolSchema    `json:"tools,omitempty"`
	ToolChoice       any             `json:"tool_choice,omitempty"`
	ResponseFormat   *responseFormat `json:"response_format,omitempty"`
	Stream           bool            `json:"stream,omitempty"`
}

type toolSchema struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters,omitempty"`
	} `json:"function"`
}

type responseFormat struct {
	Type       string `json:"type"`
	JSONSchema *struct {
		Name   string         `json:"name"`
		Schema map[string]any `json:"schema"`
		Strict bool           `json:"strict,omitempty"`
	} `json:"json_schema,omitempty"`
}

func buildRequestBody(req provider.Request, stream bool) requestBody {
	body := requestBody{Model: req.Model, Stream: stream}

	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, toChatMessage(m))
	}

	body.Temperature = req.Parameters.Temperature
	body.TopP = req.Parameters.TopP
	body.MaxTokens = req.Parameters.MaxTokens
	body.Stop = req.Parameters.StopSequences
	body.PresencePenalty = req.Parameters.PresencePenalty
	body.FrequencyPenalty = req.Parameters.FrequencyPenalty
	body.Seed = req.Parameters.Seed

	for _, t := range req.Tools {
		var ts toolSchema
		ts.Type = "function"
		ts.Function.Name = t.Name
		ts.Function.Description = t.Description
		ts.Function.Parameters = t.Parameters
		body.Tools = append(body.Tools, ts)
	}
	if req.ToolChoice != nil {
		switch req.ToolChoice.Mode {
		case "none", "auto", "required":
			body.ToolChoice = req.ToolChoice.Mode
		default:
			if req.ToolChoice.Name != "" {
				body.ToolChoice = map[string]any{
					"type":     "function",
					"function": map[string]string{"name": req.ToolChoice.Name},
				}
			}
		}
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_schema" {
		body.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &struct {
				Name   string         `json:"name"`
				Schema map[string]any `json:"schema"`
				Strict bool           `json:"strict,omitempty"`
			}{Name: req.ResponseFormat.Name, Schema: req.ResponseFormat.Schema, Strict: req.ResponseFormat.Strict},
		}
	}

	return body
}

func toChatMessage(m provider.Message) chatMessage {
	cm := chatMessage{Role: string(m.Role), Name: m.Name, ToolCallID: m.ToolCallID}
	if tc, ok := m.Content.(provider.TextContent); ok {
		cm.Content = tc.Text
	}
	return cm
}

type apiResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []toolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func mapFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "stop":
		return provider.FinishStop
	case "length":
		return provider.FinishLength
	case "tool_calls", "function_call":
		return provider.FinishToolCalls
	case "content_filter":
		return provider.FinishContentFilter
	default:
		return provider.FinishUnknown
	}
}

func (m *LanguageModel) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	body := buildRequestBody(req, false)
	var resp apiResponse
	if err := m.client.PostJSON(ctx, "/chat/completions", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, llmkiterr.NewProvider("openai", 0, nil, "response contained no choices")
	}
	choice := resp.Choices[0]

	var toolCalls []provider.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, provider.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}

	return &provider.Response{
		Text:         choice.Message.Content,
		ToolCalls:    toolCalls,
		FinishReason: mapFinishReason(choice.FinishReason),
		Usage: provider.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Metadata: provider.ResponseMetadata{ProviderName: "openai", ModelID: m.modelID},
	}, nil
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openaiStream struct {
	parser *wire.SSEParser
	closer func() error
	done   bool
}

func (m *LanguageModel) Stream(ctx context.Context, req provider.Request) (streamevent.Stream, error) {
	body := buildRequestBody(req, true)
	httpResp, err := m.client.DoStream(ctx, transport.Request{Method: "POST", Path: "/chat/completions", Body: body})
	if err != nil {
		return nil, err
	}
	return &openaiStream{parser: wire.NewSSEParser(httpResp.Body), closer: httpResp.Body.Close}, nil
}

func (s *openaiStream) Next() (*streamevent.Event, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		ev, err := s.parser.Next()
		if err != nil {
			return nil, err
		}
		if wire.IsStreamDone(ev) {
			s.done = true
			return &streamevent.Event{Kind: streamevent.KindDone}, nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return nil, llmkiterr.NewSerialization(err, "decode openai stream chunk")
		}
		if len(chunk.Choices) == 0 {
			if chunk.Usage != nil {
				return &streamevent.Event{Kind: streamevent.KindMetadata, Metadata: map[string]any{
					"prompt_tokens":     chunk.Usage.PromptTokens,
					"completion_tokens": chunk.Usage.CompletionTokens,
					"total_tokens":      chunk.Usage.TotalTokens,
				}}, nil
			}
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			return &streamevent.Event{Kind: streamevent.KindTextDelta, TextDelta: choice.Delta.Content}, nil
		}
		if len(choice.Delta.ToolCalls) > 0 {
			tc := choice.Delta.ToolCalls[0]
			return &streamevent.Event{Kind: streamevent.KindToolCallDelta, ToolCall: streamevent.ToolCallDelta{
				Index:          tc.Index,
				ID:             tc.ID,
				Name:           tc.Function.Name,
				ArgumentsDelta: tc.Function.Arguments,
			}}, nil
		}
		if choice.FinishReason != "" {
			return &streamevent.Event{Kind: streamevent.KindMetadata, Metadata: map[string]any{
				"finish_reason": string(mapFinishReason(choice.FinishReason)),
			}}, nil
		}
		// Empty delta (e.g. the role-only first chunk); keep reading.
	}
}

func (s *openaiStream) Close() error {
	return s.closer()
}
