// Package ollama adapts llmkit's contract to Ollama's native /api/chat
// endpoint, which frames both single-shot and streaming responses as
// newline-delimited JSON (NDJSON), not Server-Sent Events.
//
// The teacher's pkg/providers/ollama/language_model.go piggybacked Ollama on
// an OpenAI-compatible /v1/chat/completions + SSE endpoint instead. This is
// a deliberate redesign: it speaks Ollama's actual wire protocol, while
// keeping the teacher's file-structuring idiom (LanguageModel struct,
// buildRequestBody, a stream wrapper type); the response is converted
// inline in Generate.
package ollama

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/llmkit-go/llmkit/llmkiterr"
	"github.com/llmkit-go/llmkit/provider"
	"github.com/llmkit-go/llmkit/providers/wire"
	"github.com/llmkit-go/llmkit/streamevent"
	"github.com/llmkit-go/llmkit/transport"
)

type Provider struct {
	client *transport.Client
}

// New builds a Provider pointed at an Ollama server's baseURL (e.g.
// "http://localhost:11434").
func New(baseURL string) *Provider {
	return &Provider{client: transport.NewClient(transport.Config{BaseURL: baseURL})}
}

func (p *Provider) Name() string { return "ollama" }

func (p *Provider) LanguageModel(modelID string) (provider.Model, error) {
	return &LanguageModel{client: p.client, modelID: modelID}, nil
}

type LanguageModel struct {
	client  *transport.Client
	modelID string
}

func (m *LanguageModel) Name() string    { return "ollama" }
func (m *LanguageModel) ModelID() string { return m.modelID }

func (m *LanguageModel) Capabilities() provider.Capabilities {
	return provider.Capabilities{SupportsTools: true, SupportsStreaming: true}
}

type chatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type toolSchema struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters,omitempty"`
	} `json:"function"`
}

type options struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`
	NumPredict    *int     `json:"num_predict,omitempty"`
}

type requestBody struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []toolSchema  `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
	Format   map[string]any `json:"format,omitempty"`
}

func buildRequestBody(req provider.Request, stream bool) requestBody {
	body := requestBody{Model: req.Model, Stream: stream}

	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		cm := chatMessage{Role: string(m.Role)}
		if tc, ok := m.Content.(provider.TextContent); ok {
			cm.Content = tc.Text
		}
		body.Messages = append(body.Messages, cm)
	}

	for _, t := range req.Tools {
		var ts toolSchema
		ts.Type = "function"
		ts.Function.Name = t.Name
		ts.Function.Description = t.Description
		ts.Function.Parameters = t.Parameters
		body.Tools = append(body.Tools, ts)
	}

	opts := options{
		Temperature: req.Parameters.Temperature,
		TopP:        req.Parameters.TopP,
		TopK:        req.Parameters.TopK,
		Stop:        req.Parameters.StopSequences,
		Seed:        req.Parameters.Seed,
		NumPredict:  req.Parameters.MaxTokens,
	}
	body.Options = &opts

	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_schema" {
		body.Format = req.ResponseFormat.Schema
	}

	return body
}

type apiMessage struct {
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type apiChatResponse struct {
	Model           string     `json:"model"`
	Message         apiMessage `json:"message"`
	Done            bool       `json:"done"`
	DoneReason      string     `json:"done_reason"`
	PromptEvalCount int        `json:"prompt_eval_count"`
	EvalCount       int        `json:"eval_count"`
}

func mapDoneReason(reason string) provider.FinishReason {
	switch reason {
	case "stop":
		return provider.FinishStop
	case "length":
		return provider.FinishLength
	default:
		return provider.FinishUnknown
	}
}

func (m *LanguageModel) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	body := buildRequestBody(req, false)
	var resp apiChatResponse
	if err := m.client.PostJSON(ctx, "/api/chat", body, &resp); err != nil {
		return nil, err
	}

	var toolCalls []provider.ToolCall
	for i, tc := range resp.Message.ToolCalls {
		args, err := json.Marshal(tc.Function.Arguments)
		if err != nil {
			return nil, llmkiterr.NewSerialization(err, "marshal ollama tool call arguments")
		}
		toolCalls = append(toolCalls, provider.ToolCall{ID: strconv.Itoa(i), Name: tc.Function.Name, Arguments: string(args)})
	}

	finish := mapDoneReason(resp.DoneReason)
	if len(toolCalls) > 0 {
		finish = provider.FinishToolCalls
	}

	return &provider.Response{
		Text:         resp.Message.Content,
		ToolCalls:    toolCalls,
		FinishReason: finish,
		Usage: provider.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
		Metadata: provider.ResponseMetadata{ProviderName: "ollama", ModelID: m.modelID},
	}, nil
}

type ollamaStream struct {
	decoder        *wire.NDJSONDecoder
	closer         func() error
	exhausted      bool
	pendingDone    bool
	modelAnnounced bool
	// queue holds events decoded from one NDJSON line that couldn't all be
	// returned from a single Next() call (e.g. a model-metadata event plus
	// that same line's text, or more than one tool call in the array).
	queue []streamevent.Event
}

func (m *LanguageModel) Stream(ctx context.Context, req provider.Request) (streamevent.Stream, error) {
	body := buildRequestBody(req, true)
	httpResp, err := m.client.DoStream(ctx, transport.Request{Method: "POST", Path: "/api/chat", Body: body})
	if err != nil {
		return nil, err
	}
	return &ollamaStream{decoder: wire.NewNDJSONDecoder(httpResp.Body), closer: httpResp.Body.Close}, nil
}

func (s *ollamaStream) Next() (*streamevent.Event, error) {
	if len(s.queue) > 0 {
		ev := s.queue[0]
		s.queue = s.queue[1:]
		return &ev, nil
	}
	if s.exhausted {
		return nil, io.EOF
	}
	if s.pendingDone {
		s.exhausted = true
		return &streamevent.Event{Kind: streamevent.KindDone}, nil
	}

	var chunk apiChatResponse
	if err := s.decoder.Next(&chunk); err != nil {
		if err == io.EOF {
			s.exhausted = true
			return &streamevent.Event{Kind: streamevent.KindDone}, nil
		}
		return nil, llmkiterr.NewSerialization(err, "decode ollama NDJSON chunk")
	}

	if !s.modelAnnounced && chunk.Model != "" {
		s.modelAnnounced = true
		s.queue = append(s.queue, streamevent.Event{Kind: streamevent.KindMetadata, Metadata: map[string]any{"model": chunk.Model}})
	}

	if chunk.Done {
		s.pendingDone = true
		meta := map[string]any{
			"finish_reason":     string(mapDoneReason(chunk.DoneReason)),
			"prompt_tokens":     chunk.PromptEvalCount,
			"completion_tokens": chunk.EvalCount,
		}
		s.queue = append(s.queue, streamevent.Event{Kind: streamevent.KindMetadata, Metadata: meta})
		return s.Next()
	}

	if chunk.Message.Content != "" {
		s.queue = append(s.queue, streamevent.Event{Kind: streamevent.KindTextDelta, TextDelta: chunk.Message.Content})
	}
	for i, tc := range chunk.Message.ToolCalls {
		args, err := json.Marshal(tc.Function.Arguments)
		if err != nil {
			return nil, llmkiterr.NewSerialization(err, "marshal ollama streamed tool call arguments")
		}
		s.queue = append(s.queue, streamevent.Event{Kind: streamevent.KindToolCallDelta, ToolCall: streamevent.ToolCallDelta{
			Index: i, Name: tc.Function.Name, ArgumentsDelta: string(args),
		}})
	}

	return s.Next()
}

func (s *ollamaStream) Close() error {
	return s.closer()
}
