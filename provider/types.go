// Package provider defines the data model and contract every backend
// (OpenAI-style, Anthropic-style, Ollama-style) implements.
package provider

// Role identifies who authored a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Content is a sum type: TextContent, ImageContent, AudioContent, or
// MultiContent. The unexported marker method closes the set to this package.
type Content interface {
	contentType() string
}

type TextContent struct {
	Text string
}

func (TextContent) contentType() string { return "text" }

// ImageContent carries either a remote URL or inline base64 data, never both.
type ImageContent struct {
	URL       string
	Data      []byte
	MediaType string
}

func (ImageContent) contentType() string { return "image" }

type AudioContent struct {
	Data      []byte
	MediaType string
}

func (AudioContent) contentType() string { return "audio" }

// MultiContent groups several content parts under one message turn, e.g. a
// tool-result message carrying the tool's textual output plus metadata.
type MultiContent struct {
	Parts []Content
}

func (MultiContent) contentType() string { return "multi" }

// Message is one turn in a conversation.
type Message struct {
	Role Role
	Content
	Name       string // optional, e.g. tool name for RoleTool
	ToolCallID string // set on RoleTool messages, ties a result to a ToolCall
}

// Tool describes a function the model may call. Execution is the caller's
// responsibility; llmkit never invokes a Tool itself.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema object
}

// ToolChoice steers whether/which tool the model must call.
type ToolChoice struct {
	Mode string // "auto", "none", "required", or "" for provider default
	Name string // set when Mode selects a specific tool
}

// ResponseFormat requests structured (JSON-Schema-bound) output. See
// package structured for the higher-level extraction helper built on this.
type ResponseFormat struct {
	Type   string // "text" or "json_schema"
	Name   string
	Schema map[string]any
	Strict bool
}

// Parameters controls sampling and call shape. Zero values mean "use the
// provider's default"; pointers distinguish "unset" from "explicitly zero".
type Parameters struct {
	Temperature      *float64
	TopP             *float64
	TopK             *int
	MaxTokens        *int
	StopSequences    []string
	PresencePenalty  *float64
	FrequencyPenalty *float64
	Seed             *int64
}

// Request is the provider-agnostic chat-completion request.
type Request struct {
	Model          string
	Messages       []Message
	System         string
	Tools          []Tool
	ToolChoice     *ToolChoice
	ResponseFormat *ResponseFormat
	Parameters     Parameters
	Headers        map[string]string
}

// ToolCall is a model-issued request to invoke a Tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// FinishReason explains why generation stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength         FinishReason = "length"
	FinishToolCalls      FinishReason = "tool_calls"
	FinishContentFilter  FinishReason = "content_filter"
	FinishError          FinishReason = "error"
	FinishUnknown        FinishReason = "unknown"
)

// Usage reports token accounting for a single call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Warning records a non-fatal provider quirk the caller may want to observe
// (e.g. the Anthropic structured-output-via-forced-tool substitution).
type Warning struct {
	Code    string
	Message string
}

// ResponseMetadata carries provider-specific, non-contractual detail.
type ResponseMetadata struct {
	ProviderName string
	ModelID      string
	RawResponse  []byte
}

// Response is the provider-agnostic chat-completion result.
type Response struct {
	Text         string
	ToolCalls    []ToolCall
	FinishReason FinishReason
	Usage        Usage
	Warnings     []Warning
	Metadata     ResponseMetadata
}

// Capabilities describes what a backend-bound model instance supports, so callers
// and middleware can branch without a failed round trip.
type Capabilities struct {
	SupportsTools            bool
	SupportsStructuredOutput bool
	SupportsImageInput       bool
	SupportsStreaming        bool
}
