package openai

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmkit-go/llmkit/provider"
	"github.com/llmkit-go/llmkit/streamevent"
)

func TestGenerateParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
		}`))
	}))
	defer server.Close()

	p := New(server.URL, "test-key")
	model, err := p.LanguageModel("gpt-4o-mini")
	require.NoError(t, err)

	resp, err := model.Generate(t.Context(), provider.Request{
		Model:    "gpt-4o-mini",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: provider.TextContent{Text: "hello"}}},
	})

	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Text)
	assert.Equal(t, provider.FinishStop, resp.FinishReason)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestCapabilitiesDetectsImageSupport(t *testing.T) {
	p := New("http://unused", "key")
	model, _ := p.LanguageModel("gpt-4o")
	assert.True(t, model.Capabilities().SupportsImageInput)

	model2, _ := p.LanguageModel("gpt-3.5-turbo")
	assert.False(t, model2.Capabilities().SupportsImageInput)
}

func TestStreamAssemblesToolCallDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"lookup","arguments":""}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"q\":"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"1}"}}]}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		}
		for _, c := range chunks {
			_, _ = io.WriteString(w, "data: "+c+"\n\n")
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	p := New(server.URL, "key")
	model, _ := p.LanguageModel("gpt-4o-mini")

	stream, err := model.Stream(t.Context(), provider.Request{
		Model:    "gpt-4o-mini",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: provider.TextContent{Text: "hi"}}},
	})
	require.NoError(t, err)
	defer stream.Close()

	acc, err := streamevent.Drain(stream)
	require.NoError(t, err)
	require.Len(t, acc.ToolCalls, 1)
	assert.Equal(t, "call_1", acc.ToolCalls[0].ID)
	assert.Equal(t, "lookup", acc.ToolCalls[0].Name)
	assert.Equal(t, `{"q":1}`, acc.ToolCalls[0].Arguments)
}
