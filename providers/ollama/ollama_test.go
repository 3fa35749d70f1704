package ollama

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

func TestGenerateHitsNativeAPIChatEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"message": {"content": "hi"},
			"done": true,
			"done_reason": "stop",
			"prompt_eval_count": 4,
			"eval_count": 2
		}`)
	}))
	defer server.Close()

	p := New(server.URL)
	model, _ := p.LanguageModel("llama3")

	resp, err := model.Generate(t.Context(), provider.Request{
		Model:    "llama3",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: provider.TextContent{Text: "hello"}}},
	})

	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Text)
	assert.Equal(t, provider.FinishStop, resp.FinishReason)
	assert.Equal(t, 6, resp.Usage.TotalTokens)
}

func TestStreamDecodesNDJSONFraming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		lines := []string{
			`{"message":{"content":"Hel"},"done":false}`,
			`{"message":{"content":"lo"},"done":false}`,
			`{"message":{"content":""},"done":true,"done_reason":"stop","prompt_eval_count":3,"eval_count":2}`,
		}
		for _, l := range lines {
			_, _ = io.WriteString(w, l+"\n")
		}
	}))
	defer server.Close()

	p := New(server.URL)
	model, _ := p.LanguageModel("llama3")

	stream, err := model.Stream(t.Context(), provider.Request{
		Model:    "llama3",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: provider.TextContent{Text: "hi"}}},
	})
	require.NoError(t, err)
	defer stream.Close()

	acc, err := streamevent.Drain(stream)
	require.NoError(t, err)
	assert.Equal(t, "Hello", acc.Text)
	assert.Equal(t, "stop", acc.Metadata["finish_reason"])
}

func TestStreamAnnouncesModelFromFirstLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		lines := []string{
			`{"model":"llama3","message":{"content":"hi"},"done":false}`,
			`{"message":{"content":""},"done":true,"done_reason":"stop"}`,
		}
		for _, l := range lines {
			_, _ = io.WriteString(w, l+"\n")
		}
	}))
	defer server.Close()

	p := New(server.URL)
	model, _ := p.LanguageModel("llama3")

	stream, err := model.Stream(t.Context(), provider.Request{
		Model:    "llama3",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: provider.TextContent{Text: "hi"}}},
	})
	require.NoError(t, err)
	defer stream.Close()

	acc, err := streamevent.Drain(stream)
	require.NoError(t, err)
	assert.Equal(t, "llama3", acc.Metadata["model"])
}

func TestStreamEmitsDeltaForEveryToolCallInArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		line := `{"message":{"tool_calls":[` +
			`{"function":{"name":"first","arguments":{"a":1}}},` +
			`{"function":{"name":"second","arguments":{"b":2}}}` +
			`]},"done":false}` + "\n" +
			`{"message":{"content":""},"done":true,"done_reason":"stop"}` + "\n"
		_, _ = io.WriteString(w, line)
	}))
	defer server.Close()

	p := New(server.URL)
	model, _ := p.LanguageModel("llama3")

	stream, err := model.Stream(t.Context(), provider.Request{
		Model:    "llama3",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: provider.TextContent{Text: "hi"}}},
	})
	require.NoError(t, err)
	defer stream.Close()

	acc, err := streamevent.Drain(stream)
	require.NoError(t, err)
	require.Len(t, acc.ToolCalls, 2)
	assert.Equal(t, "first", acc.ToolCalls[0].Name)
	assert.Equal(t, "second", acc.ToolCalls[1].Name)
}
