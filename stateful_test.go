package llmkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmkit-go/llmkit/convstate"
	"github.com/llmkit-go/llmkit/provider"
	"github.com/llmkit-go/llmkit/providers/mock"
)

func TestStatefulChatPersistsAcrossTurns(t *testing.T) {
	p := mock.New("default")
	p.EnqueueResponse(&provider.Response{Text: "hi there"})
	p.EnqueueResponse(&provider.Response{Text: "still here"})
	model, err := p.LanguageModel("test-model")
	require.NoError(t, err)

	store := convstate.NewMemoryStore()
	s := NewStateful(model, store)

	_, err = s.Chat(t.Context(), "conv-1", provider.Request{
		Model:    "test-model",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: provider.TextContent{Text: "hello"}}},
	})
	require.NoError(t, err)

	_, err = s.Chat(t.Context(), "conv-1", provider.Request{
		Model:    "test-model",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: provider.TextContent{Text: "again"}}},
	})
	require.NoError(t, err)

	calls := p.Calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[0].Messages, 1)
	assert.Len(t, calls[1].Messages, 3)
}

func TestStatefulChatIsolatesConversations(t *testing.T) {
	p := mock.New("default")
	p.EnqueueResponse(&provider.Response{Text: "a"})
	p.EnqueueResponse(&provider.Response{Text: "b"})
	model, err := p.LanguageModel("test-model")
	require.NoError(t, err)

	store := convstate.NewMemoryStore()
	s := NewStateful(model, store)

	_, err = s.Chat(t.Context(), "conv-a", provider.Request{
		Model:    "test-model",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: provider.TextContent{Text: "hello"}}},
	})
	require.NoError(t, err)

	_, err = s.Chat(t.Context(), "conv-b", provider.Request{
		Model:    "test-model",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: provider.TextContent{Text: "hello"}}},
	})
	require.NoError(t, err)

	calls := p.Calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[1].Messages, 1)
}

func TestStatefulChatGeneratesConversationIDWhenEmpty(t *testing.T) {
	p := mock.New("default")
	p.EnqueueResponse(&provider.Response{Text: "a"})
	model, err := p.LanguageModel("test-model")
	require.NoError(t, err)

	store := convstate.NewMemoryStore()
	s := NewStateful(model, store)

	_, err = s.Chat(t.Context(), "", provider.Request{
		Model:    "test-model",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: provider.TextContent{Text: "hello"}}},
	})
	require.NoError(t, err)
}

func TestNewConversationIDReturnsDistinctValues(t *testing.T) {
	assert.NotEqual(t, NewConversationID(), NewConversationID())
}
