package contextfit

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmkit-go/llmkit/llmkiterr"
	"github.com/llmkit-go/llmkit/provider"
)

func textMsg(role provider.Role, text string) provider.Message {
	return provider.Message{Role: role, Content: provider.TextContent{Text: text}}
}

func TestSlidingWindowKeepsSystemAndRecent(t *testing.T) {
	messages := []provider.Message{textMsg(provider.RoleSystem, "be helpful")}
	for i := 0; i < 20; i++ {
		messages = append(messages, textMsg(provider.RoleUser, strings.Repeat("x", 40)))
	}

	sw := NewSlidingWindow(Options{PreserveSystemMessage: true, PreserveLastN: 3})
	out, err := sw.Fit(context.Background(), messages, 50)

	require.NoError(t, err)
	require.Len(t, out, 4) // system + last 3
	assert.Equal(t, provider.RoleSystem, out[0].Role)
}

func TestSlidingWindowNoopWhenWithinBudget(t *testing.T) {
	messages := []provider.Message{textMsg(provider.RoleUser, "hi")}
	sw := NewSlidingWindow(Options{})
	out, err := sw.Fit(context.Background(), messages, 1000)

	require.NoError(t, err)
	assert.Equal(t, messages, out)
}

func TestSlidingWindowErrorsWhenPreservedMessagesStillExceedBudget(t *testing.T) {
	messages := []provider.Message{textMsg(provider.RoleSystem, "be helpful")}
	for i := 0; i < 20; i++ {
		messages = append(messages, textMsg(provider.RoleUser, strings.Repeat("x", 40)))
	}

	sw := NewSlidingWindow(Options{PreserveSystemMessage: true, PreserveLastN: 3})
	_, err := sw.Fit(context.Background(), messages, 5)

	require.Error(t, err)
	assert.True(t, llmkiterr.IsPruning(err))
}

func TestImportanceWeightedDropsLowestScored(t *testing.T) {
	messages := []provider.Message{
		textMsg(provider.RoleUser, strings.Repeat("a", 40)),
		textMsg(provider.RoleUser, strings.Repeat("b", 40)),
		textMsg(provider.RoleUser, strings.Repeat("c", 40)),
	}
	iw := NewImportanceWeighted(Options{}, RecencyScore)
	out, err := iw.Fit(context.Background(), messages, 15)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, strings.Repeat("c", 40), out[0].Content.(provider.TextContent).Text)
}

func TestSummarizationReplacesOlderMessages(t *testing.T) {
	messages := []provider.Message{
		textMsg(provider.RoleUser, strings.Repeat("old", 40)),
		textMsg(provider.RoleUser, "recent"),
	}
	summarize := func(ctx context.Context, msgs []provider.Message) (provider.Message, error) {
		return textMsg(provider.RoleSystem, "summary of earlier turns"), nil
	}
	s := NewSummarization(Options{PreserveLastN: 1}, summarize)

	out, err := s.Fit(context.Background(), messages, 20)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "summary of earlier turns", out[0].Content.(provider.TextContent).Text)
	assert.Equal(t, "recent", out[1].Content.(provider.TextContent).Text)
}
