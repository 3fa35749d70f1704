package llmkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmkit-go/llmkit/llmkiterr"
	"github.com/llmkit-go/llmkit/provider"
	"github.com/llmkit-go/llmkit/providers/mock"
)

func newMockClient(t *testing.T, modelID string, configure func(p *mock.Provider)) *Client {
	t.Helper()
	p := mock.New(modelID)
	configure(p)
	model, err := p.LanguageModel(modelID)
	require.NoError(t, err)
	return New(model)
}

func TestParallelFirstSuccessSkipsFailures(t *testing.T) {
	failing := newMockClient(t, "a", func(p *mock.Provider) {
		p.EnqueueError(llmkiterr.NewNetwork(nil, "down"))
	})
	ok := newMockClient(t, "b", func(p *mock.Provider) {
		p.EnqueueResponse(&provider.Response{Text: "winner"})
	})

	par := NewParallel(FirstSuccess, failing, ok)
	resp, err := par.Chat(t.Context(), provider.Request{Model: "x"})

	require.NoError(t, err)
	assert.Equal(t, "winner", resp.Text)
}

func TestParallelFirstSuccessReturnsErrorWhenAllFail(t *testing.T) {
	a := newMockClient(t, "a", func(p *mock.Provider) { p.EnqueueError(llmkiterr.NewNetwork(nil, "down-a")) })
	b := newMockClient(t, "b", func(p *mock.Provider) { p.EnqueueError(llmkiterr.NewNetwork(nil, "down-b")) })

	par := NewParallel(FirstSuccess, a, b)
	_, err := par.Chat(t.Context(), provider.Request{Model: "x"})

	require.Error(t, err)
}

func TestParallelConsensusReturnsMajorityText(t *testing.T) {
	a := newMockClient(t, "a", func(p *mock.Provider) { p.EnqueueResponse(&provider.Response{Text: "42"}) })
	b := newMockClient(t, "b", func(p *mock.Provider) { p.EnqueueResponse(&provider.Response{Text: "42"}) })
	c := newMockClient(t, "c", func(p *mock.Provider) { p.EnqueueResponse(&provider.Response{Text: "7"}) })

	par := NewParallel(Consensus, a, b, c)
	resp, err := par.Chat(t.Context(), provider.Request{Model: "x"})

	require.NoError(t, err)
	assert.Equal(t, "42", resp.Text)
}

func TestParallelConsensusBreaksTieByLowestIndex(t *testing.T) {
	a := newMockClient(t, "a", func(p *mock.Provider) { p.EnqueueResponse(&provider.Response{Text: "42"}) })
	b := newMockClient(t, "b", func(p *mock.Provider) { p.EnqueueResponse(&provider.Response{Text: "7"}) })

	par := NewParallel(Consensus, a, b)
	resp, err := par.Chat(t.Context(), provider.Request{Model: "x"})

	require.NoError(t, err)
	assert.Equal(t, "42", resp.Text)
}

func TestParallelRaceReturnsSomeResult(t *testing.T) {
	a := newMockClient(t, "a", func(p *mock.Provider) { p.EnqueueResponse(&provider.Response{Text: "fast"}) })
	b := newMockClient(t, "b", func(p *mock.Provider) { p.EnqueueResponse(&provider.Response{Text: "slow"}) })

	par := NewParallel(Race, a, b)
	resp, err := par.Chat(t.Context(), provider.Request{Model: "x"})

	require.NoError(t, err)
	assert.Contains(t, []string{"fast", "slow"}, resp.Text)
}

func TestParallelAllGathersEveryResultIncludingErrors(t *testing.T) {
	a := newMockClient(t, "a", func(p *mock.Provider) { p.EnqueueResponse(&provider.Response{Text: "ok"}) })
	b := newMockClient(t, "b", func(p *mock.Provider) { p.EnqueueError(llmkiterr.NewNetwork(nil, "down")) })

	par := NewParallel(All, a, b)
	results := par.All(t.Context(), provider.Request{Model: "x"})

	require.Len(t, results, 2)
	assert.Equal(t, "ok", results[0].Response.Text)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
}

func TestParallelChatRejectsAllStrategy(t *testing.T) {
	a := newMockClient(t, "a", func(p *mock.Provider) { p.EnqueueResponse(&provider.Response{Text: "ok"}) })

	par := NewParallel(All, a)
	_, err := par.Chat(t.Context(), provider.Request{Model: "x"})

	require.Error(t, err)
	assert.True(t, llmkiterr.IsInvalidRequest(err))
}
