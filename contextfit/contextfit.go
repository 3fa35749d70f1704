// Package contextfit prunes a conversation's messages to fit a token budget.
//
// Grounded on the teacher's pkg/ai/pruning.go (DefaultMessagePrune: keep the
// system message and the last N messages, drop from the middle first).
package contextfit

import (
	"context"

	"github.com/llmkit-go/llmkit/llmkiterr"
	"github.com/llmkit-go/llmkit/provider"
	"github.com/llmkit-go/llmkit/tokencount"
)

// Strategy fits messages into maxTokens, returning the subset (or rewrite)
// of messages to actually send.
type Strategy interface {
	Fit(ctx context.Context, messages []provider.Message, maxTokens int) ([]provider.Message, error)
}

// Options configures the pruning strategies (SlidingWindow,
// ImportanceWeighted and Summarization).
type Options struct {
	Counter               tokencount.Counter
	PreserveSystemMessage bool
	PreserveLastN         int
}

func (o Options) counter() tokencount.Counter {
	if o.Counter != nil {
		return o.Counter
	}
	return tokencount.HeuristicCounter{}
}

func (o Options) preserveLastN() int {
	if o.PreserveLastN <= 0 {
		return 5
	}
	return o.PreserveLastN
}

// SlidingWindow keeps the system message (if PreserveSystemMessage) and the
// most recent PreserveLastN messages, dropping older ones first, same as
// the teacher's DefaultMessagePrune.
type SlidingWindow struct {
	Options
}

func NewSlidingWindow(opts Options) *SlidingWindow {
	return &SlidingWindow{Options: opts}
}

func (s *SlidingWindow) Fit(_ context.Context, messages []provider.Message, maxTokens int) ([]provider.Message, error) {
	counter := s.counter()
	total := tokencount.CountMessages(counter, messages)
	if total <= maxTokens {
		return messages, nil
	}

	var system *provider.Message
	rest := messages
	if s.PreserveSystemMessage && len(messages) > 0 && messages[0].Role == provider.RoleSystem {
		m := messages[0]
		system = &m
		rest = messages[1:]
	}

	keep := s.preserveLastN()
	if keep > len(rest) {
		keep = len(rest)
	}
	pruned := rest[len(rest)-keep:]

	out := make([]provider.Message, 0, keep+1)
	if system != nil {
		out = append(out, *system)
	}
	out = append(out, pruned...)

	if got := tokencount.CountMessages(counter, out); got > maxTokens {
		return nil, llmkiterr.NewPruning("sliding window fit to %d tokens, still over budget %d", got, maxTokens)
	}
	return out, nil
}

// ImportanceScorer assigns a relevance score to a message; higher survives.
type ImportanceScorer func(m provider.Message, index, total int) float64

// ImportanceWeighted drops the lowest-scored messages first instead of the
// oldest first, keeping the system message (if PreserveSystemMessage) and
// preserving arrival order in the output.
type ImportanceWeighted struct {
	Options
	Score ImportanceScorer
}

func NewImportanceWeighted(opts Options, score ImportanceScorer) *ImportanceWeighted {
	if score == nil {
		score = RecencyScore
	}
	return &ImportanceWeighted{Options: opts, Score: score}
}

// RecencyScore is the default scorer: later messages score higher.
func RecencyScore(_ provider.Message, index, total int) float64 {
	if total <= 1 {
		return 1
	}
	return float64(index) / float64(total-1)
}

type scored struct {
	msg   provider.Message
	index int
	score float64
	cost  int
}

func (w *ImportanceWeighted) Fit(_ context.Context, messages []provider.Message, maxTokens int) ([]provider.Message, error) {
	counter := w.counter()
	total := tokencount.CountMessages(counter, messages)
	if total <= maxTokens {
		return messages, nil
	}

	var system *provider.Message
	rest := messages
	if w.PreserveSystemMessage && len(messages) > 0 && messages[0].Role == provider.RoleSystem {
		m := messages[0]
		system = &m
		rest = messages[1:]
	}

	budget := maxTokens
	if system != nil {
		budget -= counter.CountMessage(*system)
	}

	items := make([]scored, len(rest))
	for i, m := range rest {
		items[i] = scored{msg: m, index: i, score: w.Score(m, i, len(rest)), cost: counter.CountMessage(m)}
	}
	// Stable sort by score descending (highest importance kept first).
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].score > items[j-1].score; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}

	kept := map[int]bool{}
	spent := 0
	for _, it := range items {
		if spent+it.cost > budget {
			continue
		}
		kept[it.index] = true
		spent += it.cost
	}

	out := make([]provider.Message, 0, len(kept)+1)
	if system != nil {
		out = append(out, *system)
	}
	for i, m := range rest {
		if kept[i] {
			out = append(out, m)
		}
	}

	if got := tokencount.CountMessages(counter, out); got > maxTokens {
		return nil, llmkiterr.NewPruning("importance-weighted fit to %d tokens, still over budget %d", got, maxTokens)
	}
	return out, nil
}

// Summarizer collapses a run of messages into a single replacement message,
// e.g. by calling a cheap model to summarize them.
type Summarizer func(ctx context.Context, messages []provider.Message) (provider.Message, error)

// Summarization replaces the oldest messages (beyond PreserveLastN) with one
// summary message produced by Summarize, instead of dropping them outright.
type Summarization struct {
	Options
	Summarize Summarizer
}

func NewSummarization(opts Options, summarize Summarizer) *Summarization {
	return &Summarization{Options: opts, Summarize: summarize}
}

func (s *Summarization) Fit(ctx context.Context, messages []provider.Message, maxTokens int) ([]provider.Message, error) {
	counter := s.counter()
	total := tokencount.CountMessages(counter, messages)
	if total <= maxTokens {
		return messages, nil
	}

	var system *provider.Message
	rest := messages
	if s.PreserveSystemMessage && len(messages) > 0 && messages[0].Role == provider.RoleSystem {
		m := messages[0]
		system = &m
		rest = messages[1:]
	}

	keep := s.preserveLastN()
	if keep >= len(rest) {
		return nil, llmkiterr.NewPruning("summarization: nothing older than the last %d messages to summarize, %d tokens still over budget %d", keep, total, maxTokens)
	}
	toSummarize := rest[:len(rest)-keep]
	recent := rest[len(rest)-keep:]

	summary, err := s.Summarize(ctx, toSummarize)
	if err != nil {
		return nil, err
	}

	out := make([]provider.Message, 0, keep+2)
	if system != nil {
		out = append(out, *system)
	}
	out = append(out, summary)
	out = append(out, recent...)

	if got := tokencount.CountMessages(counter, out); got > maxTokens {
		return nil, llmkiterr.NewPruning("summarization fit to %d tokens, still over budget %d", got, maxTokens)
	}
	return out, nil
}
