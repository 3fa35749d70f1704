// Package tokencount estimates token counts for context-window fitting.
//
// Grounded on the teacher's pkg/ai/pruning.go estimateTokens (chars/4
// heuristic); generalized into a swappable interface so callers can plug in
// a real tokenizer.
package tokencount

import "github.com/llmkit-go/llmkit/provider"

// Counter estimates the token cost of a Message or a whole conversation,
// and knows the total context-window budget for a given model.
type Counter interface {
	CountMessage(m provider.Message) int
	CountText(s string) int
	ModelContextWindow(model string) int
}

// defaultContextWindows holds known context-window sizes (input + output
// tokens) for models exercised by the bundled wire adapters. Unlisted
// models fall back to a conservative default.
var defaultContextWindows = map[string]int{
	"gpt-4o":              128_000,
	"gpt-4o-mini":         128_000,
	"gpt-4-turbo":         128_000,
	"claude-3-5-sonnet":   200_000,
	"claude-3-7-sonnet":   200_000,
	"claude-opus-4":       200_000,
	"claude-sonnet-4":     200_000,
	"llama3":              8_192,
	"llama3.1":            128_000,
	"mistral":             32_768,
}

const defaultContextWindow = 8_192

// HeuristicCounter is the deterministic, dependency-free default: roughly
// one token per four characters of text content. Non-text content (images,
// audio) is charged a flat per-part cost since a precise count needs a
// model-specific tokenizer this package doesn't carry.
type HeuristicCounter struct {
	// CharsPerToken defaults to 4 when zero.
	CharsPerToken int
	// NonTextTokens is charged per image/audio part. Defaults to 85 (a
	// rough stand-in for a single low-res image tile).
	NonTextTokens int
	// MessageOverhead is charged once per message on top of its content,
	// standing in for the role token and separators a real backend's
	// wire format adds around each message. Defaults to 4 when zero.
	MessageOverhead int
}

func (h HeuristicCounter) charsPerToken() int {
	if h.CharsPerToken <= 0 {
		return 4
	}
	return h.CharsPerToken
}

func (h HeuristicCounter) nonTextTokens() int {
	if h.NonTextTokens <= 0 {
		return 85
	}
	return h.NonTextTokens
}

func (h HeuristicCounter) messageOverhead() int {
	if h.MessageOverhead <= 0 {
		return 4
	}
	return h.MessageOverhead
}

func (h HeuristicCounter) CountText(s string) int {
	return len(s) / h.charsPerToken()
}

// CountMessage counts m's content plus a fixed per-message overhead for the
// role token and wire separators a backend's accounting adds around every
// message, independent of its content.
func (h HeuristicCounter) CountMessage(m provider.Message) int {
	return h.countContent(m.Content) + h.messageOverhead()
}

func (h HeuristicCounter) countContent(c provider.Content) int {
	switch v := c.(type) {
	case provider.TextContent:
		return h.CountText(v.Text)
	case provider.MultiContent:
		total := 0
		for _, part := range v.Parts {
			total += h.countContent(part)
		}
		return total
	case provider.ImageContent, provider.AudioContent:
		return h.nonTextTokens()
	default:
		return 0
	}
}

// ModelContextWindow returns model's total token budget (input + output),
// falling back to a conservative default for models it doesn't recognize.
// Deterministic for a given (HeuristicCounter, model) pair, per contract.
func (h HeuristicCounter) ModelContextWindow(model string) int {
	if w, ok := defaultContextWindows[model]; ok {
		return w
	}
	return defaultContextWindow
}

// CountMessages sums Counter.CountMessage across a conversation.
func CountMessages(c Counter, messages []provider.Message) int {
	total := 0
	for _, m := range messages {
		total += c.CountMessage(m)
	}
	return total
}
