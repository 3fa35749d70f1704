package streamevent

import (
	"errors"
	"io"
	"log/slog"
	"sort"
)

// AccumulatedToolCall is a tool call assembled from its index-keyed deltas.
type AccumulatedToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Accumulated is the fold of an entire event sequence: text concatenation,
// tool-call assembly keyed by index, and shallow-merged metadata.
type Accumulated struct {
	Text      string
	ToolCalls []AccumulatedToolCall
	Metadata  map[string]any
	Err       error

	byIndex map[int]*AccumulatedToolCall
	order   []int
}

// NewAccumulator returns an empty Accumulated ready to Fold events into.
func NewAccumulator() *Accumulated {
	return &Accumulated{
		Metadata: map[string]any{},
		byIndex:  map[int]*AccumulatedToolCall{},
	}
}

// Fold applies one Event's effect to the accumulation. It never returns an
// error itself; a KindError event's Err is recorded on a.Err for the caller
// to inspect after the stream ends.
func (a *Accumulated) Fold(e *Event) {
	switch e.Kind {
	case KindTextDelta:
		a.Text += e.TextDelta
	case KindToolCallDelta:
		tc, ok := a.byIndex[e.ToolCall.Index]
		if !ok {
			tc = &AccumulatedToolCall{}
			a.byIndex[e.ToolCall.Index] = tc
			a.order = append(a.order, e.ToolCall.Index)
		}
		// id/name are a contract to arrive once; a conflicting later
		// value is a backend bug. Keep the first, log the second.
		if e.ToolCall.ID != "" {
			if tc.ID == "" {
				tc.ID = e.ToolCall.ID
			} else if tc.ID != e.ToolCall.ID {
				slog.Warn("tool call delta carried a conflicting id, keeping the first", "index", e.ToolCall.Index, "kept", tc.ID, "dropped", e.ToolCall.ID)
			}
		}
		if e.ToolCall.Name != "" {
			if tc.Name == "" {
				tc.Name = e.ToolCall.Name
			} else if tc.Name != e.ToolCall.Name {
				slog.Warn("tool call delta carried a conflicting name, keeping the first", "index", e.ToolCall.Index, "kept", tc.Name, "dropped", e.ToolCall.Name)
			}
		}
		tc.Arguments += e.ToolCall.ArgumentsDelta
	case KindMetadata:
		for k, v := range e.Metadata {
			a.Metadata[k] = v
		}
	case KindError:
		a.Err = e.Err
	case KindDone:
		a.finalize()
	}
}

func (a *Accumulated) finalize() {
	sort.Ints(a.order)
	a.ToolCalls = a.ToolCalls[:0]
	for _, idx := range a.order {
		a.ToolCalls = append(a.ToolCalls, *a.byIndex[idx])
	}
}

// Drain reads every remaining event off s, folding each into a fresh
// Accumulated, and closes s before returning.
func Drain(s Stream) (*Accumulated, error) {
	acc := NewAccumulator()
	defer s.Close()
	for {
		ev, err := s.Next()
		if err != nil {
			// io.EOF is a defensive fallback some Stream implementations use
			// for "called again after KindDone"; every other error is a
			// genuine mid-stream failure and must propagate.
			if errors.Is(err, io.EOF) {
				break
			}
			return acc, err
		}
		acc.Fold(ev)
		if ev.Kind == KindDone {
			break
		}
	}
	return acc, nil
}
