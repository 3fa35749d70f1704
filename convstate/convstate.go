// Package convstate persists multi-turn conversations across calls.
//
// The teacher carries no conversation-persistence layer, so this is
// enriched from the rest of the example corpus: the in-memory store shape
// (mutex-guarded map keyed by conversation ID) follows bpowers-go-agent's
// persistence/store.go Store/Record/MemoryStore, and the file-backed
// store's atomic write follows haasonsaas-nexus's internal/pairing/store.go
// (write to a ".tmp" sibling, then os.Rename).
package convstate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/llmkit-go/llmkit/provider"
)

// Record is one message in a persisted conversation, with bookkeeping the
// context manager and cache layers need.
type Record struct {
	ID        int
	Message   provider.Message
	Live      bool // false once pruned out of the active context window
	Tokens    int
	Timestamp time.Time
}

// State is a full conversation: its records plus tags, metadata and the
// time of its last update.
type State struct {
	ConversationID string
	Messages       []Record
	Tags           []string
	Metadata       map[string]string
	UpdatedAt      time.Time
}

// hasAllTags reports whether s carries every tag in want.
func (s *State) hasAllTags(want []string) bool {
	have := map[string]bool{}
	for _, t := range s.Tags {
		have[t] = true
	}
	for _, t := range want {
		if !have[t] {
			return false
		}
	}
	return true
}

// byUpdatedAtDesc sorts states newest-first, per List's ordering contract.
func byUpdatedAtDesc(states []*State) {
	sort.Slice(states, func(i, j int) bool {
		return states[i].UpdatedAt.After(states[j].UpdatedAt)
	})
}

// Store persists and retrieves conversation State by ID.
type Store interface {
	Load(ctx context.Context, conversationID string) (*State, error)
	Save(ctx context.Context, state *State) error
	Delete(ctx context.Context, conversationID string) error
	// List returns every stored conversation ordered by UpdatedAt descending.
	List(ctx context.Context) ([]*State, error)
	// Exists reports whether conversationID has a stored State.
	Exists(ctx context.Context, conversationID string) (bool, error)
	// FindByTags returns every stored conversation carrying all of tags,
	// ordered by UpdatedAt descending.
	FindByTags(ctx context.Context, tags []string) ([]*State, error)
	Close() error
}

// MemoryStore is a mutex-guarded in-memory Store, grounded on
// bpowers-go-agent's MemoryStore.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]*State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[string]*State{}}
}

func (m *MemoryStore) Load(_ context.Context, conversationID string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[conversationID]
	if !ok {
		return &State{ConversationID: conversationID}, nil
	}
	cp := *s
	cp.Messages = append([]Record(nil), s.Messages...)
	return &cp, nil
}

func (m *MemoryStore) Save(_ context.Context, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	cp.Messages = append([]Record(nil), state.Messages...)
	cp.UpdatedAt = time.Now()
	m.byID[state.ConversationID] = &cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, conversationID)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*State, 0, len(m.byID))
	for _, s := range m.byID {
		cp := *s
		cp.Messages = append([]Record(nil), s.Messages...)
		out = append(out, &cp)
	}
	byUpdatedAtDesc(out)
	return out, nil
}

func (m *MemoryStore) Exists(_ context.Context, conversationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[conversationID]
	return ok, nil
}

func (m *MemoryStore) FindByTags(_ context.Context, tags []string) ([]*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*State
	for _, s := range m.byID {
		if !s.hasAllTags(tags) {
			continue
		}
		cp := *s
		cp.Messages = append([]Record(nil), s.Messages...)
		out = append(out, &cp)
	}
	byUpdatedAtDesc(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// AppendMessage adds msg as a new live Record to state.
func AppendMessage(state *State, msg provider.Message, tokens int) {
	state.Messages = append(state.Messages, Record{
		ID:        len(state.Messages),
		Message:   msg,
		Live:      true,
		Tokens:    tokens,
		Timestamp: time.Now(),
	})
}

// LiveMessages returns the provider.Message for every live Record, in
// order — the view a context-fitting Strategy operates on.
func LiveMessages(state *State) []provider.Message {
	out := make([]provider.Message, 0, len(state.Messages))
	for _, r := range state.Messages {
		if r.Live {
			out = append(out, r.Message)
		}
	}
	return out
}
