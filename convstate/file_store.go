package convstate

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/llmkit-go/llmkit/llmkiterr"
)

// FileStore persists one JSON file per conversation under Dir, writing
// atomically (temp file + rename), grounded on haasonsaas-nexus's
// internal/pairing/store.go idiom.
type FileStore struct {
	Dir string

	mu sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, llmkiterr.NewStorage(err, "create conversation store directory %q", dir)
	}
	return &FileStore{Dir: dir}, nil
}

func (f *FileStore) path(conversationID string) string {
	return filepath.Join(f.Dir, conversationID+".json")
}

func (f *FileStore) Load(_ context.Context, conversationID string) (*State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(conversationID))
	if os.IsNotExist(err) {
		return &State{ConversationID: conversationID}, nil
	}
	if err != nil {
		return nil, llmkiterr.NewStorage(err, "read conversation %q", conversationID)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, llmkiterr.NewSerialization(err, "decode conversation %q", conversationID)
	}
	return &state, nil
}

func (f *FileStore) Save(_ context.Context, state *State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return llmkiterr.NewSerialization(err, "encode conversation %q", state.ConversationID)
	}

	path := f.path(state.ConversationID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return llmkiterr.NewStorage(err, "write conversation %q", state.ConversationID)
	}
	if err := os.Rename(tmp, path); err != nil {
		return llmkiterr.NewStorage(err, "commit conversation %q", state.ConversationID)
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(conversationID)); err != nil && !os.IsNotExist(err) {
		return llmkiterr.NewStorage(err, "delete conversation %q", conversationID)
	}
	return nil
}

// List returns every conversation stored under Dir, ordered by UpdatedAt
// descending. A file that fails to parse is skipped with a logged warning
// rather than failing the whole listing.
func (f *FileStore) List(_ context.Context) ([]*State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, llmkiterr.NewStorage(err, "list conversation store %q", f.Dir)
	}

	var out []*State
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.Dir, entry.Name()))
		if err != nil {
			slog.Warn("convstate: skipping unreadable conversation file", "file", entry.Name(), "error", err)
			continue
		}
		var state State
		if err := json.Unmarshal(data, &state); err != nil {
			slog.Warn("convstate: skipping corrupt conversation file", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, &state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *FileStore) Exists(_ context.Context, conversationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := os.Stat(f.path(conversationID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, llmkiterr.NewStorage(err, "stat conversation %q", conversationID)
	}
	return true, nil
}

func (f *FileStore) FindByTags(ctx context.Context, tags []string) ([]*State, error) {
	all, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*State
	for _, s := range all {
		if s.hasAllTags(tags) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *FileStore) Close() error { return nil }
