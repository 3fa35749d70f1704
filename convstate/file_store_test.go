package convstate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmkit-go/llmkit/provider"
)

func TestFileStoreSaveThenLoadRoundTrips(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	state := &State{ConversationID: "conv-1"}
	AppendMessage(state, provider.Message{Role: provider.RoleUser, Content: provider.TextContent{Text: "hi"}}, 2)
	require.NoError(t, store.Save(t.Context(), state))

	loaded, err := store.Load(t.Context(), "conv-1")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, "hi", loaded.Messages[0].Message.Content.(provider.TextContent).Text)
}

func TestFileStoreLoadReturnsEmptyStateWhenFileMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	state, err := store.Load(t.Context(), "never-saved")
	require.NoError(t, err)
	assert.Equal(t, "never-saved", state.ConversationID)
	assert.Empty(t, state.Messages)
}

func TestFileStoreDeleteRemovesConversation(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	state := &State{ConversationID: "conv-1"}
	require.NoError(t, store.Save(t.Context(), state))
	require.NoError(t, store.Delete(t.Context(), "conv-1"))

	loaded, err := store.Load(t.Context(), "conv-1")
	require.NoError(t, err)
	assert.Empty(t, loaded.Messages)
}

func TestFileStoreDeleteIsNoopWhenMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Delete(t.Context(), "never-existed"))
}

func TestFileStoreExistsReflectsSaveAndDelete(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ok, err := store.Exists(t.Context(), "conv-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(t.Context(), &State{ConversationID: "conv-1"}))
	ok, err = store.Exists(t.Context(), "conv-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStoreListOrdersByUpdatedAtDescendingAndSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(t.Context(), &State{ConversationID: "older"}))
	time.Sleep(time.Millisecond)
	require.NoError(t, store.Save(t.Context(), &State{ConversationID: "newer"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("not json"), 0o600))

	all, err := store.List(t.Context())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer", all[0].ConversationID)
	assert.Equal(t, "older", all[1].ConversationID)
}

func TestFileStoreFindByTagsRequiresAllTags(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(t.Context(), &State{ConversationID: "a", Tags: []string{"billing", "urgent"}}))
	require.NoError(t, store.Save(t.Context(), &State{ConversationID: "b", Tags: []string{"billing"}}))

	found, err := store.FindByTags(t.Context(), []string{"billing", "urgent"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a", found[0].ConversationID)
}
