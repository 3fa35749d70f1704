package llmkit

import (
	"context"

	"github.com/google/uuid"

	"github.com/llmkit-go/llmkit/convstate"
	"github.com/llmkit-go/llmkit/middleware"
	"github.com/llmkit-go/llmkit/provider"
)

// Stateful wraps a Client with a convstate.Store, so every Chat call is
// scoped to a persisted conversation instead of a single isolated turn.
type Stateful struct {
	client *Client
}

// NewStateful installs the state middleware over client's existing
// generate layers and returns a Stateful handle onto it.
func NewStateful(model provider.Model, store convstate.Store, opts ...Option) *Stateful {
	opts = append(opts, WithGenerateLayers(middleware.State(middleware.StateConfig{Store: store})))
	return &Stateful{client: New(model, opts...)}
}

// Chat performs req as a turn in conversationID: prior live messages are
// loaded and prepended automatically, and both the new turn and the
// model's reply are appended back into the store on success. An empty
// conversationID starts a fresh conversation under a generated ID.
func (s *Stateful) Chat(ctx context.Context, conversationID string, req provider.Request) (*provider.Response, error) {
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	ctx = middleware.WithConversationID(ctx, conversationID)
	return s.client.Chat(ctx, req)
}

// NewConversationID generates a fresh conversation ID, grounded on the
// teacher's agent run-ID idiom (uuid.New().String() per run).
func NewConversationID() string {
	return uuid.New().String()
}
