package middleware

import (
	"context"

	"github.com/llmkit-go/llmkit/convstate"
	"github.com/llmkit-go/llmkit/provider"
	"github.com/llmkit-go/llmkit/tokencount"
)

// conversationIDKey is the context key callers set to scope a Generate call
// to a persisted conversation.
type conversationIDKey struct{}

// WithConversationID returns a context scoped to conversationID for the
// State layer to pick up.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, conversationIDKey{}, conversationID)
}

func conversationIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(conversationIDKey{}).(string)
	return id, ok && id != ""
}

// StateConfig configures the conversation-state Layer.
type StateConfig struct {
	Store   convstate.Store
	Counter tokencount.Counter
}

func (c StateConfig) counter() tokencount.Counter {
	if c.Counter != nil {
		return c.Counter
	}
	return tokencount.HeuristicCounter{}
}

// State returns a GenerateLayer that, when the call's context carries a
// conversation ID (see WithConversationID), loads prior live messages,
// prepends them to req.Messages, and appends both the user turn and the
// model's reply back into the store after a successful call.
func State(cfg StateConfig) GenerateLayer {
	return LayerFunc[provider.Request, *provider.Response](func(next GenerateService) GenerateService {
		return ServiceFunc[provider.Request, *provider.Response](func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			conversationID, ok := conversationIDFrom(ctx)
			if !ok {
				return next.Handle(ctx, req)
			}

			state, err := cfg.Store.Load(ctx, conversationID)
			if err != nil {
				return nil, err
			}

			newTurns := req.Messages
			req.Messages = append(convstate.LiveMessages(state), newTurns...)

			resp, err := next.Handle(ctx, req)
			if err != nil {
				return nil, err
			}

			counter := cfg.counter()
			for _, m := range newTurns {
				convstate.AppendMessage(state, m, counter.CountMessage(m))
			}
			assistantMsg := provider.Message{Role: provider.RoleAssistant, Content: provider.TextContent{Text: resp.Text}}
			convstate.AppendMessage(state, assistantMsg, counter.CountText(resp.Text))
			state.ConversationID = conversationID

			if err := cfg.Store.Save(ctx, state); err != nil {
				return nil, err
			}
			return resp, nil
		})
	})
}
