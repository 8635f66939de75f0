package agent

import "context"

type conversationKey struct{}

const defaultConversation = "default"

// WithConversation routes messages handled under ctx to one conversation,
// and so to the form session bound to it.
func WithConversation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversationKey{}, id)
}

// ConversationFromContext returns the conversation set by WithConversation.
func ConversationFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(conversationKey{}).(string)
	return id, ok && id != ""
}

func conversationOrDefault(ctx context.Context) string {
	if id, ok := ConversationFromContext(ctx); ok {
		return id
	}
	return defaultConversation
}
