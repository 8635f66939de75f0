package agent

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// DefaultHistoryLimit is how many messages a conversation keeps.
const DefaultHistoryLimit = 50

// History keeps the recent messages of each conversation, so a runner can
// be handed the transcript on every turn.
type History struct {
	store scoped[[]*schema.Message]
	limit int
}

// NewHistory keeps at most limit messages per conversation; limit <= 0 uses
// DefaultHistoryLimit.
func NewHistory(cache Cache[[]*schema.Message], limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		store: scoped[[]*schema.Message]{cache: cache, namespace: "agent:history"},
		limit: limit,
	}
}

func NewMemoryHistory(limit int) *History {
	return NewHistory(NewMemoryCache[[]*schema.Message](), limit)
}

func (h *History) Load(ctx context.Context) ([]*schema.Message, error) {
	msgs, _, err := h.store.Get(ctx)
	return msgs, err
}

// Append adds msgs in order, dropping nils, and returns the stored
// transcript. A repeated message is a new turn and is kept.
func (h *History) Append(ctx context.Context, msgs ...*schema.Message) ([]*schema.Message, error) {
	history, err := h.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		history = append(history, msg)
	}
	if len(history) > h.limit {
		history = history[len(history)-h.limit:]
	}
	if err := h.store.Set(ctx, history); err != nil {
		return nil, err
	}
	return history, nil
}

func (h *History) Clear(ctx context.Context) error {
	return h.store.Del(ctx)
}
