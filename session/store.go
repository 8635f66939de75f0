// Package session persists form-filling sessions behind a key-value store
// with expiry.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tbxark/formpilot/types"
)

// DefaultTTL keeps an idle session for a day.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "session:"

// ErrSkipWrite returned from an Update callback leaves the stored record
// untouched and makes Update succeed with the stored value.
var ErrSkipWrite = errors.New("skip write")

// UpdateFunc mutates a private copy of the stored session.
type UpdateFunc func(s *types.Session) error

type Store interface {
	// Get loads a session and refreshes its expiry.
	Get(ctx context.Context, id string) (*types.Session, error)
	Set(ctx context.Context, id string, s *types.Session) error
	Delete(ctx context.Context, id string) error
	// Update runs fn on the current record and writes the result atomically
	// with respect to other updates of the same id. Nothing is written when
	// fn fails.
	Update(ctx context.Context, id string, fn UpdateFunc) (*types.Session, error)
}

type options struct {
	ttl time.Duration
}

type Option func(*options)

func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

func newOptions(opts []Option) options {
	o := options{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Key is the storage key of a session id.
func Key(id string) string {
	return keyPrefix + id
}

func encode(s *types.Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to store invalid session: %w", err)
	}
	return sonic.Marshal(s)
}

func decode(id string, data []byte) (*types.Session, error) {
	var s types.Session
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return &s, nil
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", types.ErrSessionNotFound, id)
}
