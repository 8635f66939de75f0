package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/tbxark/formpilot/types"
)

const (
	defaultRedisRetries = 5
	defaultRedisBackoff = 10 * time.Millisecond
	maxRedisBackoff     = 200 * time.Millisecond
)

// RedisStore keeps sessions under "session:<id>" with SET EX.
type RedisStore struct {
	client  redis.UniversalClient
	ttl     time.Duration
	retries uint64
	backoff time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	o := newOptions(opts)
	return &RedisStore{
		client:  client,
		ttl:     o.ttl,
		retries: defaultRedisRetries,
		backoff: defaultRedisBackoff,
	}
}

// NewRedisStoreFromURL parses a redis:// URL and pings the server.
func NewRedisStoreFromURL(ctx context.Context, url string, opts ...Option) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, opts...), nil
}

// Client returns the connection the store uses, for sharing with other
// Redis-backed caches.
func (r *RedisStore) Client() redis.UniversalClient {
	return r.client
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Get(ctx context.Context, id string) (*types.Session, error) {
	data, err := r.client.GetEx(ctx, Key(id), r.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return decode(id, data)
}

func (r *RedisStore) Set(ctx context.Context, id string, s *types.Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, Key(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set session %s: %w", id, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Update is an optimistic transaction: the key is watched while fn runs and
// the write is retried from a fresh read when another client got there
// first. fn may therefore run more than once.
func (r *RedisStore) Update(ctx context.Context, id string, fn UpdateFunc) (*types.Session, error) {
	key := Key(id)
	var result *types.Session
	backoff := retry.WithMaxRetries(r.retries,
		retry.WithCappedDuration(maxRedisBackoff, retry.WithJitterPercent(25, retry.NewExponential(r.backoff))))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return notFound(id)
			}
			if err != nil {
				return fmt.Errorf("get session %s: %w", id, err)
			}
			current, err := decode(id, data)
			if err != nil {
				return err
			}

			next := current.Clone()
			if err := fn(next); err != nil {
				if errors.Is(err, ErrSkipWrite) {
					result = current
					return nil
				}
				return err
			}
			encoded, err := encode(next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, r.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			result = next
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			slog.Debug("Session update conflict, retrying", "session_id", id)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
