package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/formpilot/types"
)

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newRedisStore(t *testing.T, opts ...Option) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, opts...), mr
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, types.ErrSessionNotFound)
		_, err = store.Update(ctx, "nope", func(s *types.Session) error { return nil })
		assert.ErrorIs(t, err, types.ErrSessionNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		s := types.NewSession("don_xin_viec", testNow)
		s.Answers["full_name"] = "Nguyễn Văn An"
		require.NoError(t, store.Set(ctx, "a", s))

		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "don_xin_viec", got.FormID)
		assert.Equal(t, "Nguyễn Văn An", got.Answers["full_name"])
		assert.Equal(t, types.StageAsk, got.Stage)
		assert.True(t, got.CreatedAt.Equal(testNow))

		got.Answers["full_name"] = "changed"
		again, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "Nguyễn Văn An", again.Answers["full_name"])
	})

	t.Run("invalid record rejected", func(t *testing.T) {
		s := types.NewSession("f", testNow)
		s.Stage = types.StageConfirm
		assert.Error(t, store.Set(ctx, "bad", s))
	})

	t.Run("update", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "u", types.NewSession("f", testNow)))
		got, err := store.Update(ctx, "u", func(s *types.Session) error {
			s.FieldIndex = 1
			s.Answers["x"] = "1"
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, got.FieldIndex)

		stored, err := store.Get(ctx, "u")
		require.NoError(t, err)
		assert.Equal(t, 1, stored.FieldIndex)
		assert.Equal(t, "1", stored.Answers["x"])
	})

	t.Run("failed update writes nothing", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "f", types.NewSession("f", testNow)))
		boom := errors.New("boom")
		_, err := store.Update(ctx, "f", func(s *types.Session) error {
			s.FieldIndex = 3
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.Update(ctx, "f", func(s *types.Session) error {
			s.FieldIndex = 4
			return ErrSkipWrite
		})
		require.NoError(t, err)
		assert.Equal(t, 0, got.FieldIndex)

		stored, err := store.Get(ctx, "f")
		require.NoError(t, err)
		assert.Equal(t, 0, stored.FieldIndex)
	})

	t.Run("update producing invalid record", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "i", types.NewSession("f", testNow)))
		_, err := store.Update(ctx, "i", func(s *types.Session) error {
			s.Stage = "limbo"
			return nil
		})
		assert.Error(t, err)
		stored, err := store.Get(ctx, "i")
		require.NoError(t, err)
		assert.Equal(t, types.StageAsk, stored.Stage)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "d", types.NewSession("f", testNow)))
		require.NoError(t, store.Delete(ctx, "d"))
		_, err := store.Get(ctx, "d")
		assert.ErrorIs(t, err, types.ErrSessionNotFound)
		assert.NoError(t, store.Delete(ctx, "d"))
	})

	t.Run("delete during update is not undone", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "gone", types.NewSession("f", testNow)))
		deleted := false
		_, err := store.Update(ctx, "gone", func(s *types.Session) error {
			if !deleted {
				deleted = true
				require.NoError(t, store.Delete(ctx, "gone"))
			}
			s.FieldIndex = 1
			s.Answers["x"] = "1"
			return nil
		})
		assert.ErrorIs(t, err, types.ErrSessionNotFound)
		_, err = store.Get(ctx, "gone")
		assert.ErrorIs(t, err, types.ErrSessionNotFound)
	})

	t.Run("concurrent updates are serialised", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "c", types.NewSession("f", testNow)))
		const workers = 8
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Update(ctx, "c", func(s *types.Session) error {
					s.FieldIndex++
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		got, err := store.Get(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, workers, got.FieldIndex)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t)
	store.retries = 50
	storeContract(t, store)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := testNow
	store := NewMemoryStore(WithTTL(time.Hour))
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "a", types.NewSession("f", now)))
	require.NoError(t, store.Set(ctx, "b", types.NewSession("f", now)))

	now = now.Add(50 * time.Minute)
	_, err := store.Get(ctx, "a")
	require.NoError(t, err, "read refreshes the expiry")

	now = now.Add(30 * time.Minute)
	_, err = store.Get(ctx, "a")
	require.NoError(t, err)
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Sweep())
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, WithTTL(time.Hour))

	require.NoError(t, store.Set(ctx, "a", types.NewSession("f", testNow)))
	require.NoError(t, store.Set(ctx, "b", types.NewSession("f", testNow)))
	assert.True(t, mr.Exists("session:a"))

	mr.FastForward(50 * time.Minute)
	_, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("session:a"))

	mr.FastForward(30 * time.Minute)
	_, err = store.Get(ctx, "a")
	require.NoError(t, err)
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)
}

func TestRedisStoreCorruptRecord(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, mr.Set("session:x", "{not json"))
	_, err := store.Get(ctx, "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrSessionNotFound)

	require.NoError(t, mr.Set("session:y", `{"form_id":"f","stage":"confirm","answers":{}}`))
	_, err = store.Get(ctx, "y")
	assert.Error(t, err)
}

func TestNewRedisStoreFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStoreFromURL(context.Background(), "redis://"+mr.Addr()+"/0", WithTTL(time.Minute))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.NotNil(t, store.Client())

	_, err = NewRedisStoreFromURL(context.Background(), "http://nope")
	assert.Error(t, err)
}
