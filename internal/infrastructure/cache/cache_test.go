package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/fintrack/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("unknown message is not processed", func(t *testing.T) {
		processed, err := store.IsProcessed(ctx, "msg_unknown")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("marks once", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "msg_1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "msg_1", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)

		processed, err := store.IsProcessed(ctx, "msg_1")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("expired message can be processed again", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "msg_2", 10*time.Millisecond)
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)

		processed, err := store.IsProcessed(ctx, "msg_2")
		require.NoError(t, err)
		assert.False(t, processed)

		isNew, err := store.MarkProcessed(ctx, "msg_2", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		s := NewInMemoryIdempotencyStore()
		assert.NoError(t, s.Close())
		assert.NoError(t, s.Close())
	})
}

func TestTTLMap_EvictExpired(t *testing.T) {
	m := newTTLMap()
	defer m.close()

	now := time.Now()
	m.now = func() time.Time { return now }
	m.setIfAbsent("a", "1", time.Minute)
	m.setIfAbsent("b", "1", time.Hour)

	now = now.Add(2 * time.Minute)
	m.evictExpired()

	assert.Equal(t, 1, m.size())
	_, ok := m.get("b")
	assert.True(t, ok)
}

func TestInMemoryLockStore(t *testing.T) {
	store := NewInMemoryLockStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("second holder is refused until release", func(t *testing.T) {
		token, ok, err := store.TryLock(ctx, "user-1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotEmpty(t, token)

		_, ok, err = store.TryLock(ctx, "user-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = store.TryLock(ctx, "user-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "locks are per key")

		require.NoError(t, store.Unlock(ctx, "user-1", token))

		_, ok, err = store.TryLock(ctx, "user-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong token cannot release", func(t *testing.T) {
		_, ok, err := store.TryLock(ctx, "user-3", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		err = store.Unlock(ctx, "user-3", "not-the-token")
		assert.ErrorIs(t, err, shared.ErrLockNotHeld)
	})

	t.Run("expired lock can be retaken", func(t *testing.T) {
		token, ok, err := store.TryLock(ctx, "user-4", 10*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)
		time.Sleep(20 * time.Millisecond)

		_, ok, err = store.TryLock(ctx, "user-4", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.ErrorIs(t, store.Unlock(ctx, "user-4", token), shared.ErrLockNotHeld)
	})

	t.Run("exactly one concurrent caller wins", func(t *testing.T) {
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok, _ := store.TryLock(ctx, "user-race", time.Minute); ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})
}

func TestStoreFactory_Create(t *testing.T) {
	t.Run("no redis host uses memory", func(t *testing.T) {
		stores, err := NewStoreFactory(config.RedisConfig{}).Create()
		require.NoError(t, err)
		defer stores.Close()

		assert.Equal(t, "memory", stores.Backend)
		assert.IsType(t, &InMemoryIdempotencyStore{}, stores.Idempotency)
		assert.IsType(t, &InMemoryLockStore{}, stores.Locks)
	})

	unreachable := func(config.RedisConfig) (*redis.Client, error) {
		return nil, errors.New("connection refused")
	}

	t.Run("unreachable redis falls back with a warning", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		f := NewStoreFactory(config.RedisConfig{Host: "redis", Port: 6379}, WithLogger(zap.New(core)))
		f.connect = unreachable

		stores, err := f.Create()
		require.NoError(t, err)
		defer stores.Close()

		assert.Equal(t, "memory", stores.Backend)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		f := NewStoreFactory(config.RedisConfig{Host: "redis", Port: 6379}, WithInMemoryFallback(false))
		f.connect = unreachable

		_, err := f.Create()
		assert.ErrorContains(t, err, "connection refused")
	})
}
