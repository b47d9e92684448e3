package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockPrefix namespaces per-user reconciliation locks
const DefaultLockPrefix = "crm_sync:lock:"

// unlockScript deletes the key only when it still holds the caller's token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLockStore implements shared.LockStore with SET NX PX and a
// compare-and-delete release
type RedisLockStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisLockStore creates a lock store on an existing client
func NewRedisLockStore(client redis.UniversalClient, keyPrefix string) *RedisLockStore {
	if keyPrefix == "" {
		keyPrefix = DefaultLockPrefix
	}
	return &RedisLockStore{client: client, keyPrefix: keyPrefix}
}

// TryLock takes key for ttl without waiting
func (s *RedisLockStore) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	err := s.client.SetArgs(ctx, s.keyPrefix+key, token, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return token, true, nil
}

// Unlock releases key if token still owns it
func (s *RedisLockStore) Unlock(ctx context.Context, key, token string) error {
	n, err := unlockScript.Run(ctx, s.client, []string{s.keyPrefix + key}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	if n == 0 {
		return shared.ErrLockNotHeld
	}
	return nil
}

// Close is a no-op; the client belongs to whoever created it
func (s *RedisLockStore) Close() error {
	return nil
}

var _ shared.LockStore = (*RedisLockStore)(nil)
