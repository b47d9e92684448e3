package cache

import (
	"context"
	"time"

	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InMemoryLockStore is a process-local LockStore. Locks expire after their
// TTL so a crashed holder cannot block a key forever.
type InMemoryLockStore struct {
	locks *ttlMap
}

// NewInMemoryLockStore creates a new in-memory lock store
func NewInMemoryLockStore() *InMemoryLockStore {
	return &InMemoryLockStore{locks: newTTLMap()}
}

// TryLock takes key for ttl if no live holder exists
func (s *InMemoryLockStore) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	if !s.locks.setIfAbsent(key, token, ttl) {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock releases key if token still owns it
func (s *InMemoryLockStore) Unlock(_ context.Context, key, token string) error {
	if !s.locks.deleteIf(key, token) {
		return shared.ErrLockNotHeld
	}
	return nil
}

// Close stops the eviction loop
func (s *InMemoryLockStore) Close() error {
	s.locks.close()
	return nil
}

var _ shared.LockStore = (*InMemoryLockStore)(nil)
