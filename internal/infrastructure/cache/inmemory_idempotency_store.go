package cache

import (
	"context"
	"time"

	"github.com/fintrack/backend/internal/domain/shared"
)

// InMemoryIdempotencyStore remembers processed webhook message IDs in process.
// State is not shared between instances, so it only suits single-replica
// deployments and tests.
type InMemoryIdempotencyStore struct {
	entries *ttlMap
}

// NewInMemoryIdempotencyStore creates a new in-memory idempotency store
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{entries: newTTLMap()}
}

// MarkProcessed records messageID for ttl. It returns false if the ID was already recorded.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, messageID string, ttl time.Duration) (bool, error) {
	return s.entries.setIfAbsent(messageID, "1", ttl), nil
}

// IsProcessed reports whether messageID was recorded and has not expired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, messageID string) (bool, error) {
	_, ok := s.entries.get(messageID)
	return ok, nil
}

// Close stops the eviction loop. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.entries.close()
	return nil
}

// Size returns the number of stored IDs, expired ones included until evicted
func (s *InMemoryIdempotencyStore) Size() int {
	return s.entries.size()
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
