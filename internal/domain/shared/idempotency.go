package shared

import (
	"context"
	"errors"
	"time"
)

// IdempotencyStore stores processed message IDs to prevent duplicate processing
type IdempotencyStore interface {
	// MarkProcessed marks a message as processed with a TTL
	// Returns true if the message was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a message has already been processed
	IsProcessed(ctx context.Context, messageID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// ErrLockNotHeld is returned when releasing a lock owned by someone else or already expired.
var ErrLockNotHeld = errors.New("lock: not held by caller")

// LockStore provides short-lived advisory locks keyed by an arbitrary string.
type LockStore interface {
	// TryLock attempts to take the lock without waiting.
	// It returns an opaque token and true on success, or false if another holder owns it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)

	// Unlock releases the lock if token still owns it.
	Unlock(ctx context.Context, key, token string) error

	// Close closes the store and releases resources
	Close() error
}
