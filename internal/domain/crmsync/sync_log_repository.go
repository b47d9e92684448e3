package crmsync

import (
	"context"

	"github.com/google/uuid"
)

// SyncLogRepository is the append-only store behind the sync audit log
type SyncLogRepository interface {
	// Append stores a new entry; entries are never updated or deleted
	Append(ctx context.Context, entry *SyncLogEntry) error

	// FindByUser returns a user's entries newest first
	FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*SyncLogEntry, error)

	// CountByUser counts a user's entries
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// FindLatestByUser returns the most recent entry or shared.ErrNotFound
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*SyncLogEntry, error)

	// FindRecent returns the newest entries across all users
	FindRecent(ctx context.Context, limit int) ([]*SyncLogEntry, error)

	// CountByStatus groups entry counts by status
	CountByStatus(ctx context.Context) (map[SyncStatus]int64, error)
}
