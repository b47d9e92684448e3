package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/fintrack/backend/internal/domain/crmsync"
	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendEntry(t *testing.T, repo *GormSyncLogRepository, userID uuid.UUID, status crmsync.SyncStatus, at time.Time, details crmsync.Details) *crmsync.SyncLogEntry {
	t.Helper()
	entry := crmsync.NewSyncLogEntry(userID, crmsync.SyncActionUserSignup, status, details)
	entry.CreatedAt = at
	require.NoError(t, repo.Append(context.Background(), entry))
	return entry
}

func TestGormSyncLogRepository_FindByUser(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncLogRepository(setupSQLiteDB(t))

	userID := uuid.New()
	other := uuid.New()
	base := time.Now().Add(-time.Minute)

	appendEntry(t, repo, userID, crmsync.SyncStatusStarted, base, crmsync.Details{crmsync.DetailEmail: "a@x.com"})
	appendEntry(t, repo, userID, crmsync.SyncStatusNewContactCreated, base.Add(time.Second), crmsync.Details{crmsync.DetailContactID: "501"})
	appendEntry(t, repo, userID, crmsync.SyncStatusCompleted, base.Add(2*time.Second), crmsync.Details{
		crmsync.DetailContactID:    "501",
		crmsync.DetailIsNewContact: true,
	})
	appendEntry(t, repo, other, crmsync.SyncStatusFailed, base.Add(3*time.Second), nil)

	t.Run("newest first", func(t *testing.T) {
		entries, err := repo.FindByUser(ctx, userID, 10, 0)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, crmsync.SyncStatusCompleted, entries[0].Status)
		assert.Equal(t, crmsync.SyncStatusNewContactCreated, entries[1].Status)
		assert.Equal(t, crmsync.SyncStatusStarted, entries[2].Status)
		assert.Equal(t, "501", entries[0].ContactID())
		assert.Equal(t, true, entries[0].Details[crmsync.DetailIsNewContact])
	})

	t.Run("paginates", func(t *testing.T) {
		entries, err := repo.FindByUser(ctx, userID, 1, 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, crmsync.SyncStatusNewContactCreated, entries[0].Status)

		total, err := repo.CountByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("latest entry", func(t *testing.T) {
		latest, err := repo.FindLatestByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, crmsync.SyncStatusCompleted, latest.Status)

		_, err = repo.FindLatestByUser(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("recent across users", func(t *testing.T) {
		recent, err := repo.FindRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, other, recent[0].UserID)
	})

	t.Run("counts by status", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[crmsync.SyncStatusStarted])
		assert.Equal(t, int64(1), counts[crmsync.SyncStatusCompleted])
		assert.Equal(t, int64(1), counts[crmsync.SyncStatusFailed])
		assert.Zero(t, counts[crmsync.SyncStatusExistingContactFound])
	})
}

func TestGormSyncLogRepository_SameTimestampOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncLogRepository(setupSQLiteDB(t))

	userID := uuid.New()
	at := time.Now().Add(-time.Minute)
	appendEntry(t, repo, userID, crmsync.SyncStatusStarted, at, nil)
	appendEntry(t, repo, userID, crmsync.SyncStatusExistingContactFound, at, nil)
	appendEntry(t, repo, userID, crmsync.SyncStatusCompleted, at, nil)

	latest, err := repo.FindLatestByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, crmsync.SyncStatusCompleted, latest.Status)

	entries, err := repo.FindByUser(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, crmsync.SyncStatusCompleted, entries[0].Status)
	assert.Equal(t, crmsync.SyncStatusExistingContactFound, entries[1].Status)
	assert.Equal(t, crmsync.SyncStatusStarted, entries[2].Status)
}
