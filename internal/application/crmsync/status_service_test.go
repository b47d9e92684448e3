package crmsync

import (
	"context"
	"testing"
	"time"

	"github.com/fintrack/backend/internal/domain/crmsync"
	"github.com/fintrack/backend/internal/domain/identity"
	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatusService_GetUserSyncStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("linked user with history", func(t *testing.T) {
		users := new(MockUserRepository)
		logs := &memorySyncLog{}
		svc := NewStatusService(users, logs, zap.NewNop())

		user, err := identity.NewUser("idp_1", "a@x.com", "A", "")
		require.NoError(t, err)
		require.NoError(t, user.LinkCRMContact("hs-1"))
		users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		require.NoError(t, logs.Append(ctx, crmsync.NewSyncLogEntry(user.ID, crmsync.SyncActionUserSignup, crmsync.SyncStatusStarted, nil)))
		require.NoError(t, logs.Append(ctx, crmsync.NewSyncLogEntry(user.ID, crmsync.SyncActionUserSignup, crmsync.SyncStatusCompleted,
			crmsync.Details{crmsync.DetailContactID: "hs-1"})))

		status, err := svc.GetUserSyncStatus(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, status.UserID)
		assert.True(t, status.HasHubSpotContact)
		require.NotNil(t, status.HubSpotContactID)
		assert.Equal(t, "hs-1", *status.HubSpotContactID)
		require.NotNil(t, status.LastSyncLog)
		assert.Equal(t, "completed", status.LastSyncLog.Status)
	})

	t.Run("unlinked user without history", func(t *testing.T) {
		users := new(MockUserRepository)
		svc := NewStatusService(users, &memorySyncLog{}, zap.NewNop())

		user, err := identity.NewUser("idp_2", "b@x.com", "", "")
		require.NoError(t, err)
		users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		status, err := svc.GetUserSyncStatus(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, status.HasHubSpotContact)
		assert.Nil(t, status.HubSpotContactID)
		assert.Nil(t, status.LastSyncLog)
	})

	t.Run("unknown user", func(t *testing.T) {
		users := new(MockUserRepository)
		svc := NewStatusService(users, &memorySyncLog{}, zap.NewNop())
		id := uuid.New()
		users.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := svc.GetUserSyncStatus(ctx, id)
		assert.ErrorIs(t, err, identity.ErrUserNotFound)
	})
}

func TestStatusService_ListSyncLogs(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	logs := new(MockSyncLogRepository)
	svc := NewStatusService(users, logs, zap.NewNop())

	user, err := identity.NewUser("idp_1", "a@x.com", "", "")
	require.NoError(t, err)
	users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	newer := crmsync.NewSyncLogEntry(user.ID, crmsync.SyncActionManualRetry, crmsync.SyncStatusFailed, nil)
	older := crmsync.NewSyncLogEntry(user.ID, crmsync.SyncActionManualRetry, crmsync.SyncStatusStarted, nil)
	older.CreatedAt = newer.CreatedAt.Add(-time.Second)

	logs.On("FindByUser", mock.Anything, user.ID, 2, 2).Return([]*crmsync.SyncLogEntry{newer, older}, nil)
	logs.On("CountByUser", mock.Anything, user.ID).Return(int64(6), nil)

	list, err := svc.ListSyncLogs(ctx, user.ID, shared.Filter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(6), list.Total)
	assert.Equal(t, 2, list.Page)
	require.Len(t, list.Logs, 2)
	assert.Equal(t, "failed", list.Logs[0].Status)
	assert.True(t, list.Logs[0].CreatedAt.After(list.Logs[1].CreatedAt))
	logs.AssertExpectations(t)
}

func TestStatusService_GetStats(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	logs := new(MockSyncLogRepository)
	svc := NewStatusService(users, logs, zap.NewNop())

	users.On("Count", mock.Anything).Return(int64(8), nil)
	users.On("CountMissingContactID", mock.Anything).Return(int64(2), nil)
	logs.On("CountByStatus", mock.Anything).Return(map[crmsync.SyncStatus]int64{
		crmsync.SyncStatusCompleted: 6,
		crmsync.SyncStatusFailed:    1,
	}, nil)
	logs.On("FindRecent", mock.Anything, 10).Return([]*crmsync.SyncLogEntry{}, nil)

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), stats.TotalUsers)
	assert.Equal(t, int64(6), stats.UsersWithContact)
	assert.Equal(t, int64(2), stats.UsersWithoutContact)
	assert.Equal(t, "75.0%", stats.SyncRate)
	assert.Equal(t, int64(6), stats.LogCountsByStatus["completed"])
	assert.Equal(t, int64(0), stats.LogCountsByStatus["started"])
	assert.Len(t, stats.LogCountsByStatus, 5)
}

func TestStatusService_ListPendingUsers(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	svc := NewStatusService(users, &memorySyncLog{}, zap.NewNop())

	pending := newPendingUsers(t, 2)
	users.On("FindMissingContactID", mock.Anything, 2, 0).Return(pending, nil)
	users.On("CountMissingContactID", mock.Anything).Return(int64(3), nil)

	page, err := svc.ListPendingUsers(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page.Users, 2)
	assert.Equal(t, int64(3), page.Total)
	assert.True(t, page.HasMore)
	assert.Equal(t, pending[0].Email, page.Users[0].Email)

	users.On("FindMissingContactID", mock.Anything, 2, 2).Return(pending[:1], nil)
	page, err = svc.ListPendingUsers(ctx, 2, 2)
	require.NoError(t, err)
	assert.False(t, page.HasMore)
}
