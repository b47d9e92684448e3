package handler

import (
	"context"

	crmsyncapp "github.com/fintrack/backend/internal/application/crmsync"
	identityapp "github.com/fintrack/backend/internal/application/identity"
	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/fintrack/backend/internal/infrastructure/webhook"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) ProcessWebhook(ctx context.Context, headers webhook.Headers, payload []byte) (*identityapp.WebhookResult, error) {
	args := m.Called(ctx, headers, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityapp.WebhookResult), args.Error(1)
}

type MockSyncRetrier struct {
	mock.Mock
}

func (m *MockSyncRetrier) RetrySyncForUser(ctx context.Context, userID uuid.UUID) (*crmsyncapp.ReconcileResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crmsyncapp.ReconcileResult), args.Error(1)
}

type MockBulkSyncer struct {
	mock.Mock
}

func (m *MockBulkSyncer) BulkBackfill(ctx context.Context, limit int) (*crmsyncapp.BulkSyncSummary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crmsyncapp.BulkSyncSummary), args.Error(1)
}

type MockSyncStatusReader struct {
	mock.Mock
}

func (m *MockSyncStatusReader) GetUserSyncStatus(ctx context.Context, userID uuid.UUID) (*crmsyncapp.UserSyncStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crmsyncapp.UserSyncStatus), args.Error(1)
}

func (m *MockSyncStatusReader) ListSyncLogs(ctx context.Context, userID uuid.UUID, filter shared.Filter) (*crmsyncapp.SyncLogList, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crmsyncapp.SyncLogList), args.Error(1)
}

func (m *MockSyncStatusReader) GetStats(ctx context.Context) (*crmsyncapp.SyncStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crmsyncapp.SyncStats), args.Error(1)
}

func (m *MockSyncStatusReader) ListPendingUsers(ctx context.Context, limit, offset int) (*crmsyncapp.PendingUsersPage, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crmsyncapp.PendingUsersPage), args.Error(1)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}
