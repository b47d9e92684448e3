package crmsync

import (
	"context"
	"sync"

	"github.com/fintrack/backend/internal/domain/crmsync"
	"github.com/fintrack/backend/internal/domain/identity"
	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	args := m.Called(ctx, externalID)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByExternalID(ctx context.Context, externalID string) (*identity.User, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindMissingContactID(ctx context.Context, limit, offset int) ([]*identity.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.User), args.Error(1)
}

func (m *MockUserRepository) CountMissingContactID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) SetCRMContactID(ctx context.Context, id uuid.UUID, contactID string) error {
	args := m.Called(ctx, id, contactID)
	return args.Error(0)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockContactGateway is a mock implementation of crmsync.ContactGateway
type MockContactGateway struct {
	mock.Mock
}

func (m *MockContactGateway) SearchByEmail(ctx context.Context, email string) (*crmsync.Contact, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crmsync.Contact), args.Error(1)
}

func (m *MockContactGateway) CreateContact(ctx context.Context, fields crmsync.ContactFields) (string, error) {
	args := m.Called(ctx, fields)
	return args.String(0), args.Error(1)
}

func (m *MockContactGateway) UpdateContact(ctx context.Context, contactID string, fields crmsync.ContactFields) error {
	args := m.Called(ctx, contactID, fields)
	return args.Error(0)
}

// MockSyncLogRepository is a mock implementation of crmsync.SyncLogRepository
type MockSyncLogRepository struct {
	mock.Mock
}

func (m *MockSyncLogRepository) Append(ctx context.Context, entry *crmsync.SyncLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockSyncLogRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*crmsync.SyncLogEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*crmsync.SyncLogEntry), args.Error(1)
}

func (m *MockSyncLogRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSyncLogRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*crmsync.SyncLogEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crmsync.SyncLogEntry), args.Error(1)
}

func (m *MockSyncLogRepository) FindRecent(ctx context.Context, limit int) ([]*crmsync.SyncLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*crmsync.SyncLogEntry), args.Error(1)
}

func (m *MockSyncLogRepository) CountByStatus(ctx context.Context) (map[crmsync.SyncStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[crmsync.SyncStatus]int64), args.Error(1)
}

// memorySyncLog is an append-only in-memory audit log
type memorySyncLog struct {
	mu      sync.Mutex
	entries []*crmsync.SyncLogEntry
}

func (r *memorySyncLog) Append(_ context.Context, entry *crmsync.SyncLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memorySyncLog) FindByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*crmsync.SyncLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*crmsync.SyncLogEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].UserID == userID {
			out = append(out, r.entries[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memorySyncLog) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	entries, _ := r.FindByUser(ctx, userID, 0, 0)
	return int64(len(entries)), nil
}

func (r *memorySyncLog) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*crmsync.SyncLogEntry, error) {
	entries, _ := r.FindByUser(ctx, userID, 1, 0)
	if len(entries) == 0 {
		return nil, shared.ErrNotFound
	}
	return entries[0], nil
}

func (r *memorySyncLog) FindRecent(_ context.Context, limit int) ([]*crmsync.SyncLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*crmsync.SyncLogEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

func (r *memorySyncLog) CountByStatus(_ context.Context) (map[crmsync.SyncStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[crmsync.SyncStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

// statuses returns the user's entry statuses oldest first
func (r *memorySyncLog) statuses(userID uuid.UUID) []crmsync.SyncStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []crmsync.SyncStatus
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e.Status)
		}
	}
	return out
}

// last returns the user's most recent entry
func (r *memorySyncLog) last(userID uuid.UUID) *crmsync.SyncLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].UserID == userID {
			return r.entries[i]
		}
	}
	return nil
}

var _ crmsync.SyncLogRepository = (*memorySyncLog)(nil)
