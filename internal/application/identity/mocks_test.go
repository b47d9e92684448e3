package identity

import (
	"context"
	"sync"

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

// MockContactSyncScheduler is a mock implementation of ContactSyncScheduler
type MockContactSyncScheduler struct {
	mock.Mock
}

func (m *MockContactSyncScheduler) ScheduleSignupSync(ctx context.Context, user *identity.User) {
	m.Called(ctx, user)
}

// memoryUserRepository enforces one user per external ID like the unique index
type memoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*identity.User
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: make(map[string]*identity.User)}
}

func (r *memoryUserRepository) Create(_ context.Context, user *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ExternalID]; ok {
		return shared.ErrAlreadyExists
	}
	clone := *user
	r.users[user.ExternalID] = &clone
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ExternalID]; !ok {
		return shared.ErrNotFound
	}
	clone := *user
	r.users[user.ExternalID] = &clone
	return nil
}

func (r *memoryUserRepository) DeleteByExternalID(_ context.Context, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[externalID]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, externalID)
	return nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryUserRepository) FindByExternalID(_ context.Context, externalID string) (*identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[externalID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memoryUserRepository) FindMissingContactID(context.Context, int, int) ([]*identity.User, error) {
	return nil, nil
}

func (r *memoryUserRepository) CountMissingContactID(context.Context) (int64, error) {
	return 0, nil
}

func (r *memoryUserRepository) SetCRMContactID(context.Context, uuid.UUID, string) error {
	return nil
}

func (r *memoryUserRepository) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

var _ identity.UserRepository = (*memoryUserRepository)(nil)
