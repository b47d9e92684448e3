package crmsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/fintrack/backend/internal/domain/crmsync"
	"github.com/fintrack/backend/internal/domain/identity"
	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const recentLogsLimit = 10

// StatusService answers read-only questions about CRM linkage and sync history
type StatusService struct {
	users  identity.UserRepository
	logs   crmsync.SyncLogRepository
	logger *zap.Logger
}

// NewStatusService creates a new StatusService
func NewStatusService(users identity.UserRepository, logs crmsync.SyncLogRepository, logger *zap.Logger) *StatusService {
	return &StatusService{
		users:  users,
		logs:   logs,
		logger: logger,
	}
}

// GetUserSyncStatus returns whether the user is linked plus the latest audit entry
func (s *StatusService) GetUserSyncStatus(ctx context.Context, userID uuid.UUID) (*UserSyncStatus, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := &UserSyncStatus{
		UserID:            user.ID,
		HasHubSpotContact: user.HasCRMContact(),
		HubSpotContactID:  user.CRMContactID,
	}

	latest, err := s.logs.FindLatestByUser(ctx, userID)
	switch {
	case err == nil:
		dto := ToSyncLogDTO(latest)
		status.LastSyncLog = &dto
	case errors.Is(err, shared.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to load latest sync log: %w", err)
	}
	return status, nil
}

// ListSyncLogs returns a user's audit history, newest first
func (s *StatusService) ListSyncLogs(ctx context.Context, userID uuid.UUID, filter shared.Filter) (*SyncLogList, error) {
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = shared.DefaultFilter().PageSize
	}

	entries, err := s.logs.FindByUser(ctx, userID, filter.PageSize, filter.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	total, err := s.logs.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync logs: %w", err)
	}

	return &SyncLogList{
		Logs:     ToSyncLogDTOs(entries),
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// GetStats summarizes linkage across all users
func (s *StatusService) GetStats(ctx context.Context) (*SyncStats, error) {
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	missing, err := s.users.CountMissingContactID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users missing a contact: %w", err)
	}
	counts, err := s.logs.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync logs: %w", err)
	}
	recent, err := s.logs.FindRecent(ctx, recentLogsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent sync logs: %w", err)
	}

	byStatus := make(map[string]int64, len(crmsync.AllSyncStatuses()))
	for _, st := range crmsync.AllSyncStatuses() {
		byStatus[string(st)] = counts[st]
	}

	linked := total - missing
	return &SyncStats{
		TotalUsers:          total,
		UsersWithContact:    linked,
		UsersWithoutContact: missing,
		SyncRate:            successRate(int(linked), int(total)),
		LogCountsByStatus:   byStatus,
		RecentLogs:          ToSyncLogDTOs(recent),
	}, nil
}

// ListPendingUsers pages through users that still need a CRM contact
func (s *StatusService) ListPendingUsers(ctx context.Context, limit, offset int) (*PendingUsersPage, error) {
	if limit < 1 || limit > MaxBulkLimit {
		limit = DefaultBulkLimit
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.FindMissingContactID(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users missing a contact: %w", err)
	}
	total, err := s.users.CountMissingContactID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users missing a contact: %w", err)
	}

	page := &PendingUsersPage{
		Users:   make([]PendingUser, len(users)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(users)) < total,
	}
	for i, u := range users {
		page.Users[i] = PendingUser{
			ID:        u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			CreatedAt: u.CreatedAt,
		}
	}
	return page, nil
}

func (s *StatusService) findUser(ctx context.Context, userID uuid.UUID) (*identity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
