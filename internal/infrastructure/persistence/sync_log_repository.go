package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/fintrack/backend/internal/domain/crmsync"
	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/fintrack/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSyncLogRepository implements crmsync.SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// newestFirst breaks created_at ties on the time-ordered entry ID
const newestFirst = "created_at DESC, id DESC"

// Append inserts a new audit entry
func (r *GormSyncLogRepository) Append(ctx context.Context, entry *crmsync.SyncLogEntry) error {
	model, err := models.SyncLogModelFromDomain(entry)
	if err != nil {
		return fmt.Errorf("failed to encode sync log details: %w", err)
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByUser returns a user's entries newest first
func (r *GormSyncLogRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*crmsync.SyncLogEntry, error) {
	var logModels []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(newestFirst).
		Limit(limit).
		Offset(offset).
		Find(&logModels).Error; err != nil {
		return nil, err
	}
	return toSyncLogEntries(logModels), nil
}

// CountByUser counts a user's entries
func (r *GormSyncLogRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.SyncLogModel{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindLatestByUser returns the most recent entry for a user
func (r *GormSyncLogRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*crmsync.SyncLogEntry, error) {
	var model models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(newestFirst).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent returns the newest entries across all users
func (r *GormSyncLogRepository) FindRecent(ctx context.Context, limit int) ([]*crmsync.SyncLogEntry, error) {
	var logModels []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Order(newestFirst).
		Limit(limit).
		Find(&logModels).Error; err != nil {
		return nil, err
	}
	return toSyncLogEntries(logModels), nil
}

// CountByStatus groups entry counts by status
func (r *GormSyncLogRepository) CountByStatus(ctx context.Context) (map[crmsync.SyncStatus]int64, error) {
	var rows []struct {
		Status crmsync.SyncStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.SyncLogModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[crmsync.SyncStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func toSyncLogEntries(logModels []models.SyncLogModel) []*crmsync.SyncLogEntry {
	entries := make([]*crmsync.SyncLogEntry, len(logModels))
	for i := range logModels {
		entries[i] = logModels[i].ToDomain()
	}
	return entries
}
