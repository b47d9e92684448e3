package models

import (
	"encoding/json"
	"time"

	"github.com/fintrack/backend/internal/domain/crmsync"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SyncLogModel is the persistence model for a SyncLogEntry.
// Rows are insert-only.
type SyncLogModel struct {
	ID        uuid.UUID          `gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID          `gorm:"type:uuid;not null;index:idx_sync_logs_user_created,priority:1"`
	Action    crmsync.SyncAction `gorm:"type:varchar(50);not null"`
	Status    crmsync.SyncStatus `gorm:"type:varchar(50);not null;index"`
	Details   datatypes.JSON     `gorm:"type:jsonb"`
	CreatedAt time.Time          `gorm:"not null;index:idx_sync_logs_user_created,priority:2,sort:desc"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "hubspot_sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLogEntry.
// Unreadable details are surfaced as a raw string rather than dropped.
func (m *SyncLogModel) ToDomain() *crmsync.SyncLogEntry {
	details := crmsync.Details{}
	if len(m.Details) > 0 {
		if err := json.Unmarshal(m.Details, &details); err != nil {
			details = crmsync.Details{"raw": string(m.Details)}
		}
	}
	return &crmsync.SyncLogEntry{
		ID:        m.ID,
		UserID:    m.UserID,
		Action:    m.Action,
		Status:    m.Status,
		Details:   details,
		CreatedAt: m.CreatedAt,
	}
}

// SyncLogModelFromDomain creates a persistence model from a domain SyncLogEntry.
func SyncLogModelFromDomain(e *crmsync.SyncLogEntry) (*SyncLogModel, error) {
	details := e.Details
	if details == nil {
		details = crmsync.Details{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	return &SyncLogModel{
		ID:        e.ID,
		UserID:    e.UserID,
		Action:    e.Action,
		Status:    e.Status,
		Details:   datatypes.JSON(raw),
		CreatedAt: e.CreatedAt,
	}, nil
}
