package crmsync

import (
	"time"

	"github.com/fintrack/backend/internal/domain/crmsync"
	"github.com/fintrack/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// ReconcileInput identifies the user and the identity fields to push to the CRM
type ReconcileInput struct {
	UserID    uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Action    crmsync.SyncAction
}

// ReconcileInputFromUser builds an input from the user's current fields
func ReconcileInputFromUser(user *identity.User, action crmsync.SyncAction) ReconcileInput {
	return ReconcileInput{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Action:    action,
	}
}

// ReconcileResult is the outcome of a successful reconciliation
type ReconcileResult struct {
	ContactID    string `json:"contactId"`
	IsNewContact bool   `json:"isNewContact"`
}

// Bulk result statuses
const (
	BulkResultSuccess = "success"
	BulkResultError   = "error"
)

// BulkSyncResult is the per-user outcome of a backfill run
type BulkSyncResult struct {
	UserID       uuid.UUID `json:"userId"`
	Email        string    `json:"email"`
	Status       string    `json:"status"`
	ContactID    string    `json:"contactId,omitempty"`
	IsNewContact bool      `json:"isNewContact,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// BulkSyncSummary aggregates a backfill run
type BulkSyncSummary struct {
	Processed   int              `json:"processed"`
	Synced      int              `json:"synced"`
	Errors      int              `json:"errors"`
	SuccessRate string           `json:"successRate"`
	Results     []BulkSyncResult `json:"results"`
}

// SyncLogDTO is the read model of one audit entry
type SyncLogDTO struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Action    string          `json:"action"`
	Status    string          `json:"status"`
	Details   crmsync.Details `json:"details"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ToSyncLogDTO converts an audit entry to its read model
func ToSyncLogDTO(e *crmsync.SyncLogEntry) SyncLogDTO {
	return SyncLogDTO{
		ID:        e.ID,
		UserID:    e.UserID,
		Action:    string(e.Action),
		Status:    string(e.Status),
		Details:   e.Details,
		CreatedAt: e.CreatedAt,
	}
}

// ToSyncLogDTOs converts a slice of audit entries
func ToSyncLogDTOs(entries []*crmsync.SyncLogEntry) []SyncLogDTO {
	dtos := make([]SyncLogDTO, len(entries))
	for i, e := range entries {
		dtos[i] = ToSyncLogDTO(e)
	}
	return dtos
}

// UserSyncStatus is the current CRM linkage of a user plus its last audit entry
type UserSyncStatus struct {
	UserID            uuid.UUID   `json:"userId"`
	HasHubSpotContact bool        `json:"hasHubSpotContact"`
	HubSpotContactID  *string     `json:"hubspotContactId"`
	LastSyncLog       *SyncLogDTO `json:"lastSyncLog"`
}

// SyncLogList is a page of a user's audit history
type SyncLogList struct {
	Logs     []SyncLogDTO `json:"logs"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}

// SyncStats summarizes CRM linkage across all users
type SyncStats struct {
	TotalUsers          int64            `json:"totalUsers"`
	UsersWithContact    int64            `json:"usersWithContact"`
	UsersWithoutContact int64            `json:"usersWithoutContact"`
	SyncRate            string           `json:"syncRate"`
	LogCountsByStatus   map[string]int64 `json:"logCountsByStatus"`
	RecentLogs          []SyncLogDTO     `json:"recentLogs"`
}

// PendingUser is a user that still lacks a CRM contact
type PendingUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
}

// PendingUsersPage is a page of users awaiting sync
type PendingUsersPage struct {
	Users   []PendingUser `json:"users"`
	Total   int64         `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	HasMore bool          `json:"hasMore"`
}
