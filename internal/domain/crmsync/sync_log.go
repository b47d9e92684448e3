package crmsync

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus is the state recorded by one audit entry
type SyncStatus string

const (
	SyncStatusStarted              SyncStatus = "started"
	SyncStatusExistingContactFound SyncStatus = "existing_contact_found"
	SyncStatusNewContactCreated    SyncStatus = "new_contact_created"
	SyncStatusCompleted            SyncStatus = "completed"
	SyncStatusFailed               SyncStatus = "failed"
)

// IsValid returns true if the status is known
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusStarted, SyncStatusExistingContactFound, SyncStatusNewContactCreated,
		SyncStatusCompleted, SyncStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true for statuses that end an attempt
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// AllSyncStatuses lists statuses in attempt order
func AllSyncStatuses() []SyncStatus {
	return []SyncStatus{
		SyncStatusStarted,
		SyncStatusExistingContactFound,
		SyncStatusNewContactCreated,
		SyncStatusCompleted,
		SyncStatusFailed,
	}
}

// SyncAction names what triggered a reconciliation attempt
type SyncAction string

const (
	SyncActionUserSignup   SyncAction = "user_signup_sync"
	SyncActionManualRetry  SyncAction = "manual_retry"
	SyncActionBulkBackfill SyncAction = "bulk_backfill"
)

// Details is the structured payload of an audit entry
type Details map[string]any

// Detail keys shared by writers and readers of the audit log
const (
	DetailEmail         = "email"
	DetailFirstName     = "firstName"
	DetailLastName      = "lastName"
	DetailContactID     = "contactId"
	DetailIsNewContact  = "isNewContact"
	DetailUserUpdated   = "userUpdated"
	DetailError         = "error"
	DetailErrorCode     = "errorCode"
	DetailErrorResponse = "errorResponse"
	DetailCorrelationID = "correlationId"
	DetailStatusCode    = "statusCode"
	DetailUpdateWarning = "updateWarning"
)

// SyncLogEntry is one immutable audit record of a reconciliation attempt.
// An attempt is a sequence of entries: started, then optionally
// existing_contact_found or new_contact_created, then completed or failed.
type SyncLogEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Action    SyncAction
	Status    SyncStatus
	Details   Details
	CreatedAt time.Time
}

// NewSyncLogEntry creates an audit entry stamped with the current time. IDs
// are UUIDv7 so entries written in the same instant still sort in order.
func NewSyncLogEntry(userID uuid.UUID, action SyncAction, status SyncStatus, details Details) *SyncLogEntry {
	if details == nil {
		details = Details{}
	}
	return &SyncLogEntry{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    userID,
		Action:    action,
		Status:    status,
		Details:   details,
		CreatedAt: time.Now(),
	}
}

// ContactID returns the contact ID recorded in the details, if any
func (e *SyncLogEntry) ContactID() string {
	if v, ok := e.Details[DetailContactID].(string); ok {
		return v
	}
	return ""
}
