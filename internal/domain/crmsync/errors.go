package crmsync

import "github.com/fintrack/backend/internal/domain/shared"

// Reconciliation errors
var (
	ErrRemoteSearchFailed = shared.NewDomainError("REMOTE_SEARCH_FAILED", "CRM contact search failed")
	ErrRemoteCreateFailed = shared.NewDomainError("REMOTE_CREATE_FAILED", "CRM contact creation failed")
	ErrRemoteUpdateFailed = shared.NewDomainError("REMOTE_UPDATE_FAILED", "CRM contact update failed")
	ErrSyncInProgress     = shared.NewDomainError("SYNC_IN_PROGRESS", "A CRM sync for this user is already running")
	ErrInvalidContact     = shared.NewDomainError("INVALID_CONTACT_FIELDS", "User fields cannot be written to a CRM contact")
	ErrLinkFailed         = shared.NewDomainError("CONTACT_LINK_FAILED", "Failed to store the CRM contact on the user")
	ErrScheduleFailed     = shared.NewDomainError("SYNC_SCHEDULE_FAILED", "Background CRM sync could not be scheduled")
	ErrInvalidBulkLimit   = shared.NewDomainError("INVALID_BULK_LIMIT", "Bulk sync limit is out of range")
)
