package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation = "ERR_VALIDATION"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller lacks permission
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeUserNotFound  = "ERR_USER_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"
)

// Input error codes
const (
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// Webhook error codes
const (
	ErrCodeSignatureInvalid = "ERR_WEBHOOK_SIGNATURE_INVALID"
	ErrCodeSignatureExpired = "ERR_WEBHOOK_SIGNATURE_EXPIRED"
	ErrCodePayloadMalformed = "ERR_WEBHOOK_PAYLOAD_MALFORMED"
)

// CRM sync error codes
const (
	// ErrCodeMissingPrimaryEmail is used when an identity has no usable email
	ErrCodeMissingPrimaryEmail = "ERR_MISSING_PRIMARY_EMAIL"
	ErrCodeInvalidContact      = "ERR_INVALID_CONTACT_FIELDS"
	ErrCodeSyncInProgress      = "ERR_SYNC_IN_PROGRESS"
	ErrCodeInvalidBulkLimit    = "ERR_INVALID_BULK_LIMIT"
	// ErrCodeRemoteSearchFailed and friends are used when the CRM rejects a call
	ErrCodeRemoteSearchFailed = "ERR_REMOTE_SEARCH_FAILED"
	ErrCodeRemoteCreateFailed = "ERR_REMOTE_CREATE_FAILED"
	ErrCodeRemoteUpdateFailed = "ERR_REMOTE_UPDATE_FAILED"
	ErrCodeContactLinkFailed  = "ERR_CONTACT_LINK_FAILED"
	ErrCodeScheduleFailed     = "ERR_SYNC_SCHEDULE_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeUserNotFound:  http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	// Webhook errors -> 400 so the sender retries only what it can fix
	ErrCodeSignatureInvalid: http.StatusBadRequest,
	ErrCodeSignatureExpired: http.StatusBadRequest,
	ErrCodePayloadMalformed: http.StatusBadRequest,

	// Sync errors
	ErrCodeMissingPrimaryEmail: http.StatusUnprocessableEntity,
	ErrCodeInvalidContact:      http.StatusUnprocessableEntity,
	ErrCodeSyncInProgress:      http.StatusConflict,
	ErrCodeInvalidBulkLimit:    http.StatusBadRequest,
	ErrCodeRemoteSearchFailed:  http.StatusBadGateway,
	ErrCodeRemoteCreateFailed:  http.StatusBadGateway,
	ErrCodeRemoteUpdateFailed:  http.StatusBadGateway,
	ErrCodeContactLinkFailed:   http.StatusInternalServerError,
	ErrCodeScheduleFailed:      http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"UNAUTHORIZED":           ErrCodeUnauthorized,
	"FORBIDDEN":              ErrCodeForbidden,
	"USER_NOT_FOUND":         ErrCodeUserNotFound,
	"SIGNATURE_INVALID":      ErrCodeSignatureInvalid,
	"SIGNATURE_EXPIRED":      ErrCodeSignatureExpired,
	"PAYLOAD_MALFORMED":      ErrCodePayloadMalformed,
	"MISSING_PRIMARY_EMAIL":  ErrCodeMissingPrimaryEmail,
	"INVALID_CONTACT_FIELDS": ErrCodeInvalidContact,
	"SYNC_IN_PROGRESS":       ErrCodeSyncInProgress,
	"INVALID_BULK_LIMIT":     ErrCodeInvalidBulkLimit,
	"REMOTE_SEARCH_FAILED":   ErrCodeRemoteSearchFailed,
	"REMOTE_CREATE_FAILED":   ErrCodeRemoteCreateFailed,
	"REMOTE_UPDATE_FAILED":   ErrCodeRemoteUpdateFailed,
	"CONTACT_LINK_FAILED":    ErrCodeContactLinkFailed,
	"SYNC_SCHEDULE_FAILED":   ErrCodeScheduleFailed,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// ExposesCause reports whether responses for code carry the full error chain.
// Remote failures include the CRM's own message so operators can act on it.
func ExposesCause(code string) bool {
	return GetHTTPStatus(code) == http.StatusBadGateway
}
