package identity

import (
	"regexp"
	"strings"

	"github.com/fintrack/backend/internal/domain/shared"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Identity errors
var (
	ErrUserNotFound        = shared.NewDomainError("USER_NOT_FOUND", "User not found")
	ErrMissingPrimaryEmail = shared.NewDomainError("MISSING_PRIMARY_EMAIL", "Identity has no resolvable primary email")
)

// User is the local system-of-record for one identity provider account.
// ExternalID is assigned by the identity provider and never changes; CRMContactID
// stays nil until reconciliation links the user to a remote CRM contact.
type User struct {
	shared.BaseEntity
	ExternalID   string
	Email        string
	FirstName    string
	LastName     string
	CRMContactID *string
}

// NewUser creates a new user for an identity provider account
func NewUser(externalID, email, firstName, lastName string) (*User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External identity ID cannot be empty")
	}
	if len(externalID) > 255 {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External identity ID cannot exceed 255 characters")
	}

	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	return &User{
		BaseEntity: shared.NewBaseEntity(),
		ExternalID: externalID,
		Email:      email,
		FirstName:  strings.TrimSpace(firstName),
		LastName:   strings.TrimSpace(lastName),
	}, nil
}

// UpdateProfile replaces the identity fields mirrored from the identity provider.
// The CRM contact link is left untouched.
func (u *User) UpdateProfile(email, firstName, lastName string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	u.Email = email
	u.FirstName = strings.TrimSpace(firstName)
	u.LastName = strings.TrimSpace(lastName)
	u.Touch()
	return nil
}

// LinkCRMContact records the remote CRM contact owned by this user
func (u *User) LinkCRMContact(contactID string) error {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return shared.NewDomainError("INVALID_CONTACT_ID", "CRM contact ID cannot be empty")
	}

	u.CRMContactID = &contactID
	u.Touch()
	return nil
}

// HasCRMContact returns true once the user has been reconciled
func (u *User) HasCRMContact() bool {
	return u.CRMContactID != nil && *u.CRMContactID != ""
}

// ContactID returns the linked CRM contact ID or an empty string
func (u *User) ContactID() string {
	if u.CRMContactID == nil {
		return ""
	}
	return *u.CRMContactID
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 255 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 255 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
