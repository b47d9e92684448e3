package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence.
// Implementations must enforce uniqueness of ExternalID and return
// shared.ErrAlreadyExists when a second row for the same identity is inserted.
type UserRepository interface {
	// Create inserts a new user
	Create(ctx context.Context, user *User) error

	// Update saves the identity fields of an existing user
	Update(ctx context.Context, user *User) error

	// DeleteByExternalID removes the user owning the external identity ID
	DeleteByExternalID(ctx context.Context, externalID string) error

	// FindByID finds a user by internal ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByExternalID finds a user by identity provider ID
	FindByExternalID(ctx context.Context, externalID string) (*User, error)

	// FindMissingContactID returns users without a CRM contact, oldest first
	FindMissingContactID(ctx context.Context, limit, offset int) ([]*User, error)

	// CountMissingContactID counts users without a CRM contact
	CountMissingContactID(ctx context.Context) (int64, error)

	// SetCRMContactID persists the CRM contact link for a user
	SetCRMContactID(ctx context.Context, id uuid.UUID, contactID string) error

	// Count returns the total number of users
	Count(ctx context.Context) (int64, error)
}
