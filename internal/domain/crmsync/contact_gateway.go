package crmsync

import (
	"context"
	"fmt"
)

// Contact is the subset of a remote CRM contact the sync cares about
type Contact struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// ContactFields are the identity properties written to a remote contact
type ContactFields struct {
	Email     string `validate:"required,email,max=255"`
	FirstName string `validate:"max=255"`
	LastName  string `validate:"max=255"`
}

// ContactGateway is the port to the external CRM contact API
type ContactGateway interface {
	// SearchByEmail returns the contact whose email matches exactly, or nil when none exists
	SearchByEmail(ctx context.Context, email string) (*Contact, error)

	// CreateContact creates a contact and returns its remote ID
	CreateContact(ctx context.Context, fields ContactFields) (string, error)

	// UpdateContact overwrites the given fields on an existing contact
	UpdateContact(ctx context.Context, contactID string, fields ContactFields) error
}

// RemoteError carries the remote CRM's structured failure response
type RemoteError struct {
	StatusCode    int
	Category      string
	Message       string
	CorrelationID string
	Body          string
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "remote request failed"
	}
	if e.CorrelationID != "" {
		return fmt.Sprintf("crm: HTTP %d: %s (correlation %s)", e.StatusCode, msg, e.CorrelationID)
	}
	return fmt.Sprintf("crm: HTTP %d: %s", e.StatusCode, msg)
}
