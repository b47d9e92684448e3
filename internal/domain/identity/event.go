package identity

import (
	"bytes"
	"encoding/json"

	"github.com/fintrack/backend/internal/domain/shared"
)

// Webhook ingestion errors
var (
	ErrSignatureInvalid = shared.NewDomainError("SIGNATURE_INVALID", "Webhook signature does not match")
	ErrSignatureExpired = shared.NewDomainError("SIGNATURE_EXPIRED", "Webhook timestamp outside tolerance window")
	ErrPayloadMalformed = shared.NewDomainError("PAYLOAD_MALFORMED", "Webhook payload is not well-formed")
)

// EventType is the lifecycle event type sent by the identity provider
type EventType string

const (
	EventUserCreated EventType = "user.created"
	EventUserUpdated EventType = "user.updated"
	EventUserDeleted EventType = "user.deleted"
)

// Event is one lifecycle event delivered by the identity provider
type Event struct {
	Type   EventType `json:"type"`
	Object string    `json:"object,omitempty"`
	Data   EventData `json:"data"`

	decodeErr error
}

// EventData is the user snapshot carried by a lifecycle event
type EventData struct {
	ID                    string         `json:"id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	Deleted               bool           `json:"deleted,omitempty"`
}

// EmailAddress is one email record on an identity
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// IsDispatchable reports whether the event has the type and identity ID needed for routing
func (e Event) IsDispatchable() bool {
	return e.Type != "" && e.Data.ID != ""
}

// DecodeError is set on a batch item that could not be decoded
func (e Event) DecodeError() error {
	return e.decodeErr
}

// PrimaryEmail resolves the email record selected by primary_email_address_id
func (d EventData) PrimaryEmail() (string, bool) {
	if d.PrimaryEmailAddressID == "" {
		return "", false
	}
	for _, addr := range d.EmailAddresses {
		if addr.ID == d.PrimaryEmailAddressID && addr.EmailAddress != "" {
			return addr.EmailAddress, true
		}
	}
	return "", false
}

// Names returns first and last name, empty when absent
func (d EventData) Names() (string, string) {
	var first, last string
	if d.FirstName != nil {
		first = *d.FirstName
	}
	if d.LastName != nil {
		last = *d.LastName
	}
	return first, last
}

// ParseEvents decodes a webhook body holding either one event object or an
// array of events. An array item that fails to decode is returned as a
// non-dispatchable event carrying its DecodeError.
func ParseEvents(payload []byte) ([]Event, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, ErrPayloadMalformed
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, ErrPayloadMalformed.WithCause(err)
		}
		events := make([]Event, len(items))
		for i, item := range items {
			if err := json.Unmarshal(item, &events[i]); err != nil {
				events[i] = Event{decodeErr: ErrPayloadMalformed.WithCause(err)}
			}
		}
		return events, nil
	}

	if trimmed[0] != '{' {
		return nil, ErrPayloadMalformed
	}
	var event Event
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, ErrPayloadMalformed.WithCause(err)
	}
	return []Event{event}, nil
}
