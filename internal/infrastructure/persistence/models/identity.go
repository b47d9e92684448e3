package models

import (
	"github.com/fintrack/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	BaseModel
	ExternalID       string  `gorm:"type:varchar(255);not null;uniqueIndex"`
	Email            string  `gorm:"type:varchar(255);not null;index"`
	FirstName        string  `gorm:"type:varchar(255)"`
	LastName         string  `gorm:"type:varchar(255)"`
	HubspotContactID *string `gorm:"column:hubspot_contact_id;type:varchar(64);index"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseEntity:   m.BaseModel.toDomain(),
		ExternalID:   m.ExternalID,
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		CRMContactID: m.HubspotContactID,
	}
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.BaseModel = baseFromDomain(u.BaseEntity)
	m.ExternalID = u.ExternalID
	m.Email = u.Email
	m.FirstName = u.FirstName
	m.LastName = u.LastName
	m.HubspotContactID = u.CRMContactID
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
