package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fintrack/backend/internal/domain/identity"
	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/fintrack/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// missingContact selects users not yet linked to a CRM contact
func missingContact(db *gorm.DB) *gorm.DB {
	return db.Where("hubspot_contact_id IS NULL OR hubspot_contact_id = ''")
}

// Create inserts a new user. A second row for the same external identity
// is rejected by the unique index and reported as shared.ErrAlreadyExists.
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	model := models.UserModelFromDomain(user)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update writes the identity fields only. The CRM contact link is owned by
// SetCRMContactID so a profile update never clobbers a concurrent reconciliation.
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	result := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"updated_at": user.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByExternalID removes the user owning the external identity ID
func (r *GormUserRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	result := r.db.WithContext(ctx).Delete(&models.UserModel{}, "external_id = ?", externalID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds a user by identity provider ID
func (r *GormUserRepository) FindByExternalID(ctx context.Context, externalID string) (*identity.User, error) {
	if externalID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.UserModel
	if err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindMissingContactID returns users without a CRM contact, oldest first
func (r *GormUserRepository) FindMissingContactID(ctx context.Context, limit, offset int) ([]*identity.User, error) {
	var userModels []models.UserModel
	if err := missingContact(r.db.WithContext(ctx)).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&userModels).Error; err != nil {
		return nil, err
	}

	users := make([]*identity.User, len(userModels))
	for i := range userModels {
		users[i] = userModels[i].ToDomain()
	}
	return users, nil
}

// CountMissingContactID counts users without a CRM contact
func (r *GormUserRepository) CountMissingContactID(ctx context.Context) (int64, error) {
	var count int64
	if err := missingContact(r.db.WithContext(ctx).Model(&models.UserModel{})).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SetCRMContactID persists the CRM contact link for a user
func (r *GormUserRepository) SetCRMContactID(ctx context.Context, id uuid.UUID, contactID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"hubspot_contact_id": contactID,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count returns the total number of users
func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
