package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/fintrack/backend/internal/domain/identity"
	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/fintrack/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ContactSyncScheduler queues CRM reconciliation for a new user without waiting on it
type ContactSyncScheduler interface {
	ScheduleSignupSync(ctx context.Context, user *identity.User)
}

// LifecycleService mirrors identity provider accounts into local users.
// Every operation is keyed by the external identity ID and safe to repeat.
type LifecycleService struct {
	users  identity.UserRepository
	sync   ContactSyncScheduler
	logger *zap.Logger
}

// NewLifecycleService creates a new LifecycleService. sync may be nil to
// disable post-signup reconciliation.
func NewLifecycleService(users identity.UserRepository, sync ContactSyncScheduler, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		users:  users,
		sync:   sync,
		logger: logger,
	}
}

// Create inserts the user for a new identity and schedules CRM sync. When the
// identity is already known the existing user is returned unchanged.
func (s *LifecycleService) Create(ctx context.Context, data identity.EventData) (*identity.User, error) {
	log := logger.WithLogger(ctx, s.logger).With(zap.String("external_id", data.ID))

	existing, err := s.users.FindByExternalID(ctx, data.ID)
	if err == nil {
		log.Debug("User already exists, ignoring create")
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	email, ok := data.PrimaryEmail()
	if !ok {
		return nil, identity.ErrMissingPrimaryEmail
	}
	firstName, lastName := data.Names()

	user, err := identity.NewUser(data.ID, email, firstName, lastName)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// Lost a race with a concurrent delivery of the same event.
			log.Info("User created concurrently, ignoring create")
			return s.users.FindByExternalID(ctx, data.ID)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("User created", zap.String("user_id", user.ID.String()))

	if s.sync != nil {
		s.sync.ScheduleSignupSync(ctx, user)
	}
	return user, nil
}

// Update refreshes email and names. An unknown identity is a no-op and a
// missing primary email keeps the stored one. CRM sync is not re-run.
func (s *LifecycleService) Update(ctx context.Context, data identity.EventData) error {
	log := logger.WithLogger(ctx, s.logger).With(zap.String("external_id", data.ID))

	user, err := s.users.FindByExternalID(ctx, data.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			log.Info("Update for unknown user ignored")
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	email, ok := data.PrimaryEmail()
	if !ok {
		email = user.Email
	}
	firstName, lastName := data.Names()

	if err := user.UpdateProfile(email, firstName, lastName); err != nil {
		return err
	}
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			log.Info("User deleted during update, ignoring")
			return nil
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	log.Info("User updated", zap.String("user_id", user.ID.String()))
	return nil
}

// Delete removes the local user. The CRM contact is left in place.
func (s *LifecycleService) Delete(ctx context.Context, externalID string) error {
	log := logger.WithLogger(ctx, s.logger).With(zap.String("external_id", externalID))

	if err := s.users.DeleteByExternalID(ctx, externalID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			log.Info("Delete for unknown user ignored")
			return nil
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	log.Info("User deleted")
	return nil
}
