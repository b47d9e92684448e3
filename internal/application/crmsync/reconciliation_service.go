// Package crmsync holds the use cases that link local users to remote CRM
// contacts and expose the sync audit trail.
package crmsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fintrack/backend/internal/domain/crmsync"
	"github.com/fintrack/backend/internal/domain/identity"
	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/fintrack/backend/internal/infrastructure/logger"
	"github.com/fintrack/backend/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LockKeyPrefix namespaces the per-user reconciliation lock
const LockKeyPrefix = "crm_sync:lock:"

const defaultLockTTL = 2 * time.Minute

// Reconciler links one user to a CRM contact
type Reconciler interface {
	Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error)
}

// ReconciliationService finds or creates the CRM contact for a user and
// records every attempt in the sync audit log
type ReconciliationService struct {
	users    identity.UserRepository
	logs     crmsync.SyncLogRepository
	gateway  crmsync.ContactGateway
	locks    shared.LockStore
	metrics  *telemetry.SyncMetrics
	validate *validator.Validate
	lockTTL  time.Duration
	logger   *zap.Logger
}

// ReconciliationServiceConfig contains dependencies for ReconciliationService.
// Locks and Metrics are optional.
type ReconciliationServiceConfig struct {
	Users   identity.UserRepository
	Logs    crmsync.SyncLogRepository
	Gateway crmsync.ContactGateway
	Locks   shared.LockStore
	Metrics *telemetry.SyncMetrics
	LockTTL time.Duration
	Logger  *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(cfg ReconciliationServiceConfig) *ReconciliationService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &ReconciliationService{
		users:    cfg.Users,
		logs:     cfg.Logs,
		gateway:  cfg.Gateway,
		locks:    cfg.Locks,
		metrics:  cfg.Metrics,
		validate: validator.New(),
		lockTTL:  cfg.LockTTL,
		logger:   cfg.Logger,
	}
}

// Reconcile searches the CRM by email, links the existing contact or creates
// one, and stores the contact ID on the user. Remote failures are written to
// the audit log and returned.
func (s *ReconciliationService) Reconcile(ctx context.Context, input ReconcileInput) (result *ReconcileResult, err error) {
	if input.Action == "" {
		input.Action = crmsync.SyncActionManualRetry
	}
	ctx, span := telemetry.StartSpan(ctx, "crmsync.reconcile",
		telemetry.WithAttribute(telemetry.SpanAttrUserID, input.UserID.String()),
		telemetry.WithAttribute("sync.action", string(input.Action)),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	log := logger.WithLogger(ctx, s.logger).With(
		zap.String("user_id", input.UserID.String()),
		zap.String("action", string(input.Action)),
	)

	release, err := s.acquire(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, crmsync.ErrSyncInProgress) {
			log.Info("CRM sync already running for user, skipping")
			s.metrics.RecordReconcile(ctx, string(input.Action), telemetry.OutcomeBusy)
		}
		return nil, err
	}
	defer release()

	snapshot := crmsync.Details{
		crmsync.DetailEmail:     input.Email,
		crmsync.DetailFirstName: input.FirstName,
		crmsync.DetailLastName:  input.LastName,
	}
	if err := s.logs.Append(ctx, crmsync.NewSyncLogEntry(input.UserID, input.Action, crmsync.SyncStatusStarted, snapshot)); err != nil {
		return nil, fmt.Errorf("failed to record sync start: %w", err)
	}

	result, err = s.reconcile(ctx, input, log)
	if err != nil {
		s.recordFailure(ctx, input.UserID, input.Action, err)
		s.metrics.RecordReconcile(ctx, string(input.Action), telemetry.OutcomeFailed)
		log.Warn("CRM reconciliation failed", zap.Error(err))
		return nil, err
	}

	s.appendEntry(ctx, input.UserID, input.Action, crmsync.SyncStatusCompleted, crmsync.Details{
		crmsync.DetailContactID:    result.ContactID,
		crmsync.DetailIsNewContact: result.IsNewContact,
		crmsync.DetailUserUpdated:  true,
	})

	outcome := telemetry.OutcomeLinkedExisting
	if result.IsNewContact {
		outcome = telemetry.OutcomeCreated
	}
	s.metrics.RecordReconcile(ctx, string(input.Action), outcome)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrContactID, result.ContactID,
		telemetry.SpanAttrIsNew, result.IsNewContact,
	)
	telemetry.SetOK(span)

	log.Info("CRM reconciliation completed",
		zap.String("contact_id", result.ContactID),
		zap.Bool("is_new_contact", result.IsNewContact))
	return result, nil
}

func (s *ReconciliationService) reconcile(ctx context.Context, input ReconcileInput, log *logger.ContextLogger) (*ReconcileResult, error) {
	fields := crmsync.ContactFields{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}
	if err := s.validate.StructCtx(ctx, fields); err != nil {
		return nil, crmsync.ErrInvalidContact.WithCause(err)
	}

	existing, err := s.gateway.SearchByEmail(ctx, fields.Email)
	if err != nil {
		return nil, crmsync.ErrRemoteSearchFailed.WithCause(err)
	}

	result := &ReconcileResult{}
	if existing != nil {
		result.ContactID = existing.ID
		details := crmsync.Details{
			crmsync.DetailContactID: existing.ID,
			crmsync.DetailEmail:     fields.Email,
		}
		// The link matters more than name freshness.
		if err := s.gateway.UpdateContact(ctx, existing.ID, fields); err != nil {
			log.Warn("Failed to refresh existing CRM contact",
				zap.String("contact_id", existing.ID),
				zap.Error(err))
			details[crmsync.DetailUpdateWarning] = crmsync.ErrRemoteUpdateFailed.WithCause(err).Error()
		}
		s.appendEntry(ctx, input.UserID, input.Action, crmsync.SyncStatusExistingContactFound, details)
	} else {
		contactID, err := s.gateway.CreateContact(ctx, fields)
		if err != nil {
			return nil, crmsync.ErrRemoteCreateFailed.WithCause(err)
		}
		result.ContactID = contactID
		result.IsNewContact = true
		s.appendEntry(ctx, input.UserID, input.Action, crmsync.SyncStatusNewContactCreated, crmsync.Details{
			crmsync.DetailContactID: contactID,
			crmsync.DetailEmail:     fields.Email,
		})
	}

	if err := s.users.SetCRMContactID(ctx, input.UserID, result.ContactID); err != nil {
		return nil, crmsync.ErrLinkFailed.WithCause(err)
	}
	return result, nil
}

// RetrySyncForUser re-runs reconciliation with the user's current fields
func (s *ReconciliationService) RetrySyncForUser(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return s.Reconcile(ctx, ReconcileInputFromUser(user, crmsync.SyncActionManualRetry))
}

// RecordFailure writes a failed entry for an attempt that never reached the CRM
func (s *ReconciliationService) RecordFailure(ctx context.Context, userID uuid.UUID, action crmsync.SyncAction, cause error) {
	s.recordFailure(ctx, userID, action, cause)
	s.metrics.RecordReconcile(ctx, string(action), telemetry.OutcomeFailed)
}

func (s *ReconciliationService) recordFailure(ctx context.Context, userID uuid.UUID, action crmsync.SyncAction, cause error) {
	s.appendEntry(ctx, userID, action, crmsync.SyncStatusFailed, failureDetails(cause))
}

// failureDetails captures the error and, for CRM responses, the raw body and
// correlation ID
func failureDetails(err error) crmsync.Details {
	details := crmsync.Details{
		crmsync.DetailError: err.Error(),
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		details[crmsync.DetailErrorCode] = domainErr.Code
	}
	var remote *crmsync.RemoteError
	if errors.As(err, &remote) {
		details[crmsync.DetailErrorResponse] = remote.Body
		details[crmsync.DetailStatusCode] = remote.StatusCode
		if remote.CorrelationID != "" {
			details[crmsync.DetailCorrelationID] = remote.CorrelationID
		}
	}
	return details
}

// appendEntry writes a non-start entry. A failed write is logged only, the
// CRM link already made is kept.
func (s *ReconciliationService) appendEntry(ctx context.Context, userID uuid.UUID, action crmsync.SyncAction, status crmsync.SyncStatus, details crmsync.Details) {
	if err := s.logs.Append(ctx, crmsync.NewSyncLogEntry(userID, action, status, details)); err != nil {
		logger.WithLogger(ctx, s.logger).Error("Failed to write sync log entry",
			zap.String("user_id", userID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// acquire takes the per-user lock. A lock store outage does not block the
// sync since reconciliation is idempotent.
func (s *ReconciliationService) acquire(ctx context.Context, userID uuid.UUID) (func(), error) {
	noop := func() {}
	if s.locks == nil {
		return noop, nil
	}

	key := LockKeyPrefix + userID.String()
	token, acquired, err := s.locks.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Lock store unavailable, syncing without lock",
			zap.String("key", key),
			zap.Error(err))
		return noop, nil
	}
	if !acquired {
		return nil, crmsync.ErrSyncInProgress
	}

	return func() {
		// Release even when the caller's context is already done.
		if err := s.locks.Unlock(context.WithoutCancel(ctx), key, token); err != nil && !errors.Is(err, shared.ErrLockNotHeld) {
			logger.WithLogger(ctx, s.logger).Warn("Failed to release sync lock",
				zap.String("key", key),
				zap.Error(err))
		}
	}, nil
}

var _ Reconciler = (*ReconciliationService)(nil)
