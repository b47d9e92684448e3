package crmsync

import (
	"context"

	"github.com/fintrack/backend/internal/domain/crmsync"
	"github.com/fintrack/backend/internal/domain/identity"
	"github.com/fintrack/backend/internal/infrastructure/logger"
	"github.com/fintrack/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

// JobSubmitter queues background jobs without blocking
type JobSubmitter interface {
	Submit(job *scheduler.Job) error
}

// SignupSyncScheduler hands post-signup reconciliation to a background
// executor. Callers never wait on the CRM and never see its failures.
type SignupSyncScheduler struct {
	executor JobSubmitter
	service  *ReconciliationService
	logger   *zap.Logger
}

// NewSignupSyncScheduler creates a new SignupSyncScheduler
func NewSignupSyncScheduler(executor JobSubmitter, service *ReconciliationService, logger *zap.Logger) *SignupSyncScheduler {
	return &SignupSyncScheduler{
		executor: executor,
		service:  service,
		logger:   logger,
	}
}

// ScheduleSignupSync queues reconciliation for a newly created user. When the
// job cannot be queued a failed audit entry is written so the user is picked
// up by the next backfill.
func (s *SignupSyncScheduler) ScheduleSignupSync(ctx context.Context, user *identity.User) {
	jobCtx := logger.Detach(ctx)
	input := ReconcileInputFromUser(user, crmsync.SyncActionUserSignup)

	job := scheduler.NewJob(jobCtx, "crm_signup_sync", func(ctx context.Context) error {
		_, err := s.service.Reconcile(ctx, input)
		return err
	}, zap.String("user_id", user.ID.String()))

	if err := s.executor.Submit(job); err != nil {
		logger.WithLogger(jobCtx, s.logger).Error("Failed to schedule CRM sync",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		s.service.RecordFailure(jobCtx, user.ID, crmsync.SyncActionUserSignup, crmsync.ErrScheduleFailed.WithCause(err))
	}
}
