package crmsync

import (
	"context"
	"fmt"
	"time"

	"github.com/fintrack/backend/internal/domain/crmsync"
	"github.com/fintrack/backend/internal/domain/identity"
	"github.com/fintrack/backend/internal/infrastructure/logger"
	"github.com/fintrack/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Backfill defaults
const (
	DefaultBulkLimit = 50
	MaxBulkLimit     = 100
	DefaultCallDelay = 100 * time.Millisecond
)

// BackfillService reconciles users that have no CRM contact, one at a time
// with a fixed pause between users to stay under the CRM rate limit
type BackfillService struct {
	users        identity.UserRepository
	reconciler   Reconciler
	defaultLimit int
	maxLimit     int
	delay        time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *zap.Logger
}

// BackfillServiceConfig contains dependencies for BackfillService
type BackfillServiceConfig struct {
	Users        identity.UserRepository
	Reconciler   Reconciler
	DefaultLimit int
	MaxLimit     int
	CallDelay    time.Duration
	Logger       *zap.Logger
}

// NewBackfillService creates a new BackfillService
func NewBackfillService(cfg BackfillServiceConfig) *BackfillService {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxBulkLimit
	}
	if cfg.DefaultLimit <= 0 || cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = min(DefaultBulkLimit, cfg.MaxLimit)
	}
	if cfg.CallDelay < 0 {
		cfg.CallDelay = DefaultCallDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &BackfillService{
		users:        cfg.Users,
		reconciler:   cfg.Reconciler,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		delay:        cfg.CallDelay,
		sleep:        sleepContext,
		logger:       cfg.Logger,
	}
}

// BulkBackfill reconciles up to limit users lacking a CRM contact. A limit of
// zero selects the default. One user's failure is recorded in its result and
// does not stop the run.
func (s *BackfillService) BulkBackfill(ctx context.Context, limit int) (*BulkSyncSummary, error) {
	if limit == 0 {
		limit = s.defaultLimit
	}
	if limit < 1 || limit > s.maxLimit {
		return nil, crmsync.ErrInvalidBulkLimit.WithCause(fmt.Errorf("limit must be between 1 and %d, got %d", s.maxLimit, limit))
	}

	ctx, span := telemetry.StartSpan(ctx, "crmsync.bulk_backfill")
	defer span.End()

	users, err := s.users.FindMissingContactID(ctx, limit, 0)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load users missing a CRM contact: %w", err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrBatchSize, len(users))

	log := logger.WithLogger(ctx, s.logger)
	log.Info("Starting CRM backfill", zap.Int("users", len(users)), zap.Int("limit", limit))

	summary := &BulkSyncSummary{Results: make([]BulkSyncResult, 0, len(users))}
	for i, user := range users {
		if i > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				log.Warn("CRM backfill interrupted",
					zap.Int("processed", summary.Processed),
					zap.Error(err))
				summary.SuccessRate = successRate(summary.Synced, summary.Processed)
				return summary, err
			}
		}

		item := BulkSyncResult{UserID: user.ID, Email: user.Email}
		result, err := s.reconciler.Reconcile(ctx, ReconcileInputFromUser(user, crmsync.SyncActionBulkBackfill))
		summary.Processed++
		if err != nil {
			summary.Errors++
			item.Status = BulkResultError
			item.Error = err.Error()
		} else {
			summary.Synced++
			item.Status = BulkResultSuccess
			item.ContactID = result.ContactID
			item.IsNewContact = result.IsNewContact
		}
		summary.Results = append(summary.Results, item)
	}

	summary.SuccessRate = successRate(summary.Synced, summary.Processed)
	log.Info("CRM backfill finished",
		zap.Int("processed", summary.Processed),
		zap.Int("synced", summary.Synced),
		zap.Int("errors", summary.Errors))
	telemetry.SetOK(span)
	return summary, nil
}

var hundred = decimal.NewFromInt(100)

// successRate renders synced/processed as a percentage with one decimal,
// rounding half away from zero
func successRate(synced, processed int) string {
	if processed == 0 {
		return "0.0%"
	}
	rate := decimal.NewFromInt(int64(synced)).Mul(hundred).Div(decimal.NewFromInt(int64(processed)))
	return rate.StringFixed(1) + "%"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
