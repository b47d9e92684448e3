package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Reconcile outcomes
const (
	OutcomeLinkedExisting = "linked_existing"
	OutcomeCreated        = "created"
	OutcomeFailed         = "failed"
	OutcomeSkipped        = "skipped"
	OutcomeBusy           = "in_progress"
)

// PendingUsersProvider reports how many users still lack a CRM contact.
type PendingUsersProvider interface {
	CountMissingContactID(ctx context.Context) (int64, error)
}

// SyncMetrics records CRM synchronization activity.
// A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	logger *zap.Logger

	reconcileTotal     metric.Int64Counter
	webhookEventsTotal metric.Int64Counter
	remoteCallDuration metric.Float64Histogram
	pendingUsers       metric.Int64Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// NewSyncMetrics registers the sync instruments on meter.
func NewSyncMetrics(meter metric.Meter, logger *zap.Logger) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &SyncMetrics{logger: logger, stopChan: make(chan struct{})}

	var err error
	if m.reconcileTotal, err = meter.Int64Counter("crm_sync_reconcile_total",
		metric.WithDescription("CRM reconciliation attempts by outcome"),
		metric.WithUnit("{attempts}"),
	); err != nil {
		return nil, fmt.Errorf("register reconcile counter: %w", err)
	}
	if m.webhookEventsTotal, err = meter.Int64Counter("crm_sync_webhook_events_total",
		metric.WithDescription("Identity lifecycle events received by type"),
		metric.WithUnit("{events}"),
	); err != nil {
		return nil, fmt.Errorf("register webhook counter: %w", err)
	}
	if m.remoteCallDuration, err = meter.Float64Histogram("crm_sync_remote_call_duration_seconds",
		metric.WithDescription("Latency of CRM contact API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(RemoteCallBuckets...),
	); err != nil {
		return nil, fmt.Errorf("register remote call histogram: %w", err)
	}
	if m.pendingUsers, err = meter.Int64Gauge("crm_sync_users_missing_contact",
		metric.WithDescription("Users not yet linked to a CRM contact"),
		metric.WithUnit("{users}"),
	); err != nil {
		return nil, fmt.Errorf("register pending users gauge: %w", err)
	}
	return m, nil
}

// RecordReconcile counts one reconciliation attempt.
func (m *SyncMetrics) RecordReconcile(ctx context.Context, action, outcome string) {
	if m == nil {
		return
	}
	m.reconcileTotal.Add(ctx, 1, metric.WithAttributes(AttrAction.String(action), AttrOutcome.String(outcome)))
}

// RecordWebhookEvent counts one received lifecycle event.
func (m *SyncMetrics) RecordWebhookEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.webhookEventsTotal.Add(ctx, 1, metric.WithAttributes(AttrEventType.String(eventType)))
}

// RecordRemoteCall records the latency of one CRM API call.
func (m *SyncMetrics) RecordRemoteCall(ctx context.Context, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.remoteCallDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(AttrOperation.String(operation), AttrStatus.String(status)))
}

// StartPeriodicCollection samples the pending-user gauge every interval until
// Stop is called or ctx ends. Non-blocking.
func (m *SyncMetrics) StartPeriodicCollection(ctx context.Context, provider PendingUsersProvider, interval time.Duration) {
	if m == nil || provider == nil {
		return
	}
	m.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go m.runCollection(ctx, provider, interval)
	})
}

func (m *SyncMetrics) runCollection(ctx context.Context, provider PendingUsersProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.collectPending(ctx, provider)
	for {
		select {
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectPending(ctx, provider)
		}
	}
}

func (m *SyncMetrics) collectPending(ctx context.Context, provider PendingUsersProvider) {
	count, err := provider.CountMissingContactID(ctx)
	if err != nil {
		m.logger.Warn("Failed to count users missing a CRM contact", zap.Error(err))
		return
	}
	m.pendingUsers.Record(ctx, count)
}

// Stop ends periodic collection.
func (m *SyncMetrics) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.stopChan) })
}
