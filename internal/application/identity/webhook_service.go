package identity

import (
	"context"
	"errors"
	"time"

	"github.com/fintrack/backend/internal/domain/identity"
	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/fintrack/backend/internal/infrastructure/logger"
	"github.com/fintrack/backend/internal/infrastructure/telemetry"
	"github.com/fintrack/backend/internal/infrastructure/webhook"
	"go.uber.org/zap"
)

const defaultDedupeTTL = 24 * time.Hour

// SignatureVerifier authenticates a webhook delivery
type SignatureVerifier interface {
	Verify(h webhook.Headers, body []byte) error
}

// WebhookService verifies identity provider deliveries and dispatches each
// event to the LifecycleService
type WebhookService struct {
	verifier      SignatureVerifier
	lifecycle     *LifecycleService
	processed     shared.IdempotencyStore
	metrics       *telemetry.SyncMetrics
	allowUnsigned bool
	dedupeTTL     time.Duration
	logger        *zap.Logger
}

// WebhookServiceConfig contains dependencies for WebhookService
type WebhookServiceConfig struct {
	Verifier  SignatureVerifier
	Lifecycle *LifecycleService
	Processed shared.IdempotencyStore
	Metrics   *telemetry.SyncMetrics
	// AllowUnsigned skips signature checks. Never enabled in production.
	AllowUnsigned bool
	DedupeTTL     time.Duration
	Logger        *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = defaultDedupeTTL
	}
	return &WebhookService{
		verifier:      cfg.Verifier,
		lifecycle:     cfg.Lifecycle,
		processed:     cfg.Processed,
		metrics:       cfg.Metrics,
		allowUnsigned: cfg.AllowUnsigned,
		dedupeTTL:     cfg.DedupeTTL,
		logger:        cfg.Logger,
	}
}

// WebhookResult contains the result of processing a delivery
type WebhookResult struct {
	MessageID  string `json:"messageId,omitempty"`
	Received   int    `json:"received"`
	Dispatched int    `json:"dispatched"`
	Skipped    int    `json:"skipped"`
	Dropped    int    `json:"dropped"`
	Duplicate  bool   `json:"duplicate,omitempty"`
}

// ProcessWebhook verifies and dispatches one delivery. It returns
// ErrSignatureInvalid, ErrSignatureExpired or ErrPayloadMalformed for a
// delivery that must be rejected. Malformed items and events with bad
// identity data are skipped without failing the batch.
func (s *WebhookService) ProcessWebhook(ctx context.Context, headers webhook.Headers, payload []byte) (*WebhookResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "identity.webhook",
		telemetry.WithAttribute(telemetry.SpanAttrMessageID, headers.ID),
	)
	defer span.End()

	log := logger.WithLogger(ctx, s.logger).With(zap.String("message_id", headers.ID))

	if err := s.verify(headers, payload, log); err != nil {
		telemetry.RecordError(span, err)
		log.Warn("Webhook verification failed", zap.Error(err))
		return nil, err
	}

	events, err := identity.ParseEvents(payload)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Warn("Webhook payload malformed", zap.Error(err))
		return nil, err
	}

	result := &WebhookResult{MessageID: headers.ID, Received: len(events)}
	telemetry.SetAttributes(span, telemetry.SpanAttrBatchSize, len(events))

	if s.alreadyProcessed(ctx, headers.ID, log) {
		log.Info("Duplicate webhook delivery acknowledged")
		result.Duplicate = true
		return result, nil
	}

	for i, event := range events {
		if err := event.DecodeError(); err != nil {
			log.Warn("Skipping undecodable webhook event", zap.Int("index", i), zap.Error(err))
			result.Skipped++
			continue
		}
		if !event.IsDispatchable() {
			log.Warn("Skipping webhook event without type or id", zap.Int("index", i))
			result.Skipped++
			continue
		}
		s.metrics.RecordWebhookEvent(ctx, string(event.Type))

		handled, err := s.dispatch(ctx, event)
		switch {
		case err == nil && handled:
			result.Dispatched++
		case err == nil:
			log.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
			result.Skipped++
		case isDroppable(err):
			log.Warn("Dropping webhook event",
				zap.String("event_type", string(event.Type)),
				zap.String("external_id", event.Data.ID),
				zap.Error(err))
			result.Dropped++
		default:
			telemetry.RecordError(span, err)
			log.Error("Failed to dispatch webhook event",
				zap.String("event_type", string(event.Type)),
				zap.String("external_id", event.Data.ID),
				zap.Error(err))
			return nil, err
		}
	}

	s.markProcessed(ctx, headers.ID, log)
	telemetry.SetOK(span)
	log.Info("Webhook processed",
		zap.Int("received", result.Received),
		zap.Int("dispatched", result.Dispatched),
		zap.Int("skipped", result.Skipped),
		zap.Int("dropped", result.Dropped))
	return result, nil
}

func (s *WebhookService) verify(headers webhook.Headers, payload []byte, log *logger.ContextLogger) error {
	if s.allowUnsigned {
		log.Warn("Accepting webhook without signature verification")
		return nil
	}
	if s.verifier == nil {
		return identity.ErrSignatureInvalid
	}
	return s.verifier.Verify(headers, payload)
}

func (s *WebhookService) dispatch(ctx context.Context, event identity.Event) (bool, error) {
	switch event.Type {
	case identity.EventUserCreated:
		_, err := s.lifecycle.Create(ctx, event.Data)
		return true, err
	case identity.EventUserUpdated:
		return true, s.lifecycle.Update(ctx, event.Data)
	case identity.EventUserDeleted:
		return true, s.lifecycle.Delete(ctx, event.Data.ID)
	default:
		return false, nil
	}
}

// isDroppable reports errors caused by the event's own data. Retrying the
// delivery would fail the same way.
func isDroppable(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr)
}

// alreadyProcessed consults the dedupe store; store errors fall through to
// normal processing since create is idempotent
func (s *WebhookService) alreadyProcessed(ctx context.Context, messageID string, log *logger.ContextLogger) bool {
	if s.processed == nil || messageID == "" {
		return false
	}
	done, err := s.processed.IsProcessed(ctx, messageID)
	if err != nil {
		log.Warn("Webhook dedupe lookup failed", zap.Error(err))
		return false
	}
	return done
}

func (s *WebhookService) markProcessed(ctx context.Context, messageID string, log *logger.ContextLogger) {
	if s.processed == nil || messageID == "" {
		return
	}
	if _, err := s.processed.MarkProcessed(ctx, messageID, s.dedupeTTL); err != nil {
		log.Warn("Failed to mark webhook processed", zap.Error(err))
	}
}
