package cache

import (
	"errors"
	"fmt"

	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/fintrack/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores bundles the webhook dedupe store and the reconciliation lock store
type Stores struct {
	Idempotency shared.IdempotencyStore
	Locks       shared.LockStore
	Backend     string

	client *redis.Client
}

// Close releases both stores and the shared Redis client, if any
func (s *Stores) Close() error {
	errs := []error{s.Idempotency.Close(), s.Locks.Close()}
	if s.client != nil {
		errs = append(errs, s.client.Close())
	}
	return errors.Join(errs...)
}

// StoreFactory builds Stores from configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	connect               func(config.RedisConfig) (*redis.Client, error)
}

// StoreFactoryOption configures a StoreFactory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// in-memory stores. Defaults to true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		connect:               NewRedisClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns Redis-backed stores when Redis is configured and reachable,
// in-memory stores otherwise
func (f *StoreFactory) Create() (*Stores, error) {
	if f.redisConfig.Host == "" {
		f.logger.Info("Redis not configured, using in-memory dedupe and lock stores")
		return newInMemoryStores(), nil
	}

	client, err := f.connect(f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis dedupe and lock stores", zap.String("addr", f.redisConfig.Addr()))
		return &Stores{
			Idempotency: NewRedisIdempotencyStore(client, ""),
			Locks:       NewRedisLockStore(client, ""),
			Backend:     "redis",
			client:      client,
		}, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
		"Webhook dedupe and per-user locks will not be shared across replicas.",
		zap.Error(err),
	)
	return newInMemoryStores(), nil
}

func newInMemoryStores() *Stores {
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(),
		Locks:       NewInMemoryLockStore(),
		Backend:     "memory",
	}
}
