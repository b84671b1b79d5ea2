package cache

import (
	"context"
	"fmt"

	"github.com/smberp/backend/internal/domain/shared"
	"github.com/smberp/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Idempotency backends accepted in event.idempotency_backend
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// IdempotencyStoreFactory builds the idempotency store selected by configuration
type IdempotencyStoreFactory struct {
	event         config.EventConfig
	redis         config.RedisConfig
	logger        *zap.Logger
	allowFallback bool
}

// FactoryOption configures an IdempotencyStoreFactory
type FactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the factory logger
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store instead of failing. Enabled by default.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a factory for the given event and redis sections
func NewIdempotencyStoreFactory(event config.EventConfig, redis config.RedisConfig, opts ...FactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		event:         event,
		redis:         redis,
		logger:        zap.NewNop(),
		allowFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the configured store
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context) (shared.IdempotencyStore, error) {
	switch f.event.IdempotencyBackend {
	case "", BackendMemory:
		f.logger.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	case BackendRedis:
		client, err := NewRedisClient(ctx, f.redis)
		if err == nil {
			f.logger.Info("Using Redis idempotency store", zap.String("addr", f.redis.Addr()))
			return NewRedisIdempotencyStore(client, ""), nil
		}
		if !f.allowFallback {
			return nil, fmt.Errorf("redis idempotency store unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store; duplicates across instances are possible",
			zap.Error(err))
		return NewInMemoryIdempotencyStore(), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", f.event.IdempotencyBackend)
	}
}
