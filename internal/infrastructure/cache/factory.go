package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/storefront/cartsync/internal/domain/cart"
	"github.com/storefront/cartsync/internal/infrastructure/config"
)

// SnapshotStoreFactory creates snapshot stores based on configuration
type SnapshotStoreFactory struct {
	cfg                   config.CacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SnapshotStoreFactoryOption is a functional option for configuring the factory
type SnapshotStoreFactoryOption func(*SnapshotStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SnapshotStoreFactoryOption {
	return func(f *SnapshotStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store
// when the configured backend is unavailable. Default is true.
func WithInMemoryFallback(allow bool) SnapshotStoreFactoryOption {
	return func(f *SnapshotStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSnapshotStoreFactory creates a new factory
func NewSnapshotStoreFactory(cfg config.CacheConfig, opts ...SnapshotStoreFactoryOption) *SnapshotStoreFactory {
	f := &SnapshotStoreFactory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: cfg.AllowMemoryFallback,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateStore creates the snapshot store named by the configuration,
// falling back to in-memory when the durable backend is unreachable and
// fallback is allowed.
func (f *SnapshotStoreFactory) CreateStore() (cart.SnapshotStore, error) {
	var (
		store cart.SnapshotStore
		err   error
	)

	switch f.cfg.Backend {
	case "memory":
		return NewInMemorySnapshotStore(f.logger), nil
	case "redis":
		store, err = NewRedisSnapshotStore(f.cfg, f.logger)
	case "sqlite":
		store, err = NewSQLiteSnapshotStore(f.cfg.SQLitePath, f.logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", f.cfg.Backend)
	}

	if err == nil {
		f.logger.Info("using durable snapshot cache", zap.String("backend", f.cfg.Backend))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("cache backend %q required but unavailable: %w", f.cfg.Backend, err)
	}

	f.logger.Warn("snapshot cache backend unavailable, falling back to in-memory store. "+
		"The cold-start cart view will be empty after a restart.",
		zap.String("backend", f.cfg.Backend),
		zap.Error(err),
	)
	return NewInMemorySnapshotStore(f.logger), nil
}
