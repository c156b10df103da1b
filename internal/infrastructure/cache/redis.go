package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/storefront/cartsync/internal/domain/cart"
	"github.com/storefront/cartsync/internal/infrastructure/config"
)

// RedisSnapshotStore implements cart.SnapshotStore on Redis. Useful when
// several engine instances for the same account should share the
// warm-start copy (kiosk fleets, server-rendered storefronts).
type RedisSnapshotStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewRedisSnapshotStore creates a Redis-backed snapshot store and verifies
// the connection
func NewRedisSnapshotStore(cfg config.CacheConfig, logger *zap.Logger) (*RedisSnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisSnapshotStore(client, cfg.KeyPrefix, cfg.TTL, logger), nil
}

// NewRedisSnapshotStoreWithClient creates a store with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisSnapshotStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *RedisSnapshotStore {
	return newRedisSnapshotStore(client, keyPrefix, ttl, logger)
}

func newRedisSnapshotStore(client *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *RedisSnapshotStore {
	if keyPrefix == "" {
		keyPrefix = "cart:snapshot:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSnapshotStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		validate:  newLineValidator(),
		logger:    logger,
	}
}

// Save persists the lines under key, replacing any previous copy
func (s *RedisSnapshotStore) Save(ctx context.Context, key string, lines []cart.Line) error {
	data, err := encodeLines(lines)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}
	return nil
}

// Load returns the cached lines for key, dropping malformed rows
func (s *RedisSnapshotStore) Load(ctx context.Context, key string) ([]cart.Line, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart snapshot: %w", err)
	}
	return decodeLines(data, s.validate, s.logger)
}

// Delete discards the cached copy for key
func (s *RedisSnapshotStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cart snapshot: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}

// Ensure RedisSnapshotStore implements SnapshotStore
var _ cart.SnapshotStore = (*RedisSnapshotStore)(nil)
