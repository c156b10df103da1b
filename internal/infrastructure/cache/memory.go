package cache

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/storefront/cartsync/internal/domain/cart"
)

// InMemorySnapshotStore implements cart.SnapshotStore with a process-local
// map. Suitable for tests and ephemeral sessions; nothing survives a
// restart, which makes it a cache in name only.
type InMemorySnapshotStore struct {
	mu       sync.RWMutex
	payloads map[string][]byte
	validate *validator.Validate
	logger   *zap.Logger
}

// NewInMemorySnapshotStore creates an in-memory snapshot store
func NewInMemorySnapshotStore(logger *zap.Logger) *InMemorySnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemorySnapshotStore{
		payloads: make(map[string][]byte),
		validate: newLineValidator(),
		logger:   logger,
	}
}

// Save persists the lines under key, replacing any previous copy
func (s *InMemorySnapshotStore) Save(_ context.Context, key string, lines []cart.Line) error {
	data, err := encodeLines(lines)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[key] = data
	return nil
}

// Load returns the cached lines for key, dropping malformed rows
func (s *InMemorySnapshotStore) Load(_ context.Context, key string) ([]cart.Line, error) {
	s.mu.RLock()
	data, ok := s.payloads[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeLines(data, s.validate, s.logger)
}

// Delete discards the cached copy for key
func (s *InMemorySnapshotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payloads, key)
	return nil
}

// Close implements cart.SnapshotStore
func (s *InMemorySnapshotStore) Close() error {
	return nil
}

// Ensure InMemorySnapshotStore implements SnapshotStore
var _ cart.SnapshotStore = (*InMemorySnapshotStore)(nil)
