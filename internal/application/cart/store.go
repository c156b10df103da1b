// Package cart implements the client-side cart synchronization engine: a
// locally readable cart that is eventually, and for the common case
// immediately, consistent with the server-of-record cart, without blocking
// callers on network latency for add, quantity change or remove.
package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/cartsync/internal/domain/cart"
	"github.com/storefront/cartsync/internal/domain/shared"
	"github.com/storefront/cartsync/internal/infrastructure/session"
)

// Store owns the in-memory cart for the current session and mediates every
// mutation through the remote cart service, reconciling results back into
// local state. Mutations follow the optimistic-then-reconcile pattern:
// local state updates immediately, the remote call fires, and a successful
// response snapshot replaces the local view wholesale. A failed write keeps
// the optimistic state (marked sync-failed) rather than rolling back; a
// later successful fetch restores correctness.
type Store struct {
	service  cart.Service
	cache    cart.SnapshotStore
	tokens   session.TokenSource
	logger   *zap.Logger
	cacheKey string

	mu       sync.RWMutex
	lines    []cart.Line
	hydrated bool

	keys *keyedMutex
}

// StoreOption is a functional option for configuring the store
type StoreOption func(*Store)

// WithLogger sets the store's logger
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithCacheKey sets the account key under which snapshots are cached
func WithCacheKey(key string) StoreOption {
	return func(s *Store) {
		s.cacheKey = key
	}
}

// NewStore creates a cart store. If bus is non-nil the store subscribes to
// cart.refresh_requested, so any other flow (post-login, wishlist moves)
// can force a resync by publishing instead of holding a reference to the
// store.
func NewStore(service cart.Service, snapshots cart.SnapshotStore, tokens session.TokenSource, bus shared.EventBus, opts ...StoreOption) *Store {
	s := &Store{
		service:  service,
		cache:    snapshots,
		tokens:   tokens,
		logger:   zap.NewNop(),
		cacheKey: "default",
		keys:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if bus != nil {
		bus.Subscribe(&refreshHandler{store: s}, cart.EventTypeRefreshRequested)
	}

	return s
}

// Hydrate performs the initial load. Without a session token the cart is
// forced empty and the cached copy discarded, so a cart never leaks across
// accounts on a shared device. With a token the server snapshot replaces
// local state entirely; if the fetch fails, the durable cache (shape
// filtered) becomes the view instead. Fetch failures are logged, never
// returned: a cold start must not fail the caller.
func (s *Store) Hydrate(ctx context.Context) {
	if s.tokens.Token() == "" {
		s.forceEmpty(ctx)
		return
	}

	snap, err := s.service.FetchCart(ctx)
	if err != nil {
		s.logger.Warn("cart fetch failed, falling back to cached copy", zap.Error(err))
		s.loadFromCache(ctx)
		return
	}
	s.replaceFromSnapshot(ctx, snap)
}

// Refresh forces a full fetch-and-replace from the server. Unlike Hydrate
// it reports the fetch error so callers can surface it; the local view is
// left untouched on failure.
func (s *Store) Refresh(ctx context.Context) error {
	if s.tokens.Token() == "" {
		s.forceEmpty(ctx)
		return nil
	}

	snap, err := s.service.FetchCart(ctx)
	if err != nil {
		s.logger.Warn("cart refresh failed", zap.Error(err))
		return err
	}
	s.replaceFromSnapshot(ctx, snap)
	return nil
}

// ValidateCart re-checks every line's price, stock and availability against
// current catalog truth. Advisory only: the local cart is never mutated
// from the result, regardless of what it reports. Returns nil when
// unauthenticated.
func (s *Store) ValidateCart(ctx context.Context) (*cart.ValidationResult, error) {
	if s.tokens.Token() == "" {
		return nil, nil
	}
	return s.service.ValidateCart(ctx)
}

// Lines returns a copy of the current local cart
func (s *Store) Lines() []cart.Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cart.Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Hydrated reports whether the initial load has completed
func (s *Store) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// TotalItems returns the sum of line quantities. Zero before the initial
// load resolves, so pre-hydration UI never flashes a wrong nonzero total.
func (s *Store) TotalItems() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hydrated {
		return 0
	}
	return cart.TotalItems(s.lines)
}

// TotalPrice returns the sum of price times quantity under the same rules
// as TotalItems
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hydrated {
		return decimal.Zero
	}
	return cart.TotalPrice(s.lines)
}

// forceEmpty clears the view and the cached copy
func (s *Store) forceEmpty(ctx context.Context) {
	s.mu.Lock()
	s.lines = nil
	s.hydrated = true
	s.mu.Unlock()

	if err := s.cache.Delete(ctx, s.cacheKey); err != nil {
		s.logger.Warn("failed to discard cached cart copy", zap.Error(err))
	}
}

// loadFromCache installs the durable cache's copy as the view. Malformed
// cached rows were already dropped by the snapshot store's shape check.
func (s *Store) loadFromCache(ctx context.Context) {
	lines, err := s.cache.Load(ctx, s.cacheKey)
	if err != nil {
		s.logger.Debug("cached cart copy unreadable", zap.Error(err))
		lines = nil
	}

	s.mu.Lock()
	s.lines = lines
	s.hydrated = true
	s.mu.Unlock()
}

// replaceFromSnapshot rebuilds the view wholesale from a server snapshot
// and persists it as the new warm-start backup. Rebuilding (never merging
// field by field) is what keeps the client from drifting from the server.
func (s *Store) replaceFromSnapshot(ctx context.Context, snap *cart.Snapshot) {
	lines := snap.Lines()

	s.mu.Lock()
	s.lines = lines
	s.hydrated = true
	s.mu.Unlock()

	if err := s.cache.Save(ctx, s.cacheKey, lines); err != nil {
		s.logger.Warn("failed to persist cart snapshot", zap.Error(err))
	}
}

// markLineState updates the sync state of the line matching key, if any
func (s *Store) markLineState(key cart.LineKey, state cart.SyncState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].Key() == key {
			s.lines[i].SyncState = state
			return
		}
	}
}

// refreshHandler subscribes the store to refresh trigger events
type refreshHandler struct {
	store *Store
}

// Handle implements shared.EventHandler
func (h *refreshHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.store.logger.Debug("refresh requested", zap.String("event_id", event.EventID().String()))
	return h.store.Refresh(ctx)
}
