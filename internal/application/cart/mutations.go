package cart

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/cartsync/internal/domain/cart"
)

// AddInput describes the product being added to the cart. Quantity below 1
// defaults to 1 and an empty Size defaults to cart.DefaultSize.
type AddInput struct {
	ProductID int64
	Name      string
	ImageURL  string
	UnitPrice decimal.Decimal
	Stock     int64
	Quantity  int64
	Size      string
	VariantID int64
}

// normalize applies the caller-facing defaults
func (in AddInput) normalize() AddInput {
	if in.Quantity < 1 {
		in.Quantity = 1
	}
	if in.Size == "" {
		in.Size = cart.DefaultSize
	}
	return in
}

// AddToCart adds quantity units of the item, merging with an existing line
// for the same (product, size, variant) tuple. The remote call carries the
// resulting total quantity, not the delta: the endpoint means "set quantity
// to N". Without a session token this is a no-op; the UI is expected to
// have already redirected to login. A remote failure keeps the optimistic
// local state and is logged, not returned.
func (s *Store) AddToCart(ctx context.Context, input AddInput) {
	if s.tokens.Token() == "" {
		s.logger.Debug("add to cart ignored without session token",
			zap.Int64("product_id", input.ProductID),
		)
		return
	}
	input = input.normalize()

	key := cart.LineKey{ProductID: input.ProductID, Size: input.Size, VariantID: input.VariantID}
	unlock := s.keys.Lock(key)
	defer unlock()

	s.mu.Lock()
	total := cart.ResolveAddQuantity(s.lines, key, input.Quantity)
	s.lines = cart.MergeAdd(s.lines, cart.Line{
		ProductID: input.ProductID,
		Name:      input.Name,
		ImageURL:  input.ImageURL,
		UnitPrice: input.UnitPrice,
		Size:      input.Size,
		Stock:     input.Stock,
		VariantID: input.VariantID,
	}, input.Quantity)
	s.hydratedLocked()
	s.mu.Unlock()

	snap, err := s.service.AddItem(ctx, cart.AddItemInput{
		ProductID:    input.ProductID,
		Quantity:     total,
		VariantID:    input.VariantID,
		SelectedSize: input.Size,
	})
	if err != nil {
		s.markLineState(key, cart.SyncStateFailed)
		s.logger.Warn("add to cart not acknowledged, keeping local state",
			zap.Int64("product_id", input.ProductID),
			zap.Int64("quantity", total),
			zap.Error(err),
		)
		return
	}
	s.replaceFromSnapshot(ctx, snap)
}

// UpdateQuantity sets the absolute quantity of the line matching productID
// and size. A quantity of zero or less is defined to be a removal, not an
// error. A line the server has not yet acknowledged is updated
// optimistically only; the next full sync reconciles it.
func (s *Store) UpdateQuantity(ctx context.Context, productID, quantity int64, size string) {
	if quantity <= 0 {
		s.RemoveFromCart(ctx, productID, size)
		return
	}
	if s.tokens.Token() == "" {
		s.logger.Debug("quantity update ignored without session token",
			zap.Int64("product_id", productID),
		)
		return
	}

	line, ok := s.findLine(productID, size)
	if !ok {
		s.logger.Warn("quantity update for unknown cart line",
			zap.Int64("product_id", productID),
			zap.String("size", size),
		)
		return
	}
	key := line.Key()
	unlock := s.keys.Lock(key)
	defer unlock()

	// Re-read under the key lock; a concurrent mutation may have changed
	// the server line id since the lookup.
	if line, ok = s.findLine(productID, line.Size); !ok {
		return
	}

	s.setQuantity(key, quantity)

	if !line.Acknowledged() {
		s.logger.Debug("line not yet acknowledged by server, keeping update local",
			zap.Int64("product_id", productID),
		)
		return
	}

	snap, err := s.service.UpdateItem(ctx, line.ServerLineID, quantity)
	if err != nil {
		s.markLineState(key, cart.SyncStateFailed)
		s.logger.Warn("quantity update not acknowledged, keeping local state",
			zap.Int64("product_id", productID),
			zap.Int64("quantity", quantity),
			zap.Error(err),
		)
		return
	}
	s.replaceFromSnapshot(ctx, snap)
}

// RemoveFromCart deletes the line matching productID and size. Unlike the
// other mutations the remote delete is issued before local state changes:
// a removal the server silently rejected would lose a paid-for intent, so
// the UI only reports the line gone once the server confirms. On remote
// failure the store escalates to a forced full resync instead of guessing.
func (s *Store) RemoveFromCart(ctx context.Context, productID int64, size string) {
	line, ok := s.findLine(productID, size)
	if !ok {
		s.logger.Debug("remove for unknown cart line",
			zap.Int64("product_id", productID),
			zap.String("size", size),
		)
		return
	}
	key := line.Key()
	unlock := s.keys.Lock(key)
	defer unlock()

	// Re-read under the key lock; an interleaved sync may have assigned a
	// server line id in the meantime.
	if line, ok = s.findLine(productID, line.Size); !ok {
		return
	}

	if !line.Acknowledged() {
		// Nothing to tell the server; best-effort local removal.
		s.logger.Info("removing line the server never acknowledged",
			zap.Int64("product_id", productID),
		)
		s.removeLocal(ctx, key)
		return
	}
	if s.tokens.Token() == "" {
		s.removeLocal(ctx, key)
		return
	}

	snap, err := s.service.RemoveItem(ctx, line.ServerLineID)
	if err != nil {
		s.logger.Warn("remove not acknowledged, forcing full resync",
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
		if rerr := s.Refresh(ctx); rerr != nil {
			s.logger.Error("resync after failed remove also failed", zap.Error(rerr))
		}
		return
	}
	s.replaceFromSnapshot(ctx, snap)
}

// ClearCart empties the local cart and cache immediately; clearing is
// assumed always desired even if the remote call lags or fails. The remote
// clear is best effort and a failure is logged only.
func (s *Store) ClearCart(ctx context.Context) {
	s.mu.Lock()
	s.lines = nil
	s.hydratedLocked()
	s.mu.Unlock()

	if err := s.cache.Delete(ctx, s.cacheKey); err != nil {
		s.logger.Warn("failed to discard cached cart copy", zap.Error(err))
	}

	if s.tokens.Token() == "" {
		return
	}
	if err := s.service.ClearCart(ctx); err != nil {
		s.logger.Warn("remote cart clear failed", zap.Error(err))
	}
}

// findLine returns the first line matching productID and size. An empty
// size matches any size, mirroring the optional size argument of the
// caller-facing API.
func (s *Store) findLine(productID int64, size string) (cart.Line, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.lines {
		if l.ProductID != productID {
			continue
		}
		if size == "" || l.Size == size {
			return l, true
		}
	}
	return cart.Line{}, false
}

// setQuantity optimistically sets the quantity of the line matching key
func (s *Store) setQuantity(key cart.LineKey, quantity int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].Key() == key {
			s.lines[i].Quantity = quantity
			s.lines[i].SyncState = cart.SyncStatePending
			return
		}
	}
}

// removeLocal drops the line matching key from the view and persists
func (s *Store) removeLocal(ctx context.Context, key cart.LineKey) {
	s.mu.Lock()
	kept := s.lines[:0]
	for _, l := range s.lines {
		if l.Key() != key {
			kept = append(kept, l)
		}
	}
	s.lines = kept
	lines := make([]cart.Line, len(s.lines))
	copy(lines, s.lines)
	s.mu.Unlock()

	if err := s.cache.Save(ctx, s.cacheKey, lines); err != nil {
		s.logger.Warn("failed to persist cart snapshot", zap.Error(err))
	}
}

// hydratedLocked marks the store hydrated; callers hold s.mu. A mutation
// implies the caller considers the cart live, so derived totals may start
// reflecting it.
func (s *Store) hydratedLocked() {
	s.hydrated = true
}
