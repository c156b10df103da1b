package cart

import (
	"context"
)

// AddItemInput is the request shape for creating or resizing a cart line on
// the remote service. Quantity is the absolute resulting quantity, not a
// delta; see ResolveAddQuantity.
type AddItemInput struct {
	ProductID    int64
	Quantity     int64
	VariantID    int64
	SelectedSize string
}

// Service is the remote cart service as consumed by the store. All calls
// assume a bearer token is attached by the implementation; a missing token
// must fail before any network I/O.
type Service interface {
	// FetchCart returns the current server cart
	FetchCart(ctx context.Context) (*Snapshot, error)

	// AddItem creates a line or sets an existing line's quantity to the
	// absolute value in input, returning the resulting snapshot
	AddItem(ctx context.Context, input AddItemInput) (*Snapshot, error)

	// UpdateItem sets the absolute quantity of an existing line
	UpdateItem(ctx context.Context, lineID, quantity int64) (*Snapshot, error)

	// RemoveItem deletes a line, returning the resulting snapshot
	RemoveItem(ctx context.Context, lineID int64) (*Snapshot, error)

	// ClearCart empties the server cart
	ClearCart(ctx context.Context) error

	// ValidateCart re-checks every line's price, stock and availability
	// against current catalog truth
	ValidateCart(ctx context.Context) (*ValidationResult, error)
}

// SnapshotStore is the durable local cache holding the last-known cart for
// an account. It is purely a warm-start backup: on the next load the server
// snapshot always wins if reachable.
type SnapshotStore interface {
	// Save persists the lines under key, replacing any previous copy
	Save(ctx context.Context, key string, lines []Line) error

	// Load returns the cached lines for key, dropping rows that fail the
	// shape check. A missing key yields an empty result, not an error.
	Load(ctx context.Context, key string) ([]Line, error)

	// Delete discards the cached copy for key
	Delete(ctx context.Context, key string) error

	// Close releases backend resources
	Close() error
}
