package cart

import (
	"github.com/shopspring/decimal"
)

// SyncState describes how far a local line has progressed through
// reconciliation with the server-of-record cart.
type SyncState string

const (
	// SyncStateSynced means the line matches the last server snapshot.
	SyncStateSynced SyncState = "synced"
	// SyncStatePending means an optimistic local change has not yet been
	// acknowledged by the server.
	SyncStatePending SyncState = "optimistic-pending"
	// SyncStateFailed means the last write for this line failed; the
	// optimistic value is retained until a later resync corrects it.
	SyncStateFailed SyncState = "sync-failed"
)

// DefaultSize is applied when a caller adds an item without choosing a size.
const DefaultSize = "M"

// LineKey is the identity tuple for a cart line. At most one line may
// exist per key; a second add for the same key merges by summing quantity.
type LineKey struct {
	ProductID int64
	Size      string
	VariantID int64
}

// Line is the client's view of one cart row.
//
// UnitPrice and Stock are display caches of server-known values at last
// sync; they are untrusted for checkout-time decisions, which must go
// through validation first.
type Line struct {
	ProductID int64
	// ServerLineID is the identity assigned by the remote service once the
	// line exists there. Zero only during the interval between an
	// optimistic insert and server acknowledgment.
	ServerLineID int64
	Name         string
	ImageURL     string
	UnitPrice    decimal.Decimal
	Quantity     int64
	Size         string
	Stock        int64
	VariantID    int64
	SyncState    SyncState
}

// Key returns the identity tuple for this line
func (l Line) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Size: l.Size, VariantID: l.VariantID}
}

// Subtotal returns the display subtotal for this line
func (l Line) Subtotal() decimal.Decimal {
	if l.Quantity <= 0 {
		return decimal.Zero
	}
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// Acknowledged reports whether the server has assigned this line an identity
func (l Line) Acknowledged() bool {
	return l.ServerLineID != 0
}
