package cart

import (
	"github.com/shopspring/decimal"
)

// ChangeKind classifies a divergence between a cart line and current
// catalog truth, as reported by the validate endpoint.
type ChangeKind string

const (
	ChangeKindPriceChanged       ChangeKind = "price_changed"
	ChangeKindStockInsufficient  ChangeKind = "stock_insufficient"
	ChangeKindProductUnavailable ChangeKind = "product_unavailable"
	// ChangeKindWeightChanged affects shipping cost only and does not block
	// checkout.
	ChangeKindWeightChanged ChangeKind = "weight_changed"
)

// ValidationChange is one divergence reported by the validate endpoint.
// Validation is advisory: the store never auto-mutates the local cart from
// these; callers display Message and trigger a full resync to pull
// corrected values.
type ValidationChange struct {
	Kind         ChangeKind
	CartLineID   int64
	ProductID    int64
	Message      string
	OldPrice     decimal.Decimal
	NewPrice     decimal.Decimal
	CurrentStock int64
}

// Blocking reports whether this change should prevent checkout until the
// user acknowledges a resync
func (c ValidationChange) Blocking() bool {
	return c.Kind != ChangeKindWeightChanged
}

// ValidationResult is the outcome of re-checking every cart line against
// current catalog truth
type ValidationResult struct {
	Valid   bool
	Changes []ValidationChange
	Message string
}
