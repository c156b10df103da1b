package cart

import (
	"github.com/shopspring/decimal"
)

// ResolveAddQuantity computes the absolute quantity the remote service must
// be told after adding requested units for key: the quantity already present
// for the matching line plus the requested amount. The remote add endpoint
// has "set quantity to N" semantics, so the client precomputes N locally
// before calling.
func ResolveAddQuantity(lines []Line, key LineKey, requested int64) int64 {
	if requested < 0 {
		requested = 0
	}
	for _, l := range lines {
		if l.Key() == key {
			return l.Quantity + requested
		}
	}
	return requested
}

// MergeAdd returns lines with requested units of line added: if a line with
// the same key exists its quantity is incremented, otherwise line is
// appended. The touched line is marked SyncStatePending. Order of existing
// lines is preserved.
func MergeAdd(lines []Line, line Line, requested int64) []Line {
	key := line.Key()
	out := make([]Line, len(lines))
	copy(out, lines)
	for i := range out {
		if out[i].Key() == key {
			out[i].Quantity += requested
			out[i].SyncState = SyncStatePending
			return out
		}
	}
	line.Quantity = requested
	line.SyncState = SyncStatePending
	return append(out, line)
}

// TotalItems sums line quantities. Rows with a non-positive quantity
// contribute zero so that a corrupted cached row never poisons the total.
func TotalItems(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		if l.Quantity > 0 {
			total += l.Quantity
		}
	}
	return total
}

// TotalPrice sums price times quantity under the same defensive rule as
// TotalItems. Negative prices are treated as zero.
func TotalPrice(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 || l.UnitPrice.IsNegative() {
			continue
		}
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)))
	}
	return total
}
