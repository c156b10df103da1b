package cart

import (
	"github.com/shopspring/decimal"
)

// Snapshot is the cart shape returned by the remote service. Whenever a
// snapshot is successfully fetched it is the single source of truth: the
// client's view is rebuilt from it wholesale, never merged field by field.
type Snapshot struct {
	ID        int64
	Items     []SnapshotItem
	Subtotal  decimal.Decimal
	ItemCount int64
}

// SnapshotItem is one row of a server cart snapshot
type SnapshotItem struct {
	LineID       int64
	ProductID    int64
	ProductName  string
	ProductImage string
	Quantity     int64
	UnitPrice    decimal.Decimal
	Subtotal     decimal.Decimal
	Stock        int64
	Metadata     ItemMetadata
}

// ItemMetadata carries the variant attributes the service stores per line
type ItemMetadata struct {
	SelectedSize string
	VariantID    int64
	WeightGrams  int64
}

// Lines converts the snapshot into the local view. Every converted line is
// SyncStateSynced; this is also what assigns ServerLineID to lines that were
// created optimistically.
func (s *Snapshot) Lines() []Line {
	if s == nil {
		return nil
	}
	lines := make([]Line, 0, len(s.Items))
	for _, item := range s.Items {
		size := item.Metadata.SelectedSize
		if size == "" {
			size = DefaultSize
		}
		lines = append(lines, Line{
			ProductID:    item.ProductID,
			ServerLineID: item.LineID,
			Name:         item.ProductName,
			ImageURL:     item.ProductImage,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			Size:         size,
			Stock:        item.Stock,
			VariantID:    item.Metadata.VariantID,
			SyncState:    SyncStateSynced,
		})
	}
	return lines
}
