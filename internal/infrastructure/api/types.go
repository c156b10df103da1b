package api

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/cartsync/internal/domain/cart"
)

// Wire shapes of the remote cart service, as consumed.

type addItemRequest struct {
	ProductID int64            `json:"product_id"`
	Quantity  int64            `json:"quantity"`
	VariantID *int64           `json:"variant_id,omitempty"`
	Metadata  itemMetadataWire `json:"metadata"`
}

type updateItemRequest struct {
	Quantity int64 `json:"quantity"`
}

type itemMetadataWire struct {
	SelectedSize string `json:"selected_size"`
	VariantID    int64  `json:"variant_id,omitempty"`
	WeightGrams  int64  `json:"weight_grams,omitempty"`
}

type cartItemResponse struct {
	ID           int64            `json:"id"`
	ProductID    int64            `json:"product_id"`
	ProductName  string           `json:"product_name"`
	ProductImage string           `json:"product_image"`
	Quantity     int64            `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	Subtotal     decimal.Decimal  `json:"subtotal"`
	Stock        int64            `json:"stock"`
	Metadata     itemMetadataWire `json:"metadata"`
}

type cartResponse struct {
	ID        int64              `json:"id"`
	Items     []cartItemResponse `json:"items"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
	ItemCount int64              `json:"item_count"`
}

type validationChangeResponse struct {
	Type         string          `json:"type"`
	CartItemID   int64           `json:"cart_item_id"`
	ProductID    int64           `json:"product_id"`
	Message      string          `json:"message"`
	OldPrice     decimal.Decimal `json:"old_price"`
	NewPrice     decimal.Decimal `json:"new_price"`
	CurrentStock int64           `json:"current_stock"`
}

type validateResponse struct {
	Valid   bool                       `json:"valid"`
	Changes []validationChangeResponse `json:"changes"`
	Cart    *cartResponse              `json:"cart,omitempty"`
	Message string                     `json:"message"`
}

// toDomain converts the wire cart into a domain snapshot
func (r *cartResponse) toDomain() *cart.Snapshot {
	snap := &cart.Snapshot{
		ID:        r.ID,
		Items:     make([]cart.SnapshotItem, 0, len(r.Items)),
		Subtotal:  r.Subtotal,
		ItemCount: r.ItemCount,
	}
	for _, item := range r.Items {
		snap.Items = append(snap.Items, cart.SnapshotItem{
			LineID:       item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Subtotal:     item.Subtotal,
			Stock:        item.Stock,
			Metadata: cart.ItemMetadata{
				SelectedSize: item.Metadata.SelectedSize,
				VariantID:    item.Metadata.VariantID,
				WeightGrams:  item.Metadata.WeightGrams,
			},
		})
	}
	return snap
}

// toDomain converts the wire validation result into the domain shape
func (r *validateResponse) toDomain() *cart.ValidationResult {
	result := &cart.ValidationResult{
		Valid:   r.Valid,
		Changes: make([]cart.ValidationChange, 0, len(r.Changes)),
		Message: r.Message,
	}
	for _, change := range r.Changes {
		result.Changes = append(result.Changes, cart.ValidationChange{
			Kind:         cart.ChangeKind(change.Type),
			CartLineID:   change.CartItemID,
			ProductID:    change.ProductID,
			Message:      change.Message,
			OldPrice:     change.OldPrice,
			NewPrice:     change.NewPrice,
			CurrentStock: change.CurrentStock,
		})
	}
	return result
}
