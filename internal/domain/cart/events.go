package cart

import (
	"github.com/storefront/cartsync/internal/domain/shared"
)

// EventTypeRefreshRequested asks the cart store to force a full resync from
// the server. Published by flows outside the store itself, e.g. post-login
// or moving a wishlist item into the cart.
const EventTypeRefreshRequested = "cart.refresh_requested"

// RefreshRequested is the refresh trigger event
type RefreshRequested struct {
	shared.BaseDomainEvent
	// Reason is a free-form tag for logging ("login", "wishlist_move", ...)
	Reason string `json:"reason,omitempty"`
}

// NewRefreshRequested creates a refresh trigger event
func NewRefreshRequested(reason string) *RefreshRequested {
	return &RefreshRequested{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRefreshRequested),
		Reason:          reason,
	}
}
