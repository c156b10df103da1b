package cart

import (
	"github.com/storefront/cartsync/internal/domain/shared"
)

// Cart-specific domain errors
var (
	ErrLineNotFound  = shared.NewDomainError("CART_LINE_NOT_FOUND", "Cart line not found")
	ErrInvalidLine   = shared.NewDomainError("CART_INVALID_LINE", "Cart line failed shape validation")
	ErrEmptySnapshot = shared.NewDomainError("CART_EMPTY_SNAPSHOT", "Remote service returned no cart snapshot")
)
