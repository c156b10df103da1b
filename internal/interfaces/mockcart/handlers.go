package mockcart

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Wire shapes of the cart service contract

type itemMetadataJSON struct {
	SelectedSize string `json:"selected_size"`
	VariantID    int64  `json:"variant_id,omitempty"`
	WeightGrams  int64  `json:"weight_grams,omitempty"`
}

type cartItemJSON struct {
	ID           int64            `json:"id"`
	ProductID    int64            `json:"product_id"`
	ProductName  string           `json:"product_name"`
	ProductImage string           `json:"product_image"`
	Quantity     int64            `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	Subtotal     decimal.Decimal  `json:"subtotal"`
	Stock        int64            `json:"stock"`
	Metadata     itemMetadataJSON `json:"metadata"`
}

type cartJSON struct {
	ID        int64           `json:"id"`
	Items     []cartItemJSON  `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int64           `json:"item_count"`
}

type validationChangeJSON struct {
	Type         string           `json:"type"`
	CartItemID   int64            `json:"cart_item_id"`
	ProductID    int64            `json:"product_id"`
	Message      string           `json:"message"`
	OldPrice     *decimal.Decimal `json:"old_price,omitempty"`
	NewPrice     *decimal.Decimal `json:"new_price,omitempty"`
	CurrentStock *int64           `json:"current_stock,omitempty"`
}

// renderCart builds the snapshot response. Caller holds s.mu.
func (s *Server) renderCart(crt *memoryCart) cartJSON {
	out := cartJSON{ID: crt.id, Items: make([]cartItemJSON, 0, len(crt.items)), Subtotal: decimal.Zero}
	for _, line := range crt.items {
		product := s.products[line.productID]
		item := cartItemJSON{
			ID:        line.id,
			ProductID: line.productID,
			Quantity:  line.quantity,
			UnitPrice: line.price,
			Subtotal:  line.price.Mul(decimal.NewFromInt(line.quantity)),
			Metadata: itemMetadataJSON{
				SelectedSize: line.size,
				VariantID:    line.variantID,
				WeightGrams:  line.weight,
			},
		}
		if product != nil {
			item.ProductName = product.Name
			item.ProductImage = product.Image
			item.Stock = product.Stock
		}
		out.Items = append(out.Items, item)
		out.Subtotal = out.Subtotal.Add(item.Subtotal)
		out.ItemCount += line.quantity
	}
	return out
}

// reconcile refreshes recorded prices and weights to catalog truth and
// drops lines whose product has been deactivated or deleted. This runs on
// cart reads, so a fetch after a validation warning pulls corrected values.
// Caller holds s.mu.
func (s *Server) reconcile(crt *memoryCart) {
	kept := crt.items[:0]
	for _, line := range crt.items {
		product, ok := s.products[line.productID]
		if !ok || !product.Active {
			continue
		}
		line.price = product.Price
		line.weight = product.WeightGrams
		kept = append(kept, line)
	}
	crt.items = kept
}

func (s *Server) getCart(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	crt := s.cartFor(c)
	s.reconcile(crt)
	c.JSON(http.StatusOK, s.renderCart(crt))
}

func (s *Server) addItem(c *gin.Context) {
	var req struct {
		ProductID int64  `json:"product_id" binding:"required"`
		Quantity  int64  `json:"quantity" binding:"required"`
		VariantID *int64 `json:"variant_id"`
		Metadata  struct {
			SelectedSize string `json:"selected_size"`
		} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[req.ProductID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	if !product.Active {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "product is not available"})
		return
	}

	var variantID int64
	if req.VariantID != nil {
		variantID = *req.VariantID
	}

	crt := s.cartFor(c)
	// Set-quantity semantics: an existing line for the same tuple is set to
	// the requested quantity, never incremented.
	for _, line := range crt.items {
		if line.productID == req.ProductID && line.size == req.Metadata.SelectedSize && line.variantID == variantID {
			line.quantity = req.Quantity
			c.JSON(http.StatusOK, s.renderCart(crt))
			return
		}
	}

	s.nextLineID++
	crt.items = append(crt.items, &memoryLine{
		id:        s.nextLineID,
		productID: req.ProductID,
		variantID: variantID,
		size:      req.Metadata.SelectedSize,
		quantity:  req.Quantity,
		price:     product.Price,
		weight:    product.WeightGrams,
	})
	c.JSON(http.StatusCreated, s.renderCart(crt))
}

func (s *Server) updateItem(c *gin.Context) {
	lineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid line id"})
		return
	}
	var req struct {
		Quantity int64 `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	crt := s.cartFor(c)
	for _, line := range crt.items {
		if line.id == lineID {
			line.quantity = req.Quantity
			c.JSON(http.StatusOK, s.renderCart(crt))
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "cart item not found"})
}

func (s *Server) removeItem(c *gin.Context) {
	lineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid line id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	crt := s.cartFor(c)
	for i, line := range crt.items {
		if line.id == lineID {
			crt.items = append(crt.items[:i], crt.items[i+1:]...)
			c.JSON(http.StatusOK, s.renderCart(crt))
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "cart item not found"})
}

func (s *Server) clearCart(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := c.GetString("token")
	delete(s.carts, token)
	c.Status(http.StatusNoContent)
}

func (s *Server) validateCart(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	crt := s.cartFor(c)
	changes := make([]validationChangeJSON, 0)
	blocking := false

	for _, line := range crt.items {
		product, ok := s.products[line.productID]
		if !ok || !product.Active {
			changes = append(changes, validationChangeJSON{
				Type:       "product_unavailable",
				CartItemID: line.id,
				ProductID:  line.productID,
				Message:    "Product is no longer available",
			})
			blocking = true
			continue
		}
		if !product.Price.Equal(line.price) {
			oldPrice, newPrice := line.price, product.Price
			changes = append(changes, validationChangeJSON{
				Type:       "price_changed",
				CartItemID: line.id,
				ProductID:  line.productID,
				Message:    "Price changed from " + oldPrice.String() + " to " + newPrice.String(),
				OldPrice:   &oldPrice,
				NewPrice:   &newPrice,
			})
			blocking = true
		}
		if product.Stock < line.quantity {
			stock := product.Stock
			changes = append(changes, validationChangeJSON{
				Type:         "stock_insufficient",
				CartItemID:   line.id,
				ProductID:    line.productID,
				Message:      "Only " + strconv.FormatInt(stock, 10) + " left in stock",
				CurrentStock: &stock,
			})
			blocking = true
		}
		if product.WeightGrams != line.weight {
			changes = append(changes, validationChangeJSON{
				Type:       "weight_changed",
				CartItemID: line.id,
				ProductID:  line.productID,
				Message:    "Product weight changed; shipping cost may differ",
			})
		}
	}

	message := "Cart is valid"
	if len(changes) > 0 {
		message = "Cart has changes that need attention"
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":   !blocking,
		"changes": changes,
		"cart":    s.renderCart(crt),
		"message": message,
	})
}
