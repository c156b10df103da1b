// Package mockcart is a development fake of the remote cart service. It
// implements only the consumed contract (plus an admin knob for simulating
// out-of-band catalog edits) against in-memory state, for local runs and
// end-to-end tests of the cart engine.
package mockcart

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Product is one catalog entry of the fake storefront
type Product struct {
	ID          int64
	Name        string
	Image       string
	Price       decimal.Decimal
	Stock       int64
	WeightGrams int64
	Active      bool
}

// memoryLine is one cart row. Price and weight are recorded at add time and
// reconciled to catalog truth on cart reads, so the validate endpoint can
// report divergence in between.
type memoryLine struct {
	id        int64
	productID int64
	variantID int64
	size      string
	quantity  int64
	price     decimal.Decimal
	weight    int64
}

// memoryCart is one per-token cart
type memoryCart struct {
	id    int64
	items []*memoryLine
}

// Server holds the fake service state and its HTTP handler
type Server struct {
	logger *zap.Logger
	engine *gin.Engine

	mu         sync.Mutex
	products   map[int64]*Product
	carts      map[string]*memoryCart
	nextCartID int64
	nextLineID int64
}

// NewServer creates a mock cart service with an empty catalog
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:   logger,
		products: make(map[int64]*Product),
		carts:    make(map[string]*memoryCart),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	authed := engine.Group("/", s.requireToken)
	{
		authed.GET("/cart", s.getCart)
		authed.POST("/cart/items", s.addItem)
		authed.PUT("/cart/items/:id", s.updateItem)
		authed.DELETE("/cart/items/:id", s.removeItem)
		authed.DELETE("/cart", s.clearCart)
		authed.GET("/cart/validate", s.validateCart)
	}
	engine.PUT("/admin/products/:id", s.updateProduct)

	s.engine = engine
	return s
}

// Handler returns the HTTP handler of the mock service
func (s *Server) Handler() http.Handler {
	return s.engine
}

// AddProduct seeds or replaces a catalog entry
func (s *Server) AddProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := p
	s.products[p.ID] = &copied
}

// requireToken extracts the bearer token; the token string is opaque and
// doubles as the cart key
func (s *Server) requireToken(c *gin.Context) {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
		return
	}
	c.Set("token", header[len(prefix):])
	c.Next()
}

// cartFor returns (creating if needed) the cart for the request's token.
// Caller holds s.mu.
func (s *Server) cartFor(c *gin.Context) *memoryCart {
	token := c.GetString("token")
	crt, ok := s.carts[token]
	if !ok {
		s.nextCartID++
		crt = &memoryCart{id: s.nextCartID}
		s.carts[token] = crt
	}
	return crt
}

// updateProduct simulates an out-of-band admin edit: price or stock change,
// weight change, or deactivation
func (s *Server) updateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid product id"})
		return
	}

	var req struct {
		Price       *decimal.Decimal `json:"price"`
		Stock       *int64           `json:"stock"`
		WeightGrams *int64           `json:"weight_grams"`
		Active      *bool            `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.WeightGrams != nil {
		product.WeightGrams = *req.WeightGrams
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	s.logger.Debug("product updated", zap.Int64("product_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}
