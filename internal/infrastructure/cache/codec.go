package cache

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/cartsync/internal/domain/cart"
)

// cachedLine is the serialized form of a cart line in the durable cache.
// Numeric fields are float64 on purpose: the cache is untrusted input, and
// a loose decode lets a corrupted value be inspected and dropped instead of
// failing the whole load.
type cachedLine struct {
	ProductID    float64 `json:"product_id" validate:"required,finite,gt=0"`
	ServerLineID float64 `json:"server_line_id" validate:"finite,gte=0"`
	Name         string  `json:"name"`
	ImageURL     string  `json:"image_url"`
	UnitPrice    float64 `json:"unit_price" validate:"finite,gte=0"`
	Quantity     float64 `json:"quantity" validate:"finite,gte=0"`
	Size         string  `json:"size"`
	Stock        float64 `json:"stock" validate:"finite,gte=0"`
	VariantID    float64 `json:"variant_id" validate:"finite,gte=0"`
}

// newLineValidator builds the shape validator for cached lines
func newLineValidator() *validator.Validate {
	v := validator.New()
	// JSON cannot carry NaN/Inf directly, but a cache written by an older
	// or corrupted client can; "finite" closes that hole.
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// encodeLines serializes lines for the durable cache
func encodeLines(lines []cart.Line) ([]byte, error) {
	rows := make([]cachedLine, 0, len(lines))
	for _, l := range lines {
		price, _ := l.UnitPrice.Float64()
		rows = append(rows, cachedLine{
			ProductID:    float64(l.ProductID),
			ServerLineID: float64(l.ServerLineID),
			Name:         l.Name,
			ImageURL:     l.ImageURL,
			UnitPrice:    price,
			Quantity:     float64(l.Quantity),
			Size:         l.Size,
			Stock:        float64(l.Stock),
			VariantID:    float64(l.VariantID),
		})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to encode cart lines: %w", err)
	}
	return data, nil
}

// decodeLines deserializes a cached payload, silently dropping rows that
// fail to decode or fail the shape check. Malformed entries are a display
// problem, not an error: the cache is only a warm-start backup.
func decodeLines(data []byte, validate *validator.Validate, logger *zap.Logger) ([]cart.Line, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cache: payload is not a cart array: %w", err)
	}

	lines := make([]cart.Line, 0, len(raw))
	for i, msg := range raw {
		var row cachedLine
		if err := json.Unmarshal(msg, &row); err != nil {
			logger.Debug("dropping undecodable cached cart row",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		if err := validate.Struct(&row); err != nil {
			logger.Debug("dropping malformed cached cart row",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}

		size := row.Size
		if size == "" {
			size = cart.DefaultSize
		}
		lines = append(lines, cart.Line{
			ProductID:    int64(row.ProductID),
			ServerLineID: int64(row.ServerLineID),
			Name:         row.Name,
			ImageURL:     row.ImageURL,
			UnitPrice:    decimal.NewFromFloat(row.UnitPrice),
			Quantity:     int64(row.Quantity),
			Size:         size,
			Stock:        int64(row.Stock),
			VariantID:    int64(row.VariantID),
			SyncState:    cart.SyncStateSynced,
		})
	}
	return lines, nil
}
