// Package api implements the cart.Service port against the remote cart
// service's HTTP contract. The service is an external collaborator: this
// package owns only the consumed request/response shapes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/storefront/cartsync/internal/domain/cart"
	"github.com/storefront/cartsync/internal/infrastructure/config"
	"github.com/storefront/cartsync/internal/infrastructure/session"
)

// defaultMaxResponseSize caps how much of a response body is read (10MB)
const defaultMaxResponseSize = 10 * 1024 * 1024

// Sentinel errors for the remote cart service
var (
	// ErrUnauthenticated indicates no token was present or the service
	// rejected the one that was
	ErrUnauthenticated = errors.New("cart service: unauthenticated")
	// ErrServiceUnavailable indicates a transport-level failure
	ErrServiceUnavailable = errors.New("cart service: unavailable")
	// ErrRequestFailed indicates the service answered with an error status
	ErrRequestFailed = errors.New("cart service: request failed")
	// ErrInvalidResponse indicates an undecodable response body
	ErrInvalidResponse = errors.New("cart service: invalid response")
)

// Client is the HTTP client for the remote cart service
type Client struct {
	baseURL         string
	httpClient      *http.Client
	tokens          session.TokenSource
	logger          *zap.Logger
	maxResponseSize int64
}

// NewClient creates a cart service client from configuration
func NewClient(cfg config.APIConfig, tokens session.TokenSource, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("cart service: invalid base URL %q", cfg.BaseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport
	if cfg.TracingEnabled {
		transport = otelhttp.NewTransport(transport)
	}

	maxSize := cfg.MaxResponseBytes
	if maxSize <= 0 {
		maxSize = defaultMaxResponseSize
	}

	return &Client{
		baseURL: strings.TrimRight(base.String(), "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		tokens:          tokens,
		logger:          logger,
		maxResponseSize: maxSize,
	}, nil
}

// FetchCart returns the current server cart
func (c *Client) FetchCart(ctx context.Context) (*cart.Snapshot, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/cart", nil)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(body)
}

// AddItem creates a line or sets an existing line's quantity to the
// absolute value in input. The endpoint has "set quantity to N" semantics;
// callers precompute N via cart.ResolveAddQuantity.
func (c *Client) AddItem(ctx context.Context, input cart.AddItemInput) (*cart.Snapshot, error) {
	req := addItemRequest{
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
		Metadata:  itemMetadataWire{SelectedSize: input.SelectedSize},
	}
	if input.VariantID != 0 {
		req.VariantID = &input.VariantID
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/cart/items", req)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(body)
}

// UpdateItem sets the absolute quantity of an existing line
func (c *Client) UpdateItem(ctx context.Context, lineID, quantity int64) (*cart.Snapshot, error) {
	body, err := c.doRequest(ctx, http.MethodPut, "/cart/items/"+strconv.FormatInt(lineID, 10),
		updateItemRequest{Quantity: quantity})
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(body)
}

// RemoveItem deletes a line, returning the resulting snapshot. An empty
// body is treated as an empty cart: some removal paths answer with the
// empty-cart shape rather than a populated snapshot.
func (c *Client) RemoveItem(ctx context.Context, lineID int64) (*cart.Snapshot, error) {
	body, err := c.doRequest(ctx, http.MethodDelete, "/cart/items/"+strconv.FormatInt(lineID, 10), nil)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return &cart.Snapshot{}, nil
	}
	return decodeSnapshot(body)
}

// ClearCart empties the server cart
func (c *Client) ClearCart(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/cart", nil)
	return err
}

// ValidateCart re-checks every line against current catalog truth
func (c *Client) ValidateCart(ctx context.Context) (*cart.ValidationResult, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/cart/validate", nil)
	if err != nil {
		return nil, err
	}

	var resp validateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return resp.toDomain(), nil
}

// doRequest performs one HTTP request against the cart service. A missing
// session token fails before any network I/O.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	token := c.tokens.Token()
	if token == "" {
		return nil, ErrUnauthenticated
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("cart service: failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("cart service: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("cart service: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: HTTP 401", ErrUnauthenticated)
	case resp.StatusCode >= 400:
		c.logger.Debug("cart service error response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

// decodeSnapshot decodes a full cart snapshot response
func decodeSnapshot(body []byte) (*cart.Snapshot, error) {
	var resp cartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return resp.toDomain(), nil
}

// Ensure Client implements the cart service port
var _ cart.Service = (*Client)(nil)
