package medusa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

// maxResponseSize — предел размера ответа бэкенда (10MB).
const maxResponseSize = 10 * 1024 * 1024

// Client — адаптер store API коммерческого бэкенда.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger.Named("medusa"),
	}, nil
}

func (c *Client) CreateCart(ctx context.Context) (domain.CartSnapshot, error) {
	var env cartEnvelope
	if err := c.do(ctx, "create cart", http.MethodPost, "/store/carts", struct{}{}, &env); err != nil {
		return domain.CartSnapshot{}, err
	}
	return c.cart("create cart", env)
}

func (c *Client) RetrieveCart(ctx context.Context, cartID string) (domain.CartSnapshot, error) {
	var env cartEnvelope
	if err := c.do(ctx, "retrieve cart", http.MethodGet, "/store/carts/"+url.PathEscape(cartID), nil, &env); err != nil {
		return domain.CartSnapshot{}, err
	}
	return c.cart("retrieve cart", env)
}

func (c *Client) AddLineItem(ctx context.Context, cartID, variantID string, quantity int) (domain.CartSnapshot, error) {
	var env cartEnvelope
	path := "/store/carts/" + url.PathEscape(cartID) + "/line-items"
	body := lineItemCreateRequest{VariantID: variantID, Quantity: quantity}
	if err := c.do(ctx, "create line item", http.MethodPost, path, body, &env); err != nil {
		return domain.CartSnapshot{}, err
	}
	return c.cart("create line item", env)
}

func (c *Client) UpdateLineItem(ctx context.Context, cartID, lineItemID string, quantity int) (domain.CartSnapshot, error) {
	var env cartEnvelope
	path := "/store/carts/" + url.PathEscape(cartID) + "/line-items/" + url.PathEscape(lineItemID)
	if err := c.do(ctx, "update line item", http.MethodPost, path, lineItemUpdateRequest{Quantity: quantity}, &env); err != nil {
		return domain.CartSnapshot{}, err
	}
	return c.cart("update line item", env)
}

func (c *Client) DeleteLineItem(ctx context.Context, cartID, lineItemID string) (domain.CartSnapshot, error) {
	var env cartEnvelope
	path := "/store/carts/" + url.PathEscape(cartID) + "/line-items/" + url.PathEscape(lineItemID)
	if err := c.do(ctx, "delete line item", http.MethodDelete, path, nil, &env); err != nil {
		return domain.CartSnapshot{}, err
	}
	return c.cart("delete line item", env)
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var env productsEnvelope
	if err := c.do(ctx, "list products", http.MethodGet, "/store/products", nil, &env); err != nil {
		return nil, err
	}
	for i := range env.Products {
		if _, err := checkProduct(&env.Products[i]); err != nil {
			return nil, c.invalid("list products", err)
		}
	}
	return env.Products, nil
}

func (c *Client) RetrieveProduct(ctx context.Context, productID string) (domain.Product, error) {
	var env productEnvelope
	if err := c.do(ctx, "retrieve product", http.MethodGet, "/store/products/"+url.PathEscape(productID), nil, &env); err != nil {
		return domain.Product{}, err
	}
	p, err := checkProduct(env.Product)
	if err != nil {
		return domain.Product{}, c.invalid("retrieve product", err)
	}
	return p, nil
}

func (c *Client) ListRegions(ctx context.Context) ([]domain.Region, error) {
	var env regionsEnvelope
	if err := c.do(ctx, "list regions", http.MethodGet, "/store/regions", nil, &env); err != nil {
		return nil, err
	}
	regions, err := checkRegions(env)
	if err != nil {
		return nil, c.invalid("list regions", err)
	}
	return regions, nil
}

func (c *Client) cart(op string, env cartEnvelope) (domain.CartSnapshot, error) {
	cart, err := checkCart(env)
	if err != nil {
		return domain.CartSnapshot{}, c.invalid(op, err)
	}
	return cart, nil
}

func (c *Client) invalid(op string, err error) error {
	return &domain.RemoteError{Op: op, Kind: domain.ErrServer, Err: fmt.Errorf("invalid response: %w", err)}
}

// do выполняет запрос и декодирует JSON-ответ в out.
// Ошибки транспорта -> ErrNetwork, 404 -> ErrNotFound, прочие не-2xx -> ErrServer.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("medusa: %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("medusa: %s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.PublishableKey != "" {
		req.Header.Set("x-publishable-api-key", c.config.PublishableKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("op", op), zap.String("path", path), zap.Error(err))
		return &domain.RemoteError{Op: op, Kind: domain.ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &domain.RemoteError{Op: op, Kind: domain.ErrNetwork, Status: resp.StatusCode, Err: err}
	}

	c.logger.Debug("request done",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode == http.StatusNotFound {
		return &domain.RemoteError{Op: op, Kind: domain.ErrNotFound, Status: resp.StatusCode, Err: errorMessage(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.RemoteError{Op: op, Kind: domain.ErrServer, Status: resp.StatusCode, Err: errorMessage(raw)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.invalid(op, err)
	}
	return nil
}

func errorMessage(raw []byte) error {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil || eb.Message == "" {
		return nil
	}
	return envelopeError(eb.Message)
}

var _ domain.CommerceClient = (*Client)(nil)
