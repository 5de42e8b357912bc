package medusa

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{BaseURL: srv.URL + "/"}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 30, cfg.TimeoutSeconds)

	cfg = Config{BaseURL: "https://shop.example.com/"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://shop.example.com", cfg.BaseURL)

	for _, bad := range []string{"localhost:9000", "ftp://example.com", "http://"} {
		cfg := Config{BaseURL: bad}
		assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalidBaseURL, bad)
	}
}

func TestClient_CreateCart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/store/carts", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"cart": map[string]any{"id": "cart_456", "items": []any{}, "region": map[string]any{"currency_code": "usd"}},
		})
	})

	cart, err := client.CreateCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cart_456", cart.ID)
	assert.Equal(t, "usd", cart.Region.CurrencyCode)
}

func TestClient_AddLineItem(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/store/carts/cart_456/line-items", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "variant_9", body["variant_id"])
		assert.EqualValues(t, 3, body["quantity"])

		writeJSON(w, http.StatusOK, map[string]any{
			"cart": map[string]any{
				"id": "cart_456",
				"items": []any{map[string]any{
					"id": "li_1", "variant_id": "variant_9", "quantity": 3, "unit_price": 1500, "title": "Shirt",
				}},
			},
		})
	})

	cart, err := client.AddLineItem(context.Background(), "cart_456", "variant_9", 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.ItemCount())
	assert.Equal(t, int64(1500), cart.Items[0].UnitPrice)
}

func TestClient_UpdateAndDeleteLineItem(t *testing.T) {
	var calls []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"cart": map[string]any{"id": "cart_1"}})
	})

	_, err := client.UpdateLineItem(context.Background(), "cart_1", "li_1", 4)
	require.NoError(t, err)
	_, err = client.DeleteLineItem(context.Background(), "cart_1", "li_1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"POST /store/carts/cart_1/line-items/li_1",
		"DELETE /store/carts/cart_1/line-items/li_1",
	}, calls)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, `{"type":"not_found","message":"Cart with cart_123 was not found"}`, domain.ErrNotFound},
		{"server error", http.StatusInternalServerError, `{}`, domain.ErrServer},
		{"bad request", http.StatusBadRequest, `{"message":"quantity invalid"}`, domain.ErrServer},
		{"malformed body", http.StatusOK, `{"cart":`, domain.ErrServer},
		{"missing cart", http.StatusOK, `{}`, domain.ErrServer},
		{"cart without id", http.StatusOK, `{"cart":{"items":[]}}`, domain.ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.RetrieveCart(context.Background(), "cart_123")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var remote *domain.RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Equal(t, "retrieve cart", remote.Op)
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client, err := NewClient(Config{BaseURL: baseURL}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.RetrieveCart(context.Background(), "cart_1")
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestClient_Catalog(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/store/products":
			writeJSON(w, http.StatusOK, map[string]any{"products": []any{
				map[string]any{"id": "prod_1", "title": "Shirt", "variants": []any{
					map[string]any{"id": "variant_1", "title": "S", "prices": []any{map[string]any{"amount": 1000, "currency_code": "usd"}}, "metadata": map[string]any{"handle": "shirt-s"}},
				}},
			}})
		case "/store/products/prod_1":
			writeJSON(w, http.StatusOK, map[string]any{"product": map[string]any{"id": "prod_1", "title": "Shirt"}})
		case "/store/regions":
			writeJSON(w, http.StatusOK, map[string]any{"regions": []any{
				map[string]any{"id": "reg_1", "name": "Europe", "currency_code": "EUR"},
			}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "shirt-s", products[0].Variants[0].Metadata.Handle)

	product, err := client.RetrieveProduct(context.Background(), "prod_1")
	require.NoError(t, err)
	assert.Equal(t, "Shirt", product.Title)

	_, err = client.RetrieveProduct(context.Background(), "prod_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	regions, err := client.ListRegions(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "eur", regions[0].Code())
}

func TestClient_PublishableKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pk_test", r.Header.Get("x-publishable-api-key"))
		writeJSON(w, http.StatusOK, map[string]any{"regions": []any{}})
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, PublishableKey: "pk_test"}, zap.NewNop())
	require.NoError(t, err)
	_, err = client.ListRegions(context.Background())
	require.NoError(t, err)
}
