package medusa

import (
	"fmt"

	"github.com/example/storefront/internal/domain"
)

type cartEnvelope struct {
	Cart *domain.CartSnapshot `json:"cart"`
}

type productsEnvelope struct {
	Products []domain.Product `json:"products"`
}

type productEnvelope struct {
	Product *domain.Product `json:"product"`
}

type regionsEnvelope struct {
	Regions []domain.Region `json:"regions"`
}

type lineItemCreateRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type lineItemUpdateRequest struct {
	Quantity int `json:"quantity"`
}

// errorBody — тело ошибки бэкенда, используется только для сообщения.
type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type envelopeError string

func (e envelopeError) Error() string { return string(e) }

func checkCart(env cartEnvelope) (domain.CartSnapshot, error) {
	if env.Cart == nil {
		return domain.CartSnapshot{}, envelopeError("missing cart")
	}
	if env.Cart.ID == "" {
		return domain.CartSnapshot{}, envelopeError("cart without id")
	}
	for i, it := range env.Cart.Items {
		if it.ID == "" {
			return domain.CartSnapshot{}, envelopeError(fmt.Sprintf("line item %d without id", i))
		}
	}
	return *env.Cart, nil
}

func checkProduct(p *domain.Product) (domain.Product, error) {
	if p == nil {
		return domain.Product{}, envelopeError("missing product")
	}
	if p.ID == "" {
		return domain.Product{}, envelopeError("product without id")
	}
	return *p, nil
}

func checkRegions(env regionsEnvelope) ([]domain.Region, error) {
	for i, r := range env.Regions {
		if r.ID == "" || r.CurrencyCode == "" {
			return nil, envelopeError(fmt.Sprintf("region %d without id or currency", i))
		}
	}
	return env.Regions, nil
}
