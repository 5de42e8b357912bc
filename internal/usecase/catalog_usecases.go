package usecase

import (
	"context"
	"strings"

	"github.com/example/storefront/internal/domain"
)

// ListProducts — получить список товаров с бэкенда.
type ListProducts struct {
	Client domain.CommerceClient
}

func (uc ListProducts) Execute(ctx context.Context) ([]domain.Product, error) {
	return uc.Client.ListProducts(ctx)
}

// GetProduct — получить товар по идентификатору.
type GetProduct struct {
	Client domain.CommerceClient
}

func (uc GetProduct) Execute(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, domain.ValidationErrorf("product id is required")
	}
	return uc.Client.RetrieveProduct(ctx, id)
}

// ListRegions — получить список регионов (рынков/валют).
type ListRegions struct {
	Client domain.CommerceClient
}

func (uc ListRegions) Execute(ctx context.Context) ([]domain.Region, error) {
	return uc.Client.ListRegions(ctx)
}
