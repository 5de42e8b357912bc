package usecase

import (
	"context"

	"github.com/example/storefront/internal/domain"
)

// CartIDKey — ключ ссылки на корзину в хранилище покупателя.
const CartIDKey = "cartId"

// CartReference — ссылка на активную корзину, хранимая в KeyValueStore.
// Пустая строка не считается ссылкой.
type CartReference struct {
	Store domain.KeyValueStore
}

func (r CartReference) Load(ctx context.Context) (string, bool, error) {
	v, ok, err := r.Store.Get(ctx, CartIDKey)
	if err != nil || !ok || v == "" {
		return "", false, err
	}
	return v, true, nil
}

func (r CartReference) Save(ctx context.Context, cartID string) error {
	return r.Store.Set(ctx, CartIDKey, cartID)
}

func (r CartReference) Clear(ctx context.Context) error {
	return r.Store.Delete(ctx, CartIDKey)
}
