package store

import (
	"context"

	"github.com/example/storefront/internal/domain"
)

// Namespaced — представление хранилища, где все ключи получают префикс "ns:".
// Одно пространство имён на сессию покупателя.
func Namespaced(inner domain.KeyValueStore, ns string) domain.KeyValueStore {
	return namespaced{inner: inner, prefix: ns + ":"}
}

type namespaced struct {
	inner  domain.KeyValueStore
	prefix string
}

func (n namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n namespaced) Set(ctx context.Context, key, value string) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}
