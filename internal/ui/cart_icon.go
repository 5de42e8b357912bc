package ui

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

// CartIcon — значок корзины с числом товаров. Перечитывает корзину на каждый сигнал шины.
type CartIcon struct {
	mu          sync.Mutex
	cart        CartActions
	count       int
	logger      *zap.Logger
	unsubscribe func()
}

func NewCartIcon(cart CartActions, bus domain.ChangeBus, logger *zap.Logger) *CartIcon {
	c := &CartIcon{cart: cart, logger: logger}
	c.unsubscribe = bus.Subscribe(func(ctx context.Context) { _ = c.Refresh(ctx) })
	return c
}

// Refresh пересчитывает количество как сумму quantity всех позиций.
// При ошибке сохраняется прежнее значение.
func (c *CartIcon) Refresh(ctx context.Context) error {
	cart, err := c.cart.CurrentCart(ctx)
	if err != nil {
		c.logger.Warn("error fetching cart", zap.Error(err))
		return err
	}
	count := 0
	if cart != nil {
		count = cart.ItemCount()
	}
	c.mu.Lock()
	c.count = count
	c.mu.Unlock()
	return nil
}

func (c *CartIcon) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Close отписывает иконку от шины.
func (c *CartIcon) Close() { c.unsubscribe() }

type CartIconView struct {
	Href  string
	Count int
}

func (c *CartIcon) View(href string) CartIconView {
	return CartIconView{Href: href, Count: c.Count()}
}
