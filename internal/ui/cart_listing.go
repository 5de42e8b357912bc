package ui

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

// ErrUnknownLineItem — позиции нет в последнем снимке корзины.
var ErrUnknownLineItem = errors.New("line item is not in the cart")

// CartListing — список корзины. Снимок не кэшируется дольше одного чтения:
// на каждый сигнал шины список перечитывается и позиции создаются заново.
type CartListing struct {
	mu          sync.Mutex
	cart        CartActions
	logger      *zap.Logger
	loaded      bool
	snapshot    *domain.CartSnapshot
	items       []*CartLineItem
	unsubscribe func()
}

func NewCartListing(cart CartActions, bus domain.ChangeBus, logger *zap.Logger) *CartListing {
	l := &CartListing{cart: cart, logger: logger}
	l.unsubscribe = bus.Subscribe(func(ctx context.Context) { _ = l.Refresh(ctx) })
	return l
}

// Refresh перечитывает корзину. При ошибке показывается последний снимок.
func (l *CartListing) Refresh(ctx context.Context) error {
	cart, err := l.cart.CurrentCart(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = true
	if err != nil {
		l.logger.Warn("error fetching cart", zap.Error(err))
		return err
	}
	l.snapshot = cart
	l.items = nil
	if cart != nil {
		for _, it := range cart.Items {
			l.items = append(l.items, NewCartLineItem(l.cart, cart.ID, it))
		}
	}
	return nil
}

// Item возвращает виджет позиции по id.
func (l *CartListing) Item(lineItemID string) (*CartLineItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, li := range l.items {
		if li.ID() == lineItemID {
			return li, nil
		}
	}
	return nil, ErrUnknownLineItem
}

// UpdateQuantity меняет количество позиции. Если корзина пропала на сервере,
// список перечитывается, чтобы не показывать устаревшие позиции.
func (l *CartListing) UpdateQuantity(ctx context.Context, lineItemID string, q int) error {
	li, err := l.Item(lineItemID)
	if err != nil {
		return err
	}
	return l.afterMutation(ctx, li.SetQuantity(ctx, q))
}

func (l *CartListing) Remove(ctx context.Context, lineItemID string) error {
	li, err := l.Item(lineItemID)
	if err != nil {
		return err
	}
	return l.afterMutation(ctx, li.Remove(ctx))
}

// Checkout — заглушка, оформление заказа на стороне бэкенда.
func (l *CartListing) Checkout() {
	l.logger.Info("proceeding to checkout")
}

func (l *CartListing) afterMutation(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		_ = l.Refresh(ctx)
	}
	return err
}

// Close отписывает список от шины.
func (l *CartListing) Close() { l.unsubscribe() }

type CartListingView struct {
	Loading bool
	Empty   bool
	CartID  string
	Items   []LineItemView
	Total   string
	Count   int
}

func (l *CartListing) View() CartListingView {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		return CartListingView{Loading: true}
	}
	if l.snapshot == nil || l.snapshot.IsEmpty() {
		return CartListingView{Empty: true}
	}
	view := CartListingView{
		CartID: l.snapshot.ID,
		Total:  domain.FormatMoney(l.snapshot.Total(), l.snapshot.Region.CurrencyCode),
		Count:  l.snapshot.ItemCount(),
	}
	for _, li := range l.items {
		view.Items = append(view.Items, li.View())
	}
	return view
}
