package ui

import (
	"context"
	"sync"

	"github.com/example/storefront/internal/domain"
)

const (
	msgUpdateError = "Error updating quantity. Please try again."
	msgRemoveError = "Error removing item. Please try again."
)

// CartLineItem — позиция в списке корзины с управлением количеством.
type CartLineItem struct {
	mu     sync.Mutex
	cart   CartActions
	cartID string
	id     string
	item   domain.LineItem
	phase  Phase
}

func NewCartLineItem(cart CartActions, cartID string, item domain.LineItem) *CartLineItem {
	return &CartLineItem{cart: cart, cartID: cartID, id: item.ID, item: item}
}

func (li *CartLineItem) ID() string { return li.id }

func (li *CartLineItem) Increment(ctx context.Context) error {
	return li.SetQuantity(ctx, li.quantity()+1)
}

// Decrement на количестве 1 отклоняется без запроса.
func (li *CartLineItem) Decrement(ctx context.Context) error {
	return li.SetQuantity(ctx, li.quantity()-1)
}

func (li *CartLineItem) SetQuantity(ctx context.Context, q int) error {
	if q < 1 {
		return domain.ValidationErrorf("quantity must be at least 1, got %d", q)
	}
	return li.run(msgUpdateError, func() error {
		cart, err := li.cart.UpdateQuantity(ctx, li.cartID, li.id, q)
		if err == nil {
			li.adopt(cart)
		}
		return err
	})
}

func (li *CartLineItem) Remove(ctx context.Context) error {
	return li.run(msgRemoveError, func() error {
		_, err := li.cart.RemoveItem(ctx, li.cartID, li.id)
		return err
	})
}

func (li *CartLineItem) Phase() Phase {
	li.mu.Lock()
	defer li.mu.Unlock()
	return li.phase
}

func (li *CartLineItem) quantity() int {
	li.mu.Lock()
	defer li.mu.Unlock()
	return li.item.Quantity
}

// run выполняет мутацию, не удерживая мьютекс во время удалённого вызова.
func (li *CartLineItem) run(failMsg string, call func() error) error {
	li.mu.Lock()
	if !li.phase.Begin() {
		li.mu.Unlock()
		return ErrBusy
	}
	li.mu.Unlock()

	err := call()

	li.mu.Lock()
	defer li.mu.Unlock()
	if err != nil {
		li.phase.Fail(failMsg)
		return err
	}
	li.phase.Succeed("")
	return nil
}

func (li *CartLineItem) adopt(cart domain.CartSnapshot) {
	li.mu.Lock()
	defer li.mu.Unlock()
	for _, it := range cart.Items {
		if it.ID == li.id {
			li.item = it
			return
		}
	}
}

type LineItemView struct {
	ID                string
	Title             string
	VariantTitle      string
	Thumbnail         string
	Quantity          int
	Price             string
	Total             string
	Disabled          bool
	DecrementDisabled bool
	Error             string
}

func (li *CartLineItem) View() LineItemView {
	li.mu.Lock()
	defer li.mu.Unlock()
	it := li.item
	thumb := it.Thumbnail
	if thumb == "" {
		thumb = "/static/placeholder.svg"
	}
	currency := it.Currency()
	return LineItemView{
		ID:                it.ID,
		Title:             it.Title,
		VariantTitle:      it.VariantTitle(),
		Thumbnail:         thumb,
		Quantity:          it.Quantity,
		Price:             domain.FormatMoney(it.UnitPrice, currency),
		Total:             domain.FormatMoney(it.Subtotal(), currency),
		Disabled:          li.phase.Disabled(),
		DecrementDisabled: li.phase.Disabled() || it.Quantity <= 1,
		Error:             li.phase.ErrorMessage,
	}
}
