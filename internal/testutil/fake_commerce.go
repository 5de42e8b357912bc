// Package testutil содержит тестовые двойники портов домена.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/storefront/internal/domain"
)

// Call — записанный вызов FakeCommerce.
type Call struct {
	Op         string
	CartID     string
	LineItemID string
	VariantID  string
	Quantity   int
}

// FakeCommerce — бэкенд в памяти с записью вызовов и внедрением ошибок.
type FakeCommerce struct {
	mu       sync.Mutex
	carts    map[string]*domain.CartSnapshot
	products []domain.Product
	regions  []domain.Region
	calls    []Call
	failures map[string]error
	nextCart int
	nextLine int
	// CartIDs, если задан, выдаёт идентификаторы новых корзин по порядку.
	CartIDs []string
}

func NewFakeCommerce() *FakeCommerce {
	return &FakeCommerce{
		carts:    make(map[string]*domain.CartSnapshot),
		failures: make(map[string]error),
		regions: []domain.Region{
			{ID: "reg_us", Name: "United States", CurrencyCode: "usd"},
			{ID: "reg_eu", Name: "Europe", CurrencyCode: "eur"},
		},
		products: []domain.Product{{
			ID:     "prod_1",
			Title:  "Shirt",
			Handle: "shirt",
			Variants: []domain.Variant{
				{ID: "variant_s", Title: "S", Prices: []domain.Price{{Amount: 1500, CurrencyCode: "usd"}, {Amount: 1400, CurrencyCode: "eur"}}, Metadata: domain.VariantMetadata{Handle: "shirt-s"}},
				{ID: "variant_9", Title: "L", Prices: []domain.Price{{Amount: 1700, CurrencyCode: "usd"}}, Metadata: domain.VariantMetadata{Handle: "shirt-l"}},
			},
		}},
	}
}

// PutCart добавляет корзину.
func (f *FakeCommerce) PutCart(cart domain.CartSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := cart
	f.carts[cart.ID] = &c
}

// DropCart удаляет корзину, будто она истекла на бэкенде.
func (f *FakeCommerce) DropCart(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, id)
}

// Fail заставляет вызовы op возвращать err, пока не сброшено через nil.
func (f *FakeCommerce) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

func (f *FakeCommerce) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsOf — вызовы одной операции.
func (f *FakeCommerce) CallsOf(op string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeCommerce) ResetCalls() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

func (f *FakeCommerce) record(c Call) error {
	f.calls = append(f.calls, c)
	return f.failures[c.Op]
}

func notFound(op string) error {
	return &domain.RemoteError{Op: op, Kind: domain.ErrNotFound, Status: 404}
}

func (f *FakeCommerce) CreateCart(_ context.Context) (domain.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "CreateCart"}); err != nil {
		return domain.CartSnapshot{}, err
	}
	var id string
	if len(f.CartIDs) > 0 {
		id, f.CartIDs = f.CartIDs[0], f.CartIDs[1:]
	} else {
		f.nextCart++
		id = fmt.Sprintf("cart_%d", f.nextCart)
	}
	c := &domain.CartSnapshot{ID: id, Region: f.regions[0]}
	f.carts[id] = c
	return *c, nil
}

func (f *FakeCommerce) RetrieveCart(_ context.Context, cartID string) (domain.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "RetrieveCart", CartID: cartID}); err != nil {
		return domain.CartSnapshot{}, err
	}
	c, ok := f.carts[cartID]
	if !ok {
		return domain.CartSnapshot{}, notFound("retrieve cart")
	}
	return clone(c), nil
}

func (f *FakeCommerce) AddLineItem(_ context.Context, cartID, variantID string, quantity int) (domain.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "AddLineItem", CartID: cartID, VariantID: variantID, Quantity: quantity}); err != nil {
		return domain.CartSnapshot{}, err
	}
	c, ok := f.carts[cartID]
	if !ok {
		return domain.CartSnapshot{}, notFound("create line item")
	}
	v, ok := f.variant(variantID)
	if !ok {
		return domain.CartSnapshot{}, notFound("create line item")
	}
	f.nextLine++
	price, _ := v.PriceIn(c.Region.CurrencyCode)
	c.Items = append(c.Items, domain.LineItem{
		ID:        fmt.Sprintf("li_%d", f.nextLine),
		VariantID: variantID,
		Quantity:  quantity,
		UnitPrice: price.Amount,
		Title:     v.Title,
		Variant:   &v,
	})
	return clone(c), nil
}

func (f *FakeCommerce) UpdateLineItem(_ context.Context, cartID, lineItemID string, quantity int) (domain.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "UpdateLineItem", CartID: cartID, LineItemID: lineItemID, Quantity: quantity}); err != nil {
		return domain.CartSnapshot{}, err
	}
	c, ok := f.carts[cartID]
	if !ok {
		return domain.CartSnapshot{}, notFound("update line item")
	}
	for i := range c.Items {
		if c.Items[i].ID == lineItemID {
			c.Items[i].Quantity = quantity
			return clone(c), nil
		}
	}
	return domain.CartSnapshot{}, notFound("update line item")
}

func (f *FakeCommerce) DeleteLineItem(_ context.Context, cartID, lineItemID string) (domain.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "DeleteLineItem", CartID: cartID, LineItemID: lineItemID}); err != nil {
		return domain.CartSnapshot{}, err
	}
	c, ok := f.carts[cartID]
	if !ok {
		return domain.CartSnapshot{}, notFound("delete line item")
	}
	for i := range c.Items {
		if c.Items[i].ID == lineItemID {
			c.Items = append(c.Items[:i:i], c.Items[i+1:]...)
			return clone(c), nil
		}
	}
	return domain.CartSnapshot{}, notFound("delete line item")
}

func (f *FakeCommerce) ListProducts(_ context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "ListProducts"}); err != nil {
		return nil, err
	}
	return append([]domain.Product(nil), f.products...), nil
}

func (f *FakeCommerce) RetrieveProduct(_ context.Context, productID string) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "RetrieveProduct"}); err != nil {
		return domain.Product{}, err
	}
	for _, p := range f.products {
		if p.ID == productID {
			return p, nil
		}
	}
	return domain.Product{}, notFound("retrieve product")
}

func (f *FakeCommerce) ListRegions(_ context.Context) ([]domain.Region, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "ListRegions"}); err != nil {
		return nil, err
	}
	return append([]domain.Region(nil), f.regions...), nil
}

func (f *FakeCommerce) variant(id string) (domain.Variant, bool) {
	for _, p := range f.products {
		for _, v := range p.Variants {
			if v.ID == id {
				return v, true
			}
		}
	}
	return domain.Variant{}, false
}

func clone(c *domain.CartSnapshot) domain.CartSnapshot {
	out := *c
	out.Items = append([]domain.LineItem(nil), c.Items...)
	return out
}

var _ domain.CommerceClient = (*FakeCommerce)(nil)

// CountingBus — шина, считающая публикации.
type CountingBus struct {
	mu        sync.Mutex
	published int
}

func (b *CountingBus) Publish(context.Context) {
	b.mu.Lock()
	b.published++
	b.mu.Unlock()
}

func (b *CountingBus) Subscribe(domain.ChangeHandler) func() { return func() {} }

func (b *CountingBus) Published() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published
}

var _ domain.ChangeBus = (*CountingBus)(nil)
