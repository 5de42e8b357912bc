package ui

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/adapter/bus"
	"github.com/example/storefront/internal/adapter/store"
	"github.com/example/storefront/internal/domain"
	"github.com/example/storefront/internal/testutil"
	"github.com/example/storefront/internal/usecase"
)

type harness struct {
	backend *testutil.FakeCommerce
	bus     *bus.InMemoryBus
	cart    *usecase.CartService
	store   *store.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		backend: testutil.NewFakeCommerce(),
		bus:     bus.New(zap.NewNop()),
		store:   store.NewMemoryStore(),
	}
	h.cart = usecase.NewCartService(h.backend, h.store, h.bus, zap.NewNop())
	return h
}

func (h *harness) variants(t *testing.T) []domain.Variant {
	t.Helper()
	p, err := h.backend.RetrieveProduct(context.Background(), "prod_1")
	require.NoError(t, err)
	h.backend.ResetCalls()
	return p.Variants
}

func TestPhase(t *testing.T) {
	var p Phase
	assert.Equal(t, Idle, p.Status)
	assert.False(t, p.Disabled())

	require.True(t, p.Begin())
	assert.True(t, p.Disabled())
	assert.False(t, p.Begin(), "no second action while loading")

	p.Fail("boom")
	assert.Equal(t, Error, p.Status)
	assert.False(t, p.Disabled())

	require.True(t, p.Begin())
	assert.Empty(t, p.ErrorMessage, "begin clears prior messages")
	p.Succeed("ok")
	assert.Equal(t, "success", p.Status.String())

	p.Reset()
	assert.Equal(t, Phase{}, p)
}

func TestAddToCart_InitialVariant(t *testing.T) {
	h := newHarness(t)
	variants := h.variants(t)

	a := NewAddToCart(h.cart, variants, "shirt-l", "/usd/products/prod_1", "usd")
	v, ok := a.Selected()
	require.True(t, ok)
	assert.Equal(t, "variant_9", v.ID)

	a = NewAddToCart(h.cart, variants, "", "/usd/products/prod_1", "usd")
	v, _ = a.Selected()
	assert.Equal(t, "variant_s", v.ID)

	a = NewAddToCart(h.cart, variants, "unknown-handle", "/usd/products/prod_1", "usd")
	v, _ = a.Selected()
	assert.Equal(t, "variant_s", v.ID)

	a = NewAddToCart(h.cart, nil, "", "/usd/products/prod_1", "usd")
	_, ok = a.Selected()
	assert.False(t, ok)
	assert.True(t, a.View().Disabled)
}

func TestAddToCart_SelectVariantIsLocal(t *testing.T) {
	h := newHarness(t)
	a := NewAddToCart(h.cart, h.variants(t), "", "/usd/products/prod_1", "usd")

	path, ok := a.SelectVariant("variant_9")
	require.True(t, ok)
	assert.Equal(t, "/usd/products/prod_1/shirt-l", path)

	view := a.View()
	assert.Equal(t, "L", view.Title)
	assert.Equal(t, "17.00 usd", view.Price)

	_, ok = a.SelectVariant("nope")
	assert.False(t, ok)
	v, _ := a.Selected()
	assert.Equal(t, "variant_9", v.ID)

	assert.Empty(t, h.backend.Calls(), "selecting a variant never touches the network")
	assert.Zero(t, h.store.Len())
}

func TestAddToCart_SubmitUsesSelectedVariant(t *testing.T) {
	h := newHarness(t)
	a := NewAddToCart(h.cart, h.variants(t), "", "/usd/products/prod_1", "usd")
	a.SelectVariant("variant_9")
	a.SetQuantity(3)

	require.NoError(t, a.Submit(context.Background()))

	calls := h.backend.CallsOf("AddLineItem")
	require.Len(t, calls, 1)
	assert.Equal(t, "variant_9", calls[0].VariantID)
	assert.Equal(t, 3, calls[0].Quantity)

	view := a.View()
	assert.Equal(t, "Added to cart", view.Success)
	assert.Empty(t, view.Error)
	assert.False(t, view.Disabled)
	assert.Equal(t, "Add to Cart", view.ButtonLabel)
}

func TestAddToCart_QuantityCoercion(t *testing.T) {
	h := newHarness(t)
	a := NewAddToCart(h.cart, h.variants(t), "", "/usd/products/prod_1", "usd")

	a.SetQuantity(0)
	assert.Equal(t, 1, a.View().Quantity)
	a.SetQuantity(-4)
	assert.Equal(t, 1, a.View().Quantity)
	a.SetQuantity(5)
	assert.Equal(t, 5, a.View().Quantity)
}

func TestAddToCart_SubmitFailure(t *testing.T) {
	h := newHarness(t)
	h.backend.Fail("CreateCart", &domain.RemoteError{Op: "create cart", Kind: domain.ErrNetwork})
	a := NewAddToCart(h.cart, h.variants(t), "", "/usd/products/prod_1", "usd")

	err := a.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)

	view := a.View()
	assert.Equal(t, "Error adding to cart. Please try again.", view.Error)
	assert.Empty(t, view.Success)
	assert.Equal(t, Error, a.Phase().Status)

	h.backend.Fail("CreateCart", nil)
	require.NoError(t, a.Submit(context.Background()))
	assert.Empty(t, a.View().Error, "new action clears the previous error")
}

type blockingCart struct {
	CartActions
	entered chan struct{}
	release chan struct{}
}

func (b blockingCart) AddItem(ctx context.Context, variantID string, q int) (domain.CartSnapshot, error) {
	close(b.entered)
	<-b.release
	return domain.CartSnapshot{ID: "cart_1"}, nil
}

func TestAddToCart_DisabledWhileLoading(t *testing.T) {
	h := newHarness(t)
	bc := blockingCart{CartActions: h.cart, entered: make(chan struct{}), release: make(chan struct{})}
	a := NewAddToCart(bc, h.variants(t), "", "/usd/products/prod_1", "usd")

	done := make(chan error)
	go func() { done <- a.Submit(context.Background()) }()
	<-bc.entered

	view := a.View()
	assert.True(t, view.Disabled)
	assert.Equal(t, "Adding...", view.ButtonLabel)
	assert.ErrorIs(t, a.Submit(context.Background()), ErrBusy)

	close(bc.release)
	require.NoError(t, <-done)
	assert.False(t, a.View().Disabled)
}

func TestCartIcon_CountsQuantitiesAfterAdd(t *testing.T) {
	h := newHarness(t)
	h.backend.CartIDs = []string{"cart_456"}
	icon := NewCartIcon(h.cart, h.bus, zap.NewNop())
	defer icon.Close()

	require.NoError(t, icon.Refresh(context.Background()))
	assert.Equal(t, 0, icon.Count())

	_, err := h.cart.AddItem(context.Background(), "variant_9", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, icon.Count())

	_, err = h.cart.AddItem(context.Background(), "variant_s", 2)
	require.NoError(t, err)
	assert.Equal(t, 5, icon.Count())

	view := icon.View("/usd/cart")
	assert.Equal(t, CartIconView{Href: "/usd/cart", Count: 5}, view)
}

func TestCartIcon_KeepsCountOnError(t *testing.T) {
	h := newHarness(t)
	icon := NewCartIcon(h.cart, h.bus, zap.NewNop())
	_, err := h.cart.AddItem(context.Background(), "variant_9", 2)
	require.NoError(t, err)
	require.Equal(t, 2, icon.Count())

	h.backend.Fail("RetrieveCart", &domain.RemoteError{Op: "retrieve cart", Kind: domain.ErrServer, Status: 500})
	assert.Error(t, icon.Refresh(context.Background()))
	assert.Equal(t, 2, icon.Count())

	icon.Close()
	h.backend.Fail("RetrieveCart", nil)
	assert.Equal(t, 0, h.bus.Subscribers())
}

func TestCartListing_IndependentSubscribers(t *testing.T) {
	h := newHarness(t)
	icon := NewCartIcon(h.cart, h.bus, zap.NewNop())
	listing := NewCartListing(h.cart, h.bus, zap.NewNop())
	defer icon.Close()
	defer listing.Close()

	assert.True(t, listing.View().Loading)
	require.NoError(t, listing.Refresh(context.Background()))
	assert.True(t, listing.View().Empty)

	h.backend.ResetCalls()
	_, err := h.cart.AddItem(context.Background(), "variant_9", 2)
	require.NoError(t, err)

	// одна публикация, два независимых перечитывания
	assert.Len(t, h.backend.CallsOf("RetrieveCart"), 2)

	view := listing.View()
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Count)
	assert.Equal(t, "34.00 usd", view.Total)
	assert.Equal(t, "17.00 usd", view.Items[0].Price)
	assert.Equal(t, "34.00 usd", view.Items[0].Total)
	assert.Equal(t, "L", view.Items[0].VariantTitle)
}

func TestCartListing_LineItemMutations(t *testing.T) {
	h := newHarness(t)
	listing := NewCartListing(h.cart, h.bus, zap.NewNop())
	defer listing.Close()
	icon := NewCartIcon(h.cart, h.bus, zap.NewNop())
	defer icon.Close()

	cart, err := h.cart.AddItem(context.Background(), "variant_9", 1)
	require.NoError(t, err)
	lineID := cart.Items[0].ID

	li, err := listing.Item(lineID)
	require.NoError(t, err)
	assert.True(t, li.View().DecrementDisabled)

	h.backend.ResetCalls()
	assert.ErrorIs(t, li.Decrement(context.Background()), domain.ErrValidation)
	assert.Empty(t, h.backend.CallsOf("UpdateLineItem"), "quantity below one is never sent")

	require.NoError(t, listing.UpdateQuantity(context.Background(), lineID, 4))
	assert.Equal(t, 4, icon.Count())

	li, err = listing.Item(lineID)
	require.NoError(t, err)
	require.NoError(t, li.Increment(context.Background()))
	assert.Equal(t, Success, li.Phase().Status)
	assert.Equal(t, 5, icon.Count())
	assert.Equal(t, 5, listing.View().Items[0].Quantity)

	require.NoError(t, listing.Remove(context.Background(), lineID))
	assert.True(t, listing.View().Empty)
	assert.Equal(t, 0, icon.Count())

	_, err = listing.Item(lineID)
	assert.ErrorIs(t, err, ErrUnknownLineItem)
}

func TestCartListing_MutationFailureShowsError(t *testing.T) {
	h := newHarness(t)
	listing := NewCartListing(h.cart, h.bus, zap.NewNop())
	defer listing.Close()

	cart, err := h.cart.AddItem(context.Background(), "variant_9", 2)
	require.NoError(t, err)
	lineID := cart.Items[0].ID

	h.backend.Fail("UpdateLineItem", &domain.RemoteError{Op: "update line item", Kind: domain.ErrServer, Status: 500})
	assert.ErrorIs(t, listing.UpdateQuantity(context.Background(), lineID, 3), domain.ErrServer)

	view := listing.View()
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Error updating quantity. Please try again.", view.Items[0].Error)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.False(t, view.Items[0].Disabled)
}

func TestCartListing_StaleLineItemKeepsCart(t *testing.T) {
	h := newHarness(t)
	listing := NewCartListing(h.cart, h.bus, zap.NewNop())
	defer listing.Close()

	cart, err := h.cart.AddItem(context.Background(), "variant_9", 1)
	require.NoError(t, err)
	_, err = h.cart.AddItem(context.Background(), "variant_s", 1)
	require.NoError(t, err)
	stale, err := listing.Item(cart.Items[0].ID)
	require.NoError(t, err)

	require.NoError(t, listing.Remove(context.Background(), cart.Items[0].ID))

	err = stale.Remove(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrCartExpired)
	assert.Equal(t, Error, stale.Phase().Status)
	assert.Equal(t, 1, h.store.Len(), "the live cart keeps its reference")
	assert.Len(t, listing.View().Items, 1)
}

func TestCartListing_CartGoneServerSide(t *testing.T) {
	h := newHarness(t)
	listing := NewCartListing(h.cart, h.bus, zap.NewNop())
	defer listing.Close()

	cart, err := h.cart.AddItem(context.Background(), "variant_9", 2)
	require.NoError(t, err)
	h.backend.DropCart(cart.ID)

	err = listing.Remove(context.Background(), cart.Items[0].ID)
	assert.ErrorIs(t, err, domain.ErrCartExpired)
	assert.True(t, listing.View().Empty, "stale items are dropped after the cart disappears")
	assert.Equal(t, 0, h.store.Len(), "reference cleared so the next add creates a cart")
}

func TestRegionSelector(t *testing.T) {
	h := newHarness(t)

	rs, replace, err := LoadRegionSelector(context.Background(), h.backend, "/eur/products/prod_1")
	require.NoError(t, err)
	assert.Empty(t, replace)
	assert.Equal(t, "eur", rs.Current())
	r, ok := rs.CurrentRegion()
	require.True(t, ok)
	assert.Equal(t, "Europe", r.Name)

	rs, replace, err = LoadRegionSelector(context.Background(), h.backend, "/products/prod_1")
	require.NoError(t, err)
	assert.Equal(t, "usd", rs.Current())
	assert.Equal(t, "/usd/products/prod_1", replace)

	_, replace, err = LoadRegionSelector(context.Background(), h.backend, "/")
	require.NoError(t, err)
	assert.Equal(t, "/usd/", replace)

	path, err := rs.Change("EUR", "/usd/products/prod_1")
	require.NoError(t, err)
	assert.Equal(t, "/eur/products/prod_1", path)

	path, err = rs.Change("eur", "/products/prod_1")
	require.NoError(t, err)
	assert.Equal(t, "/eur/products/prod_1", path)

	_, err = rs.Change("dkk", "/usd/cart")
	assert.ErrorIs(t, err, domain.ErrValidation)

	view := rs.View()
	require.Len(t, view.Options, 2)
	assert.Equal(t, "United States (usd)", view.Options[0].Label)
	assert.True(t, view.Options[0].Selected)
}

func TestRegionSelector_ListFailure(t *testing.T) {
	h := newHarness(t)
	h.backend.Fail("ListRegions", &domain.RemoteError{Op: "list regions", Kind: domain.ErrNetwork})

	_, _, err := LoadRegionSelector(context.Background(), h.backend, "/")
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestRenderPages(t *testing.T) {
	h := newHarness(t)
	rs, _, err := LoadRegionSelector(context.Background(), h.backend, "/usd/cart")
	require.NoError(t, err)
	listing := NewCartListing(h.cart, h.bus, zap.NewNop())
	icon := NewCartIcon(h.cart, h.bus, zap.NewNop())
	a := NewAddToCart(h.cart, h.variants(t), "", "/usd/products/prod_1", "usd")

	_, err = h.cart.AddItem(context.Background(), "variant_9", 2)
	require.NoError(t, err)

	header := Header{Regions: rs.View(), Icon: icon.View("/usd/cart"), Path: "/usd/cart"}

	var buf bytes.Buffer
	require.NoError(t, RenderCartPage(&buf, CartPage{
		Header:       header,
		Listing:      listing.View(),
		ItemsPath:    "/usd/cart/items",
		CheckoutPath: "/usd/cart/checkout",
	}))
	html := buf.String()
	assert.Contains(t, html, `<span class="cart-count">2</span>`)
	assert.Contains(t, html, "Total: 34.00 usd")
	assert.Contains(t, html, `action="/usd/cart/items/li_1/quantity"`)
	assert.Contains(t, html, `name="set" value="3"`)

	buf.Reset()
	require.NoError(t, RenderProductPage(&buf, ProductPage{
		Header:     header,
		Product:    domain.Product{ID: "prod_1", Title: "Shirt"},
		AddToCart:  a.View(),
		FormAction: "/usd/products/prod_1/cart",
	}))
	html = buf.String()
	assert.Contains(t, html, "S - 15.00 usd")
	assert.Contains(t, html, `data-path="/usd/products/prod_1/shirt-l"`)
	assert.Contains(t, html, "Add to Cart")

	_, err = Static().Open("storefront.js")
	assert.NoError(t, err)
}
