package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/adapter/store"
	"github.com/example/storefront/internal/testutil"
)

type fakeRelay struct {
	mu        sync.Mutex
	forwarded []string
	deliver   func(ctx context.Context, sessionID string)
	err       error
}

func (f *fakeRelay) Forward(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwarded = append(f.forwarded, sessionID)
	return f.err
}

func (f *fakeRelay) Subscribe(_ context.Context, deliver func(ctx context.Context, sessionID string)) error {
	f.deliver = deliver
	return nil
}

func (f *fakeRelay) Forwarded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.forwarded...)
}

func newRegistry(relay *fakeRelay) (*Registry, *testutil.FakeCommerce, *store.MemoryStore) {
	backend := testutil.NewFakeCommerce()
	kv := store.NewMemoryStore()
	if relay == nil {
		return NewRegistry(backend, kv, nil, zap.NewNop()), backend, kv
	}
	return NewRegistry(backend, kv, relay, zap.NewNop()), backend, kv
}

func TestRegistry_GetIsLazyAndStable(t *testing.T) {
	r, _, _ := newRegistry(nil)
	assert.Equal(t, 0, r.Len())

	_, ok := r.Lookup("a")
	assert.False(t, ok)

	a := r.Get("a")
	assert.Same(t, a, r.Get("a"))
	assert.NotSame(t, a, r.Get("b"))
	assert.Equal(t, 2, r.Len())

	got, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	r, _, kv := newRegistry(nil)
	ctx := context.Background()

	a, b := r.Get("a"), r.Get("b")
	_, err := a.Cart.AddItem(ctx, "variant_9", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, a.Icon.Count())
	assert.Equal(t, 0, b.Icon.Count(), "another shopper's icon does not react")

	cart, err := b.Cart.CurrentCart(ctx)
	require.NoError(t, err)
	assert.Nil(t, cart)

	v, ok, err := kv.Get(ctx, "a:cartId")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cart_1", v)
}

func TestRegistry_CartSurvivesEviction(t *testing.T) {
	r, _, _ := newRegistry(nil)
	ctx := context.Background()

	_, err := r.Get("a").Cart.AddItem(ctx, "variant_9", 1)
	require.NoError(t, err)

	r.now = func() time.Time { return time.Now().Add(time.Hour) }
	assert.Equal(t, 1, r.Sweep(time.Minute))
	assert.Equal(t, 0, r.Len())

	s := r.Get("a")
	require.NoError(t, s.Icon.Refresh(ctx))
	assert.Equal(t, 1, s.Icon.Count())
}

func TestRegistry_SweepKeepsActive(t *testing.T) {
	r, _, _ := newRegistry(nil)
	base := time.Now()
	r.now = func() time.Time { return base }
	old := r.Get("old")
	r.now = func() time.Time { return base.Add(30 * time.Minute) }
	r.Get("fresh")

	r.now = func() time.Time { return base.Add(45 * time.Minute) }
	assert.Equal(t, 1, r.Sweep(20*time.Minute))

	_, ok := r.Lookup("old")
	assert.False(t, ok)
	_, ok = r.Lookup("fresh")
	assert.True(t, ok)
	assert.Equal(t, 0, old.Bus.Subscribers(), "swept session widgets unsubscribed")
}

func TestRegistry_ForwardsLocalPublishes(t *testing.T) {
	relay := &fakeRelay{}
	r, _, _ := newRegistry(relay)

	_, err := r.Get("a").Cart.AddItem(context.Background(), "variant_9", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, relay.Forwarded())
}

func TestRegistry_ForwardFailureDoesNotFailMutation(t *testing.T) {
	relay := &fakeRelay{err: errors.New("stan down")}
	r, _, _ := newRegistry(relay)

	s := r.Get("a")
	_, err := s.Cart.AddItem(context.Background(), "variant_9", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Icon.Count())
}

func TestRegistry_DeliversRelayedSignals(t *testing.T) {
	relay := &fakeRelay{}
	r, backend, kv := newRegistry(relay)
	ctx := context.Background()
	require.NoError(t, r.Listen(ctx))
	require.NotNil(t, relay.deliver)

	s := r.Get("a")
	require.NoError(t, s.Icon.Refresh(ctx))

	// другой экземпляр изменил корзину этой сессии
	cart, err := backend.CreateCart(ctx)
	require.NoError(t, err)
	_, err = backend.AddLineItem(ctx, cart.ID, "variant_s", 4)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "a:cartId", cart.ID))

	relay.deliver(ctx, "a")
	assert.Equal(t, 4, s.Icon.Count())
	assert.Empty(t, relay.Forwarded(), "relayed signals are not forwarded again")

	relay.deliver(ctx, "unknown")
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ListenWithoutRelay(t *testing.T) {
	r, _, _ := newRegistry(nil)
	assert.NoError(t, r.Listen(context.Background()))
}

func TestRegistry_Close(t *testing.T) {
	r, _, _ := newRegistry(nil)
	s := r.Get("a")
	r.Close()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, s.Bus.Subscribers())
}
