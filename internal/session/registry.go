// Package session держит состояние покупателей между запросами: шину,
// сервис корзины и виджеты, которые живут дольше одного рендера.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/adapter/bus"
	"github.com/example/storefront/internal/adapter/store"
	"github.com/example/storefront/internal/domain"
	"github.com/example/storefront/internal/ui"
	"github.com/example/storefront/internal/usecase"
)

// Session — покупатель, опознанный по cookie.
type Session struct {
	ID      string
	Bus     *bus.InMemoryBus
	Cart    *usecase.CartService
	Icon    *ui.CartIcon
	Listing *ui.CartListing

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen — время последнего запроса в сессии.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.Icon.Close()
	s.Listing.Close()
}

// Registry — сессии в памяти процесса. Ссылки на корзины лежат в общем
// хранилище, поэтому вытесненная сессия восстанавливается без потери корзины.
type Registry struct {
	client domain.CommerceClient
	store  domain.KeyValueStore
	relay  domain.SignalRelay
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry создаёт реестр. relay может быть nil, тогда сигналы остаются в экземпляре.
func NewRegistry(client domain.CommerceClient, kv domain.KeyValueStore, relay domain.SignalRelay, logger *zap.Logger) *Registry {
	return &Registry{
		client:   client,
		store:    kv,
		relay:    relay,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get возвращает сессию id, создавая её при первом обращении.
func (r *Registry) Get(id string) *Session {
	now := r.now()

	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		s = r.newSession(id)
		r.sessions[id] = s
	}
	r.mu.Unlock()

	s.touch(now)
	if !ok {
		r.logger.Debug("session started", zap.String("session_id", id))
	}
	return s
}

// Lookup возвращает существующую сессию, не создавая новую.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) newSession(id string) *Session {
	log := r.logger.With(zap.String("session_id", id))
	b := bus.New(log)
	cart := usecase.NewCartService(r.client, store.Namespaced(r.store, id), b, log)
	s := &Session{
		ID:      id,
		Bus:     b,
		Cart:    cart,
		Icon:    ui.NewCartIcon(cart, b, log),
		Listing: ui.NewCartListing(cart, b, log),
	}
	if r.relay != nil {
		relay := r.relay
		b.OnPublish(func(ctx context.Context) {
			if err := relay.Forward(ctx, id); err != nil {
				log.Warn("forward cart signal", zap.Error(err))
			}
		})
	}
	return s
}

// Deliver передаёт сигнал из другого экземпляра локальным подписчикам сессии.
// Сессии, которой здесь нет, некого уведомлять.
func (r *Registry) Deliver(ctx context.Context, id string) {
	s, ok := r.Lookup(id)
	if !ok {
		return
	}
	s.Bus.Deliver(ctx)
}

// Listen подписывает реестр на ретранслятор до отмены ctx.
func (r *Registry) Listen(ctx context.Context) error {
	if r.relay == nil {
		return nil
	}
	return r.relay.Subscribe(ctx, r.Deliver)
}

// Sweep закрывает сессии без запросов дольше idle и возвращает их число.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.close()
	}
	if len(stale) > 0 {
		r.logger.Info("idle sessions swept", zap.Int("count", len(stale)), zap.Int("remaining", r.Len()))
	}
	return len(stale)
}

// Run удаляет простаивающие сессии раз в interval до отмены ctx.
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep(idle)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close закрывает все сессии.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}
