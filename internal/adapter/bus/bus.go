package bus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

// InMemoryBus — синхронная шина "корзина изменилась" в памяти процесса.
// Обработчики вызываются в порядке подписки; паника в одном не мешает остальным.
type InMemoryBus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers []subscription
	logger   *zap.Logger
	// onPublish вызывается после локальной доставки (пересылка в другие экземпляры).
	onPublish func(ctx context.Context)
}

type subscription struct {
	id uint64
	h  domain.ChangeHandler
}

func New(logger *zap.Logger) *InMemoryBus {
	return &InMemoryBus{logger: logger}
}

// OnPublish регистрирует хук, вызываемый после каждого Publish, но не после Deliver.
func (b *InMemoryBus) OnPublish(fn func(ctx context.Context)) {
	b.mu.Lock()
	b.onPublish = fn
	b.mu.Unlock()
}

// Publish доставляет сигнал всем текущим подписчикам.
func (b *InMemoryBus) Publish(ctx context.Context) {
	b.Deliver(ctx)

	b.mu.RLock()
	hook := b.onPublish
	b.mu.RUnlock()
	if hook != nil {
		hook(ctx)
	}
}

// Deliver уведомляет только локальных подписчиков. Для сигналов, пришедших с другого экземпляра.
func (b *InMemoryBus) Deliver(ctx context.Context) {
	b.mu.RLock()
	handlers := make([]subscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, s := range handlers {
		b.dispatch(ctx, s)
	}
}

func (b *InMemoryBus) Subscribe(h domain.ChangeHandler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, h: h})
	n := len(b.handlers)
	b.mu.Unlock()

	b.logger.Debug("handler subscribed", zap.Uint64("subscription", id), zap.Int("subscribers", n))

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

// Subscribers — текущее число обработчиков.
func (b *InMemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *InMemoryBus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.handlers {
		if s.id == id {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			break
		}
	}
	b.logger.Debug("handler unsubscribed", zap.Uint64("subscription", id))
}

func (b *InMemoryBus) dispatch(ctx context.Context, s subscription) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("change handler panicked",
				zap.Uint64("subscription", s.id),
				zap.Any("panic", r),
			)
		}
	}()
	s.h(ctx)
}

var _ domain.ChangeBus = (*InMemoryBus)(nil)
