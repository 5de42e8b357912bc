package store

import (
	"context"
	"sync"

	"github.com/example/storefront/internal/domain"
)

// MemoryStore — хранилище в памяти процесса; используется в тестах и без БД.
type MemoryStore struct {
	mu    sync.RWMutex
	store map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{store: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.store[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.store[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.store, key)
	s.mu.Unlock()
	return nil
}

// Len — число сохранённых ключей.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.store)
}

var _ domain.KeyValueStore = (*MemoryStore)(nil)
