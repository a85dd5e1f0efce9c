package store

import (
	"context"
	"sync"

	"algotrader/internal/types"
)

// MemoryStore is an in-memory order store used in DRY_RUN mode and
// tests. Records do not survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]types.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]types.Order)}
}

func (s *MemoryStore) Save(ctx context.Context, o *types.Order) error {
	s.mu.Lock()
	s.orders[o.ID] = *o
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*types.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *MemoryStore) ListPending(ctx context.Context) ([]types.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Order, 0)
	for _, o := range s.orders {
		if !o.Status.Terminal() {
			out = append(out, o)
		}
	}
	return out, nil
}
