package shoppinglist

import (
	"context"
	"sync"

	"github.com/danielnirn/shopping-api/internal/micro"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is a process-local Store that keeps insertion order. Values are
// copied on the way in and out, so only Save changes stored state.
type MemoryStore struct {
	mu    sync.RWMutex
	order []primitive.ObjectID
	items map[primitive.ObjectID]*ShoppingList
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[primitive.ObjectID]*ShoppingList)}
}

func (s *MemoryStore) FindAll(context.Context) ([]*ShoppingList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ShoppingList, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].clone())
	}
	return out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*ShoppingList, error) {
	oid, ok := micro.ParseID(id)
	if !ok {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.items[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return list.clone(), nil
}

func (s *MemoryStore) Create(_ context.Context, in CreateShoppingList) (*ShoppingList, error) {
	list := NewShoppingList(in)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[list.ListID] = list.clone()
	s.order = append(s.order, list.ListID)
	return list, nil
}

func (s *MemoryStore) Save(_ context.Context, list *ShoppingList) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[list.ListID]; !ok {
		return ErrNotFound
	}
	s.items[list.ListID] = list.clone().normalize()
	return nil
}

func (s *MemoryStore) DeleteByID(_ context.Context, id string) error {
	oid, ok := micro.ParseID(id)
	if !ok {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[oid]; !ok {
		return ErrNotFound
	}
	delete(s.items, oid)
	for i, existing := range s.order {
		if existing == oid {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.items)), nil
}
