package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo is an in-memory repository used when no MongoDB is configured
// and in unit tests.
type MemoryRepo[T Entity] struct {
	mu    sync.RWMutex
	store map[string]T
}

func NewMemoryRepo[T Entity]() *MemoryRepo[T] {
	return &MemoryRepo[T]{store: make(map[string]T)}
}

func (m *MemoryRepo[T]) Create(ctx context.Context, v T) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.GetID() == "" {
		v.SetID(primitive.NewObjectID().Hex())
	}
	if _, ok := m.store[v.GetID()]; ok {
		return "", ErrAlreadyExists
	}
	stampCreate(v, time.Now().UTC())
	m.store[v.GetID()] = v
	return v.GetID(), nil
}

func (m *MemoryRepo[T]) Get(ctx context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.store[id]; ok {
		return v, nil
	}
	var zero T
	return zero, ErrNotFound
}

func (m *MemoryRepo[T]) List(ctx context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked(), nil
}

func (m *MemoryRepo[T]) sortedLocked() []T {
	out := make([]T, 0, len(m.store))
	for _, v := range m.store {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetID() < out[j].GetID() })
	return out
}

func (m *MemoryRepo[T]) Page(ctx context.Context, req PageRequest) (*Page[T], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit := req.limit()
	page := &Page[T]{Items: []T{}}
	for _, v := range m.sortedLocked() {
		if req.After != "" && v.GetID() <= req.After {
			continue
		}
		if len(page.Items) == limit {
			page.Next = page.Items[limit-1].GetID()
			break
		}
		page.Items = append(page.Items, v)
	}
	return page, nil
}

func (m *MemoryRepo[T]) Search(ctx context.Context, prefix string, limit int) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit = PageRequest{Limit: limit}.limit()
	p := strings.ToLower(prefix)
	out := []T{}
	for _, v := range m.sortedLocked() {
		if strings.HasPrefix(strings.ToLower(v.SearchKey()), p) {
			out = append(out, v)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryRepo[T]) Update(ctx context.Context, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.store[v.GetID()]
	if !ok {
		return ErrNotFound
	}
	created, _ := old.Timestamps()
	stampUpdate(v, *created, time.Now().UTC())
	m.store[v.GetID()] = v
	return nil
}

func (m *MemoryRepo[T]) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}
