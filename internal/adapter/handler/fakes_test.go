package handler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/supervisor"
)

type memCatalog struct {
	mu    sync.Mutex
	items map[string]domain.CatalogItem
	calls atomic.Int32
}

func newMemCatalog(items ...domain.CatalogItem) *memCatalog {
	m := &memCatalog{items: make(map[string]domain.CatalogItem)}
	for _, item := range items {
		m.items[item.ID] = item
	}
	return m
}

func (m *memCatalog) List(ctx context.Context, filter domain.CatalogFilter) ([]domain.CatalogItem, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.CatalogItem{}
	for _, item := range m.items {
		if filter.Matches(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memCatalog) FindByID(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *memCatalog) FindByIDs(ctx context.Context, itemIDs []string) ([]domain.CatalogItem, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.CatalogItem
	for _, id := range itemIDs {
		if item, ok := m.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memCatalog) Create(ctx context.Context, item domain.CatalogItem) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[item.ID] = item
	return nil
}

func (m *memCatalog) Update(ctx context.Context, itemID string, patch domain.CatalogPatch) (*domain.CatalogItem, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	patch.Apply(&item)
	item.UpdatedAt = time.Now().UTC()
	m.items[itemID] = item
	return &item, nil
}

func (m *memCatalog) Delete(ctx context.Context, itemID string) (bool, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.items[itemID]
	delete(m.items, itemID)
	return ok, nil
}

func (m *memCatalog) DecrementStock(ctx context.Context, itemID string, quantity int) (*domain.CatalogItem, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok || item.Stock < quantity {
		return nil, nil
	}
	item.Stock -= quantity
	m.items[itemID] = item
	return &item, nil
}

func (m *memCatalog) IncrementStock(ctx context.Context, itemID string, quantity int) (*domain.CatalogItem, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	item.Stock += quantity
	m.items[itemID] = item
	return &item, nil
}

type memCarts struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
}

func newMemCarts() *memCarts {
	return &memCarts{carts: make(map[string]domain.Cart)}
}

func (m *memCarts) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	cart.Items = append([]domain.CartLine{}, cart.Items...)
	return &cart, nil
}

func (m *memCarts) SaveCart(ctx context.Context, cart domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart.Items = append([]domain.CartLine{}, cart.Items...)
	m.carts[cart.UserID] = cart
	return nil
}

type memCache struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemCache() *memCache {
	return &memCache{keys: make(map[string]bool)}
}

func (c *memCache) GetItem(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	return nil, nil
}

func (c *memCache) SetItem(ctx context.Context, item domain.CatalogItem) error { return nil }

func (c *memCache) InvalidateItem(ctx context.Context, itemID string) error { return nil }

func (c *memCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keys[key] {
		return false, nil
	}
	c.keys[key] = true
	return true, nil
}

func (c *memCache) ReleaseIdempotency(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.keys, key)
	return nil
}

type fakeReadiness struct {
	state atomic.Int32
}

func newFakeReadiness(state supervisor.State) *fakeReadiness {
	f := &fakeReadiness{}
	f.state.Store(int32(state))
	return f
}

func (f *fakeReadiness) IsReady() bool { return f.State() == supervisor.Connected }

func (f *fakeReadiness) State() supervisor.State { return supervisor.State(f.state.Load()) }
