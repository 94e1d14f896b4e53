package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rl1809/storefront/internal/core/domain"
)

var errStoreDown = errors.New("store down")

// Mock CatalogRepository
type mockCatalogRepo struct {
	mu    sync.Mutex
	items map[string]*domain.CatalogItem

	writes int
	reads  int
	fail   error
}

func newMockCatalogRepo(items ...domain.CatalogItem) *mockCatalogRepo {
	m := &mockCatalogRepo{items: make(map[string]*domain.CatalogItem)}
	for i := range items {
		item := items[i]
		m.items[item.ID] = &item
	}
	return m
}

func (m *mockCatalogRepo) stock(itemID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[itemID].Stock
}

func (m *mockCatalogRepo) List(ctx context.Context, filter domain.CatalogFilter) ([]domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.fail != nil {
		return nil, m.fail
	}

	var out []domain.CatalogItem
	for _, item := range m.items {
		if filter.Matches(*item) {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *mockCatalogRepo) FindByID(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.fail != nil {
		return nil, m.fail
	}

	item, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (m *mockCatalogRepo) FindByIDs(ctx context.Context, itemIDs []string) ([]domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.fail != nil {
		return nil, m.fail
	}

	var out []domain.CatalogItem
	for _, id := range itemIDs {
		if item, ok := m.items[id]; ok {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *mockCatalogRepo) Create(ctx context.Context, item domain.CatalogItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.fail != nil {
		return m.fail
	}
	m.items[item.ID] = &item
	return nil
}

func (m *mockCatalogRepo) Update(ctx context.Context, itemID string, patch domain.CatalogPatch) (*domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.fail != nil {
		return nil, m.fail
	}

	item, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	patch.Apply(item)
	cp := *item
	return &cp, nil
}

func (m *mockCatalogRepo) Delete(ctx context.Context, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.fail != nil {
		return false, m.fail
	}

	_, ok := m.items[itemID]
	delete(m.items, itemID)
	return ok, nil
}

// DecrementStock mirrors the store's conditional update: check and write
// happen under one lock, like a single document update.
func (m *mockCatalogRepo) DecrementStock(ctx context.Context, itemID string, quantity int) (*domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.fail != nil {
		return nil, m.fail
	}

	item, ok := m.items[itemID]
	if !ok || item.Stock < quantity {
		return nil, nil
	}
	item.Stock -= quantity
	cp := *item
	return &cp, nil
}

func (m *mockCatalogRepo) IncrementStock(ctx context.Context, itemID string, quantity int) (*domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.fail != nil {
		return nil, m.fail
	}

	item, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	item.Stock += quantity
	cp := *item
	return &cp, nil
}

// Mock CartRepository
type mockCartRepo struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
	saves int
	fail  error
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[string]domain.Cart)}
}

func (m *mockCartRepo) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}

	cart, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	cart.Items = append([]domain.CartLine(nil), cart.Items...)
	return &cart, nil
}

func (m *mockCartRepo) SaveCart(ctx context.Context, cart domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.saves++
	cart.Items = append([]domain.CartLine(nil), cart.Items...)
	m.carts[cart.UserID] = cart
	return nil
}

// Mock CacheRepository
type mockCacheRepo struct {
	mu             sync.Mutex
	items          map[string]domain.CatalogItem
	idempotencySet map[string]bool
	invalidated    []string
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{
		items:          make(map[string]domain.CatalogItem),
		idempotencySet: make(map[string]bool),
	}
}

func (m *mockCacheRepo) GetItem(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *mockCacheRepo) SetItem(ctx context.Context, item domain.CatalogItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return nil
}

func (m *mockCacheRepo) InvalidateItem(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, itemID)
	m.invalidated = append(m.invalidated, itemID)
	return nil
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	return nil
}
