package service

import (
	"context"
	"sync"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
)

// mockCache implements cache.CartCache and counts invalidations
type mockCache struct {
	mu      sync.RWMutex
	data    map[string]*domain.Cart
	deletes map[string]int
}

func newMockCache() *mockCache {
	return &mockCache{
		data:    make(map[string]*domain.Cart),
		deletes: make(map[string]int),
	}
}

func (m *mockCache) Get(_ context.Context, key string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	out := *c
	out.Lines = c.Snapshot()
	return &out, nil
}

func (m *mockCache) Set(_ context.Context, key string, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := *cart
	out.Lines = cart.Snapshot()
	m.data[key] = &out
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deletes[key]++
	return nil
}

func (m *mockCache) cached(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

func (m *mockCache) deleteCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deletes[key]
}

// countingCartRepo wraps the memory repository and counts reads
type countingCartRepo struct {
	*repository.MemoryCartRepository
	mu    sync.Mutex
	reads int
}

func (r *countingCartRepo) GetCart(ctx context.Context, key string) (*domain.Cart, error) {
	r.mu.Lock()
	r.reads++
	r.mu.Unlock()
	return r.MemoryCartRepository.GetCart(ctx, key)
}

func (r *countingCartRepo) DeleteCart(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.MemoryCartRepository.DeleteCart(ctx, key)
}

func (r *countingCartRepo) readCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

// failingOrderRepo fails CreateOrder with createErr when set
type failingOrderRepo struct {
	*repository.MemoryOrderRepository
	createErr error
	creates   int
}

func (r *failingOrderRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	return r.MemoryOrderRepository.CreateOrder(ctx, order)
}

// mutableCatalog lets a test flip stock after items were added
type mutableCatalog struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func newMutableCatalog() *mutableCatalog {
	c := &mutableCatalog{products: make(map[string]*domain.Product)}
	for _, p := range repository.SeedProducts() {
		c.products[p.ID] = p
	}
	return c
}

func (c *mutableCatalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *mutableCatalog) GetByCategory(ctx context.Context, category domain.Category) ([]*domain.Product, error) {
	all, _ := c.List(ctx)
	out := []*domain.Product{}
	for _, p := range all {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *mutableCatalog) List(_ context.Context) ([]*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	return out, nil
}

func (c *mutableCatalog) setInStock(id string, inStock bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *c.products[id]
	cp.InStock = inStock
	c.products[id] = &cp
}

func (c *mutableCatalog) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}
