package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

// MemoryCartRepository keeps carts in process memory.
type MemoryCartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{carts: make(map[string]*domain.Cart)}
}

func cloneCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Lines = c.Snapshot()
	return &out
}

func (m *MemoryCartRepository) GetCart(_ context.Context, key string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.carts[key]
	if !ok {
		return nil, ErrCartNotFound
	}
	return cloneCart(c), nil
}

func (m *MemoryCartRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cart.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cart.Key] = cloneCart(cart)
	return nil
}

func (m *MemoryCartRepository) DeleteCart(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, key)
	return nil
}

// MemoryOrderRepository keeps orders and their outbox in process memory.
// Every write publishes the complete order under one lock, so a partially
// built order is never visible.
type MemoryOrderRepository struct {
	mu            sync.RWMutex
	orders        map[string]*domain.Order
	byIdempotency map[string]string
	outbox        []*OutboxEvent
	outboxLimit   int
	nextEventID   int64
}

const defaultOutboxLimit = 1000

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders:        make(map[string]*domain.Order),
		byIdempotency: make(map[string]string),
		outboxLimit:   defaultOutboxLimit,
	}
}

// WithOutboxLimit bounds the unprocessed events kept in memory; the oldest
// are dropped first. A limit of zero or less records no events, for runs
// where nothing drains the outbox.
func (m *MemoryOrderRepository) WithOutboxLimit(n int) *MemoryOrderRepository {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outboxLimit = n
	if over := len(m.outbox) - max(n, 0); over > 0 {
		m.outbox = slices.Delete(m.outbox, 0, over)
	}
	return m
}

func (m *MemoryOrderRepository) appendEvent(aggregateID, eventType string, payload []byte, at time.Time) {
	if m.outboxLimit <= 0 {
		return
	}
	if len(m.outbox) >= m.outboxLimit {
		m.outbox = slices.Delete(m.outbox, 0, len(m.outbox)-m.outboxLimit+1)
	}
	m.nextEventID++
	m.outbox = append(m.outbox, &OutboxEvent{
		ID:          m.nextEventID,
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   at,
	})
}

func (m *MemoryOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := orderCreatedPayload(order)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if order.IdempotencyKey != "" {
		if _, ok := m.byIdempotency[order.IdempotencyKey]; ok {
			return ErrDuplicateCheckout
		}
		m.byIdempotency[order.IdempotencyKey] = order.ID
	}
	m.orders[order.ID] = order.Clone()
	m.appendEvent(order.ID, EventOrderCreated, payload, order.CreatedAt)
	return nil
}

func (m *MemoryOrderRepository) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (m *MemoryOrderRepository) GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	m.mu.RLock()
	id, ok := m.byIdempotency[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrOrderNotFound
	}
	return m.GetOrderByID(ctx, id)
}

func (m *MemoryOrderRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := []*domain.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			orders = append(orders, o.Clone())
		}
	}
	slices.SortFunc(orders, func(a, b *domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return orders, nil
}

func (m *MemoryOrderRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	payload, err := statusChangedPayload(id, o.UserID, from, to, at)
	if err != nil {
		return false, err
	}
	o.Status = to
	o.UpdatedAt = at
	m.appendEvent(id, EventOrderStatusChanged, payload, at)
	return true, nil
}

func (m *MemoryOrderRepository) GetUnprocessedEvents(_ context.Context, limit int) ([]*OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := min(limit, len(m.outbox))
	return slices.Clone(m.outbox[:n]), nil
}

func (m *MemoryOrderRepository) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.outbox = slices.DeleteFunc(m.outbox, func(e *OutboxEvent) bool { return e.ID == id })
	return nil
}

// MemoryCatalog is a read-only catalog over a fixed product list.
type MemoryCatalog struct {
	products []*domain.Product
	byID     map[string]*domain.Product
}

func NewMemoryCatalog(products []*domain.Product) *MemoryCatalog {
	c := &MemoryCatalog{
		products: products,
		byID:     make(map[string]*domain.Product, len(products)),
	}
	for _, p := range products {
		c.byID[p.ID] = p
	}
	return c
}

func (c *MemoryCatalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (c *MemoryCatalog) GetByCategory(_ context.Context, category domain.Category) ([]*domain.Product, error) {
	out := []*domain.Product{}
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *MemoryCatalog) List(_ context.Context) ([]*domain.Product, error) {
	return slices.Clone(c.products), nil
}

var (
	_ CartRepository    = (*MemoryCartRepository)(nil)
	_ OrderRepository   = (*MemoryOrderRepository)(nil)
	_ OutboxRepository  = (*MemoryOrderRepository)(nil)
	_ CatalogRepository = (*MemoryCatalog)(nil)
)
