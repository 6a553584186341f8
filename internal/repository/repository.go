package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateCheckout = errors.New("order for this idempotency key already exists")
)

// CartRepository persists whole carts. Totals are never stored.
type CartRepository interface {
	GetCart(ctx context.Context, key string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, key string) error
}

// OrderRepository stores orders and records an outbox event in the same
// unit of work as every write.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	// UpdateStatusIf moves the order to `to` only while it is still in
	// `from`. It reports false when nothing matched.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) (bool, error)
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// CatalogRepository is the read side of the product catalog.
type CatalogRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByCategory(ctx context.Context, category domain.Category) ([]*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
}
