package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/storefront/internal/domain"
)

func newTestOrder(userID, idempotencyKey string, createdAt time.Time) *domain.Order {
	return &domain.Order{
		ID:     uuid.NewString(),
		UserID: userID,
		Lines: []domain.OrderLine{{
			ProductID: "1",
			Name:      "Premium Vodka",
			UnitPrice: decimal.RequireFromString("45.99"),
			Quantity:  2,
			LineTotal: decimal.RequireFromString("91.98"),
		}},
		Currency:       "USD",
		Subtotal:       decimal.RequireFromString("91.98"),
		TaxAmount:      decimal.RequireFromString("7.36"),
		ShippingCost:   decimal.Zero,
		TotalAmount:    decimal.RequireFromString("99.34"),
		Status:         domain.OrderStatusPending,
		PaymentMethod:  domain.PaymentCreditCard,
		IdempotencyKey: idempotencyKey,
		ShippingAddress: domain.ShippingAddress{
			Street: "1 Main St", City: "Springfield", Country: "US",
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestMemoryCartRepository_RoundTrip(t *testing.T) {
	repo := NewMemoryCartRepository()
	ctx := context.Background()

	_, err := repo.GetCart(ctx, "k")
	assert.ErrorIs(t, err, ErrCartNotFound)

	cart := domain.NewCart("k")
	require.NoError(t, cart.AddItem(domain.CartItem{ProductID: "1", UnitPrice: decimal.NewFromInt(5), Currency: "USD"}))
	require.NoError(t, repo.SaveCart(ctx, cart))

	cart.UpdateQuantity("1", 9)

	got, err := repo.GetCart(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalItems(), "stored cart must not alias the caller's cart")

	require.NoError(t, repo.DeleteCart(ctx, "k"))
	require.NoError(t, repo.DeleteCart(ctx, "k"))
	_, err = repo.GetCart(ctx, "k")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestMemoryOrderRepository_DuplicateIdempotencyKey(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()

	first := newTestOrder("user-1", "key-1", time.Now())
	require.NoError(t, repo.CreateOrder(ctx, first))

	err := repo.CreateOrder(ctx, newTestOrder("user-1", "key-1", time.Now()))
	assert.ErrorIs(t, err, ErrDuplicateCheckout)

	got, err := repo.GetOrderByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestMemoryOrderRepository_ListIsolatedAndNewestFirst(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()
	now := time.Now()

	older := newTestOrder("guest_1_aaaaaaaaa", "", now.Add(-time.Hour))
	newer := newTestOrder("guest_1_aaaaaaaaa", "", now)
	require.NoError(t, repo.CreateOrder(ctx, older))
	require.NoError(t, repo.CreateOrder(ctx, newer))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("guest_2_bbbbbbbbb", "", now)))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-1", "", now)))

	orders, err := repo.ListOrdersByUserID(ctx, "guest_1_aaaaaaaaa")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)

	none, err := repo.ListOrdersByUserID(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryOrderRepository_UpdateStatusIfAndOutbox(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()

	o := newTestOrder("user-1", "", time.Now())
	require.NoError(t, repo.CreateOrder(ctx, o))

	ok, err := repo.UpdateStatusIf(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusConfirmed, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatusIf(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "stale from-status must not match")

	ok, err = repo.UpdateStatusIf(ctx, "missing", domain.OrderStatusPending, domain.OrderStatusConfirmed, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventOrderCreated, events[0].EventType)
	assert.Equal(t, EventOrderStatusChanged, events[1].EventType)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(events[1].Payload, &payload))
	assert.Equal(t, "confirmed", payload["status"])
	assert.Equal(t, "pending", payload["previous_status"])

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderStatusChanged, events[0].EventType)
}

func TestMemoryOrderRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()

	o := newTestOrder("user-1", "", time.Now())
	require.NoError(t, repo.CreateOrder(ctx, o))
	o.Lines[0].Quantity = 99

	got, err := repo.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	got.Lines[0].Quantity = 42

	again, err := repo.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Lines[0].Quantity)
}

func TestMemoryOrderRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrder("user-1", "", time.Now())
	assert.ErrorIs(t, repo.CreateOrder(ctx, o), context.Canceled)

	_, err := repo.GetOrderByID(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryCatalog(t *testing.T) {
	c := NewMemoryCatalog(SeedProducts())
	ctx := context.Background()

	p, err := c.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Premium Vodka", p.Name.EN)

	_, err = c.GetByID(ctx, "404")
	assert.ErrorIs(t, err, ErrProductNotFound)

	rum, err := c.GetByCategory(ctx, domain.CategoryRum)
	require.NoError(t, err)
	require.Len(t, rum, 1)
	assert.Equal(t, "4", rum[0].ID)

	for _, p := range SeedProducts() {
		assert.NoError(t, p.Validate())
	}
}

func TestMemoryOrderRepository_OutboxLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("oldest events are dropped", func(t *testing.T) {
		repo := NewMemoryOrderRepository().WithOutboxLimit(2)
		orders := []*domain.Order{
			newTestOrder("user-1", "", time.Now()),
			newTestOrder("user-1", "", time.Now()),
			newTestOrder("user-1", "", time.Now()),
		}
		for _, o := range orders {
			require.NoError(t, repo.CreateOrder(ctx, o))
		}

		events, err := repo.GetUnprocessedEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, orders[1].ID, events[0].AggregateID)
		assert.Equal(t, orders[2].ID, events[1].AggregateID)
	})

	t.Run("zero records nothing", func(t *testing.T) {
		repo := NewMemoryOrderRepository().WithOutboxLimit(0)
		o := newTestOrder("user-1", "", time.Now())
		require.NoError(t, repo.CreateOrder(ctx, o))

		_, err := repo.UpdateStatusIf(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusConfirmed, time.Now())
		require.NoError(t, err)

		events, err := repo.GetUnprocessedEvents(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, events)

		got, err := repo.GetOrderByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusConfirmed, got.Status)
	})
}
