package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fjod/storefront/internal/domain"
)

func setupTestDB(t *testing.T) *PostgresOrderRepository {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := OpenPostgres(ctx, dsn, 5)
	require.NoError(t, err)
	require.NoError(t, RunOrderMigrations(db))

	repo := NewPostgresOrderRepository(db)
	t.Cleanup(func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return repo
}

func TestPostgresCreateOrder_RoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	eta := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Microsecond)
	order := newTestOrder("user-123", "key-1", time.Now().UTC().Truncate(time.Microsecond))
	order.EstimatedDeliveryAt = &eta
	order.TrackingNumber = "TRKABCDEFGH"

	require.NoError(t, repo.CreateOrder(ctx, order))

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.UserID, got.UserID)
	assert.True(t, got.TotalAmount.Equal(order.TotalAmount))
	assert.True(t, got.TotalsConsistent())
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	assert.Equal(t, order.ShippingAddress, got.ShippingAddress)
	assert.Equal(t, "TRKABCDEFGH", got.TrackingNumber)
	require.NotNil(t, got.EstimatedDeliveryAt)
	assert.True(t, eta.Equal(*got.EstimatedDeliveryAt))
	require.Len(t, got.Lines, 1)
	assert.True(t, got.Lines[0].LineTotal.Equal(order.Lines[0].LineTotal))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderCreated, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)
}

func TestPostgresCreateOrder_DuplicateIdempotencyKey(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-123", "key-1", time.Now())))

	err := repo.CreateOrder(ctx, newTestOrder("user-123", "key-1", time.Now()))
	assert.ErrorIs(t, err, ErrDuplicateCheckout)

	// orders without a key never collide
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-123", "", time.Now())))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-123", "", time.Now())))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 3, "the rejected order must not leave an outbox event")
}

func TestPostgresGetOrderByID_NotFound(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.GetOrderByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = repo.GetOrderByID(ctx, "6f1f8a3e-1111-4c4c-9999-000000000000")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgresListOrdersByUserID(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	older := newTestOrder("guest_1_aaaaaaaaa", "", now.Add(-time.Hour))
	newer := newTestOrder("guest_1_aaaaaaaaa", "", now)
	require.NoError(t, repo.CreateOrder(ctx, older))
	require.NoError(t, repo.CreateOrder(ctx, newer))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-1", "", now)))

	orders, err := repo.ListOrdersByUserID(ctx, "guest_1_aaaaaaaaa")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)

	empty, err := repo.ListOrdersByUserID(ctx, "guest_2_bbbbbbbbb")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostgresUpdateStatusIf(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder("user-1", "", time.Now())
	require.NoError(t, repo.CreateOrder(ctx, order))

	ok, err := repo.UpdateStatusIf(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusConfirmed, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatusIf(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, got.Status)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventOrderStatusChanged, events[1].EventType)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
