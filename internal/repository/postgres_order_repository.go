package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fjod/storefront/internal/domain"
)

const orderColumns = `id, user_id, idempotency_key, currency, subtotal, tax_amount, shipping_cost,
	total_amount, status, items, shipping_address, payment_method, tracking_number,
	estimated_delivery_at, created_at, updated_at`

type PostgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// CreateOrder inserts the order row and its order.created outbox event in
// one transaction.
func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	payload, err := orderCreatedPayload(order)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		sql.NullString{String: order.IdempotencyKey, Valid: order.IdempotencyKey != ""},
		order.Currency,
		order.Subtotal,
		order.TaxAmount,
		order.ShippingCost,
		order.TotalAmount,
		order.Status,
		itemsJSON,
		addressJSON,
		order.PaymentMethod,
		sql.NullString{String: order.TrackingNumber, Valid: order.TrackingNumber != ""},
		order.EstimatedDeliveryAt,
		order.CreatedAt,
		order.UpdatedAt)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	if err := insertOutboxEvent(ctx, tx, order.ID, EventOrderCreated, payload); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, aggregateID, eventType string, payload []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		aggregateID, eventType, payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order          domain.Order
		idempotencyKey sql.NullString
		tracking       sql.NullString
		eta            sql.NullTime
		itemsJSON      []byte
		addressJSON    []byte
	)
	if err := row.Scan(
		&order.ID,
		&order.UserID,
		&idempotencyKey,
		&order.Currency,
		&order.Subtotal,
		&order.TaxAmount,
		&order.ShippingCost,
		&order.TotalAmount,
		&order.Status,
		&itemsJSON,
		&addressJSON,
		&order.PaymentMethod,
		&tracking,
		&eta,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	order.IdempotencyKey = idempotencyKey.String
	order.TrackingNumber = tracking.String
	if eta.Valid {
		t := eta.Time
		order.EstimatedDeliveryAt = &t
	}
	return &order, nil
}

func (r *PostgresOrderRepository) getOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return order, nil
}

func (r *PostgresOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrOrderNotFound
	}
	return r.getOne(ctx, "id = $1", id)
}

func (r *PostgresOrderRepository) GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	return r.getOne(ctx, "idempotency_key = $1", key)
}

func (r *PostgresOrderRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func (r *PostgresOrderRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) (bool, error) {
	if uuid.Validate(id) != nil {
		return false, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING user_id`,
		to, at, id, from,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}

	payload, err := statusChangedPayload(id, userID, from, to, at)
	if err != nil {
		return false, err
	}
	if err := insertOutboxEvent(ctx, tx, id, EventOrderStatusChanged, payload); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit status change: %w", err)
	}
	return true, nil
}

func (r *PostgresOrderRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		e := &OutboxEvent{}
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *PostgresOrderRepository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event %d: %w", id, err)
	}
	return nil
}

func (r *PostgresOrderRepository) Close() error {
	return r.db.Close()
}

var (
	_ OrderRepository  = (*PostgresOrderRepository)(nil)
	_ OutboxRepository = (*PostgresOrderRepository)(nil)
)
