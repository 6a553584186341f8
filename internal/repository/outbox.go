package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fjod/storefront/internal/domain"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type orderEventPayload struct {
	OrderID        string             `json:"order_id"`
	UserID         string             `json:"user_id"`
	Status         domain.OrderStatus `json:"status"`
	PreviousStatus domain.OrderStatus `json:"previous_status,omitempty"`
	TotalAmount    *decimal.Decimal   `json:"total_amount,omitempty"`
	Currency       string             `json:"currency,omitempty"`
	Items          []domain.OrderLine `json:"items,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

func orderCreatedPayload(o *domain.Order) ([]byte, error) {
	total := o.TotalAmount
	b, err := json.Marshal(orderEventPayload{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Status:      o.Status,
		TotalAmount: &total,
		Currency:    o.Currency,
		Items:       o.Lines,
		OccurredAt:  o.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", EventOrderCreated, err)
	}
	return b, nil
}

func statusChangedPayload(id, userID string, from, to domain.OrderStatus, at time.Time) ([]byte, error) {
	b, err := json.Marshal(orderEventPayload{
		OrderID:        id,
		UserID:         userID,
		Status:         to,
		PreviousStatus: from,
		OccurredAt:     at,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", EventOrderStatusChanged, err)
	}
	return b, nil
}
