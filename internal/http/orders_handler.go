package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront/internal/domain"
)

type OrderService interface {
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetUserOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
}

func NewOrdersHandler(orders OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.GetUserOrders(ctx, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, toOrderDTO(o))
	}
	respondJSON(w, r, http.StatusOK, dtos)
}

// GET /api/v1/orders/{order_id}
//
// The order id is unguessable, so holding it is enough to read the order.
// Guests have no other way back to their orders.
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, r, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	order, err := h.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, toOrderDTO(order))
}

// PATCH /api/v1/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, r, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	var req UpdateStatusRequestDTO
	if err := decodeJSON(r, &req); err != nil || req.Status == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "status is required")
		return
	}

	order, err := h.orders.UpdateOrderStatus(ctx, orderID, req.Status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, toOrderDTO(order))
}
