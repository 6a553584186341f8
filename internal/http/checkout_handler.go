package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

type CheckoutService interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod   domain.PaymentMethod   `json:"payment_method"`
}

type CheckoutResponseDTO struct {
	Order OrderResponseDTO `json:"order"`
	Guest bool             `json:"guest"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key := cartKey(r)
	if key == "" {
		respondError(w, r, http.StatusBadRequest, "missing_cart_id", cartIDHeader+" header is required")
		return
	}

	var req CheckoutRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := h.checkout.Checkout(ctx, service.CheckoutRequest{
		CartKey:         key,
		UserID:          getUserIDFromContext(r.Context()),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKey:  r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, CheckoutResponseDTO{
		Order: toOrderDTO(res.Order),
		Guest: res.Guest,
	})
}
