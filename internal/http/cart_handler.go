package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront/internal/domain"
)

const cartIDHeader = "X-Cart-ID"

type CartService interface {
	GetCart(ctx context.Context, key string) (*domain.Cart, error)
	AddProduct(ctx context.Context, key, productID string, region domain.Region) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, key, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, key, productID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, key string) error
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

// cartKey identifies the cart: the X-Cart-ID header, or the user id for
// authenticated callers that send none.
func cartKey(r *http.Request) string {
	if key := r.Header.Get(cartIDHeader); key != "" {
		return key
	}
	return getUserIDFromContext(r.Context())
}

func (h *CartHandler) requireKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := cartKey(r)
	if key == "" {
		respondError(w, r, http.StatusBadRequest, "missing_cart_id", cartIDHeader+" header is required")
		return "", false
	}
	return key, true
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(ctx, key)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, toCartDTO(cart, regionFromRequest(r)))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	region := regionFromRequest(r)
	cart, err := h.carts.AddProduct(ctx, key, req.ProductID, region)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, toCartDTO(cart, region))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil || req.Quantity == nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "quantity is required")
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, key, chi.URLParam(r, "product_id"), *req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, toCartDTO(cart, regionFromRequest(r)))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, key, chi.URLParam(r, "product_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, toCartDTO(cart, regionFromRequest(r)))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(ctx, key); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
