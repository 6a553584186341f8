package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/apperr"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
)

type CheckoutRequest struct {
	CartKey string
	// UserID is empty for guests.
	UserID          string
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
	IdempotencyKey  string
}

type CheckoutResult struct {
	Order *domain.Order
	Guest bool
}

// CheckoutService turns a cart into an order.
type CheckoutService struct {
	carts   *CartService
	orders  *OrderService
	catalog Catalog
	log     *slog.Logger
	now     func() time.Time
}

func NewCheckoutService(carts *CartService, orders *OrderService, catalog Catalog, log *slog.Logger) *CheckoutService {
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutService{
		carts:   carts,
		orders:  orders,
		catalog: catalog,
		log:     log,
		now:     time.Now,
	}
}

// Checkout creates an order from the cart and clears the cart once the
// order exists. The cart is left untouched on any failure. The whole run
// holds the cart's lock, so a double submit without an idempotency key
// finds the cart already empty and an item added meanwhile waits for the
// cleared cart.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	const op = "checkout"

	// keys are only unique per cart
	var key string
	if req.IdempotencyKey != "" {
		key = req.CartKey + ":" + req.IdempotencyKey
	}

	var res *CheckoutResult
	err := s.carts.withLockedCart(ctx, req.CartKey, func(cart *domain.Cart) error {
		if key != "" {
			existing, err := s.orders.Replay(ctx, key)
			if err != nil {
				return err
			}
			if existing != nil {
				s.log.InfoContext(ctx, "checkout replayed", "order_id", existing.ID)
				res = &CheckoutResult{Order: existing, Guest: IsGuestID(existing.UserID)}
				return nil
			}
		}

		if cart.IsEmpty() {
			return apperr.Validation(op, ErrEmptyCart)
		}

		lines := cart.Snapshot()
		if err := s.revalidate(ctx, lines); err != nil {
			return err
		}

		userID := req.UserID
		if userID == "" {
			userID = GuestID(s.now())
		}

		order, err := s.orders.CreateOrder(ctx, CreateOrderInput{
			UserID:          userID,
			Lines:           lines,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			IdempotencyKey:  key,
		})
		if err != nil {
			return err
		}

		// the order exists; a caller going away must not leave the cart behind
		if err := s.carts.deleteLocked(context.WithoutCancel(ctx), req.CartKey); err != nil {
			s.log.WarnContext(ctx, "clear cart after checkout failed", "order_id", order.ID, "error", err)
		}

		res = &CheckoutResult{Order: order, Guest: IsGuestID(order.UserID)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *CheckoutService) revalidate(ctx context.Context, lines []domain.CartLine) error {
	const op = "checkout"
	for _, l := range lines {
		p, err := s.catalog.GetByID(ctx, l.ProductID)
		if errors.Is(err, repository.ErrProductNotFound) {
			return apperr.NotFound(op, fmt.Errorf("product %s: %w", l.ProductID, err))
		}
		if err != nil {
			s.log.ErrorContext(ctx, "catalog lookup error", "product", l.ProductID, "error", err)
			return apperr.Persistence(op, err)
		}
		if !p.InStock {
			return apperr.Validation(op, fmt.Errorf("product %s: %w", l.ProductID, ErrOutOfStock))
		}
	}
	return nil
}
