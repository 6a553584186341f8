package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fjod/storefront/internal/apperr"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/idempotency"
	"github.com/fjod/storefront/internal/metrics"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/internal/repository"
)

const (
	idempotencyScope = "checkout"
	guestPrefix      = "guest_"
	trackingPrefix   = "TRK"

	upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	lowerAlnum = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// OrderPolicy holds the flat tax and shipping rules applied to every order.
type OrderPolicy struct {
	TaxRate      decimal.Decimal
	ShippingCost decimal.Decimal
	DeliveryDays int
}

func DefaultOrderPolicy() OrderPolicy {
	return OrderPolicy{
		TaxRate:      decimal.RequireFromString("0.06"),
		ShippingCost: decimal.Zero,
		DeliveryDays: 3,
	}
}

type CreateOrderInput struct {
	UserID          string
	Lines           []domain.CartLine
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
	IdempotencyKey  string
}

type OrderService struct {
	repo    repository.OrderRepository
	idem    idempotency.Store
	policy  OrderPolicy
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

func NewOrderService(repo repository.OrderRepository, idem idempotency.Store, policy OrderPolicy, log *slog.Logger, m *metrics.Metrics) *OrderService {
	if idem == nil {
		idem = idempotency.NewMemoryStore(24 * time.Hour)
	}
	if log == nil {
		log = slog.Default()
	}
	if policy.DeliveryDays <= 0 {
		policy.DeliveryDays = DefaultOrderPolicy().DeliveryDays
	}
	return &OrderService{
		repo:    repo,
		idem:    idem,
		policy:  policy,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func validateInput(in CreateOrderInput) error {
	if len(in.Lines) == 0 {
		return ErrEmptyCart
	}
	if in.UserID == "" {
		return errors.New("user id is required")
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return err
	}
	if !in.PaymentMethod.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidPaymentMethod, in.PaymentMethod)
	}
	currency := in.Lines[0].Currency
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("line %s has quantity %d", l.ProductID, l.Quantity)
		}
		if l.Currency != currency {
			return domain.ErrCurrencyMismatch
		}
	}
	return nil
}

// CreateOrder snapshots the lines, computes totals and persists a pending
// order. With an idempotency key the order is created at most once; a retry
// gets the order created by the first attempt.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	const op = "create order"

	if err := validateInput(in); err != nil {
		return nil, apperr.Validation(op, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := in.IdempotencyKey
	if key != "" {
		existing, err := s.Replay(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}

		locked, err := s.idem.TryLock(ctx, idempotencyScope, key)
		if err != nil {
			s.log.ErrorContext(ctx, "idempotency lock error", "error", err)
			return nil, apperr.Persistence(op, err)
		}
		if !locked {
			return s.byIdempotencyKey(ctx, key)
		}
	}

	order := s.build(in)
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		if key != "" && errors.Is(err, repository.ErrDuplicateCheckout) {
			return s.byIdempotencyKey(ctx, key)
		}
		if key != "" {
			if errRelease := s.idem.Release(context.WithoutCancel(ctx), idempotencyScope, key); errRelease != nil {
				s.log.WarnContext(ctx, "idempotency release error", "error", errRelease)
			}
		}
		s.log.ErrorContext(ctx, "repo create order error", "error", err)
		return nil, apperr.Persistence(op, err)
	}

	if key != "" {
		if err := s.idem.Remember(context.WithoutCancel(ctx), idempotencyScope, key, order.ID); err != nil {
			s.log.WarnContext(ctx, "idempotency remember error", "order_id", order.ID, "error", err)
		}
	}

	s.metrics.OrderCreated(order.Currency)
	s.log.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"user_id", order.UserID,
		"total", order.TotalAmount.String(),
		"currency", order.Currency,
	)
	return order.Clone(), nil
}

// Replay returns the order already created for an idempotency key, or nil
// when the key has not produced an order yet.
func (s *OrderService) Replay(ctx context.Context, key string) (*domain.Order, error) {
	id, found, err := s.idem.Recall(ctx, idempotencyScope, key)
	if err != nil {
		s.log.WarnContext(ctx, "idempotency recall error", "error", err)
	}
	if found {
		order, err := s.repo.GetOrderByID(ctx, id)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperr.Persistence("replay order", err)
		}
	}

	order, err := s.repo.GetOrderByIdempotencyKey(ctx, key)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("replay order", err)
	}
	return order, nil
}

func (s *OrderService) byIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	order, err := s.repo.GetOrderByIdempotencyKey(ctx, key)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, apperr.Conflict("create order", ErrCheckoutInProgress)
	}
	if err != nil {
		return nil, apperr.Persistence("create order", err)
	}
	return order, nil
}

func (s *OrderService) build(in CreateOrderInput) *domain.Order {
	now := s.now().UTC()
	currency := in.Lines[0].Currency

	lines := make([]domain.OrderLine, 0, len(in.Lines))
	subtotal := decimal.Zero
	for _, l := range in.Lines {
		ol := domain.NewOrderLine(l)
		subtotal = subtotal.Add(ol.LineTotal)
		lines = append(lines, ol)
	}

	tax := subtotal.Mul(s.policy.TaxRate).Round(pricing.MinorUnits(currency))
	shipping := s.policy.ShippingCost
	eta := now.AddDate(0, 0, s.policy.DeliveryDays)

	return &domain.Order{
		ID:                  uuid.NewString(),
		UserID:              in.UserID,
		Lines:               lines,
		Currency:            currency,
		Subtotal:            subtotal,
		TaxAmount:           tax,
		ShippingCost:        shipping,
		TotalAmount:         subtotal.Add(tax).Add(shipping),
		Status:              domain.OrderStatusPending,
		ShippingAddress:     in.ShippingAddress,
		PaymentMethod:       in.PaymentMethod,
		IdempotencyKey:      in.IdempotencyKey,
		CreatedAt:           now,
		UpdatedAt:           now,
		EstimatedDeliveryAt: &eta,
		TrackingNumber:      trackingPrefix + randomString(upperAlnum, 8),
	}
}

func (s *OrderService) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, apperr.NotFound("get order", fmt.Errorf("order %s: %w", id, err))
	}
	if err != nil {
		s.log.ErrorContext(ctx, "repo get order error", "order_id", id, "error", err)
		return nil, apperr.Persistence("get order", err)
	}
	return order, nil
}

// GetUserOrders lists the orders placed under userID, newest first.
func (s *OrderService) GetUserOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	if userID == "" {
		return nil, apperr.Validation("list orders", errors.New("user id is required"))
	}
	orders, err := s.repo.ListOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "repo list orders error", "user_id", userID, "error", err)
		return nil, apperr.Persistence("list orders", err)
	}
	return orders, nil
}

// UpdateOrderStatus moves an order along the status machine. The write only
// lands if the order is still in the status it was read in.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, to domain.OrderStatus) (*domain.Order, error) {
	const op = "update order status"

	if !to.Valid() {
		return nil, apperr.Validation(op, fmt.Errorf("%w: %q", ErrUnknownStatus, to))
	}

	order, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if !domain.CanTransitionTo(from, to) {
		return nil, apperr.Validation(op, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to))
	}

	at := s.now().UTC()
	ok, err := s.repo.UpdateStatusIf(ctx, id, from, to, at)
	if err != nil {
		s.log.ErrorContext(ctx, "repo update status error", "order_id", id, "error", err)
		return nil, apperr.Persistence(op, err)
	}
	if !ok {
		return nil, apperr.Conflict(op, fmt.Errorf("%w: order %s is no longer %s", ErrStatusChanged, id, from))
	}

	s.metrics.StatusTransition(from.String(), to.String())
	s.log.InfoContext(ctx, "order status changed", "order_id", id, "from", from, "to", to)

	order.Status = to
	order.UpdatedAt = at
	return order, nil
}

// GuestID returns an identity for an anonymous buyer:
// guest_<unix millis>_<9 random characters>.
func GuestID(now time.Time) string {
	return guestPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + randomString(lowerAlnum, 9)
}

func IsGuestID(id string) bool {
	rest, ok := strings.CutPrefix(id, guestPrefix)
	if !ok {
		return false
	}
	ts, suffix, ok := strings.Cut(rest, "_")
	if !ok || suffix == "" {
		return false
	}
	_, err := strconv.ParseInt(ts, 10, 64)
	return err == nil
}

func randomString(alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
