package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/storefront/internal/apperr"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/idempotency"
	"github.com/fjod/storefront/internal/repository"
)

type checkoutFixture struct {
	cartFixture
	orders   *failingOrderRepo
	checkout *CheckoutService
}

func newCheckoutFixture() checkoutFixture {
	cf := newCartFixture()
	orderRepo := &failingOrderRepo{MemoryOrderRepository: repository.NewMemoryOrderRepository()}
	orders := NewOrderService(orderRepo, idempotency.NewMemoryStore(time.Hour), examplePolicy(), testLog, nil)
	return checkoutFixture{
		cartFixture: cf,
		orders:      orderRepo,
		checkout:    NewCheckoutService(cf.svc, orders, cf.catalog, testLog),
	}
}

func (f checkoutFixture) fillExampleCart(t *testing.T, key string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range []string{"1", "1", "4"} {
		_, err := f.svc.AddProduct(ctx, key, id, domain.RegionUS)
		require.NoError(t, err)
	}
}

func checkoutRequest(cartKey, userID string) CheckoutRequest {
	return CheckoutRequest{
		CartKey:         cartKey,
		UserID:          userID,
		ShippingAddress: testAddress,
		PaymentMethod:   domain.PaymentCashOnDelivery,
	}
}

func TestCheckout_AuthenticatedUser(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	f.fillExampleCart(t, "session-1")

	res, err := f.checkout.Checkout(ctx, checkoutRequest("session-1", "user-1"))
	require.NoError(t, err)
	assert.False(t, res.Guest)
	assert.Equal(t, "user-1", res.Order.UserID)
	assert.Equal(t, "157.97", res.Order.Subtotal.String())
	assert.Equal(t, "12.64", res.Order.TaxAmount.String())
	assert.Equal(t, "170.61", res.Order.TotalAmount.String())

	cart, err := f.svc.GetCart(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty(), "cart is cleared after a successful checkout")
}

func TestCheckout_GuestGetsGuestID(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	f.fillExampleCart(t, "session-1")

	res, err := f.checkout.Checkout(ctx, checkoutRequest("session-1", ""))
	require.NoError(t, err)
	assert.True(t, res.Guest)
	assert.True(t, IsGuestID(res.Order.UserID))

	// the guest's order is reachable by id but never listed for a user
	got, err := f.checkout.orders.GetOrderByID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, got.ID)

	f.fillExampleCart(t, "session-2")
	_, err = f.checkout.Checkout(ctx, checkoutRequest("session-2", "user-1"))
	require.NoError(t, err)

	userOrders, err := f.checkout.orders.GetUserOrders(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, userOrders, 1)
	assert.NotEqual(t, res.Order.ID, userOrders[0].ID)

	guestOrders, err := f.checkout.orders.GetUserOrders(ctx, res.Order.UserID)
	require.NoError(t, err)
	require.Len(t, guestOrders, 1)
	assert.Equal(t, res.Order.ID, guestOrders[0].ID)
}

func TestCheckout_EmptyCartCreatesNoOrder(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.checkout.Checkout(context.Background(), checkoutRequest("session-1", "user-1"))
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 0, f.orders.creates)
}

func TestCheckout_RevalidatesCatalog(t *testing.T) {
	t.Run("out of stock", func(t *testing.T) {
		f := newCheckoutFixture()
		f.fillExampleCart(t, "session-1")
		f.catalog.setInStock("4", false)

		_, err := f.checkout.Checkout(context.Background(), checkoutRequest("session-1", "user-1"))
		assert.ErrorIs(t, err, ErrOutOfStock)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Equal(t, 0, f.orders.creates)
	})

	t.Run("removed from catalog", func(t *testing.T) {
		f := newCheckoutFixture()
		f.fillExampleCart(t, "session-1")
		f.catalog.remove("1")

		_, err := f.checkout.Checkout(context.Background(), checkoutRequest("session-1", "user-1"))
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		assert.Equal(t, 0, f.orders.creates)

		cart, err := f.svc.GetCart(context.Background(), "session-1")
		require.NoError(t, err)
		assert.Equal(t, 3, cart.TotalItems(), "cart is untouched on failure")
	})
}

func TestCheckout_FailureLeavesCartUntouched(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	f.fillExampleCart(t, "session-1")
	f.orders.createErr = errors.New("database is down")

	_, err := f.checkout.Checkout(ctx, checkoutRequest("session-1", "user-1"))
	assert.True(t, apperr.Is(err, apperr.KindPersistence))

	cart, err := f.svc.GetCart(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, 3, cart.TotalItems())
	assert.Equal(t, "157.97", cart.TotalPrice().String())
}

func TestCheckout_IdempotentRetryAfterCartCleared(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	f.fillExampleCart(t, "session-1")

	req := checkoutRequest("session-1", "")
	req.IdempotencyKey = "key-1"

	first, err := f.checkout.Checkout(ctx, req)
	require.NoError(t, err)

	second, err := f.checkout.Checkout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, first.Order.UserID, second.Order.UserID)
	assert.True(t, second.Guest)
	assert.Equal(t, 1, f.orders.creates)
}

func TestCheckout_KeysAreScopedPerCart(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	f.fillExampleCart(t, "session-1")
	f.fillExampleCart(t, "session-2")

	a := checkoutRequest("session-1", "user-1")
	a.IdempotencyKey = "same"
	b := checkoutRequest("session-2", "user-2")
	b.IdempotencyKey = "same"

	first, err := f.checkout.Checkout(ctx, a)
	require.NoError(t, err)
	second, err := f.checkout.Checkout(ctx, b)
	require.NoError(t, err)
	assert.NotEqual(t, first.Order.ID, second.Order.ID)
}

// cancellingOrderRepo cancels the caller's context right after the order
// is stored, like a client that goes away mid-request.
type cancellingOrderRepo struct {
	*repository.MemoryOrderRepository
	cancel context.CancelFunc
}

func (r cancellingOrderRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	err := r.MemoryOrderRepository.CreateOrder(ctx, order)
	r.cancel()
	return err
}

func TestCheckout_ClearsCartWhenCallerCancelsAfterOrder(t *testing.T) {
	cf := newCartFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orderRepo := cancellingOrderRepo{MemoryOrderRepository: repository.NewMemoryOrderRepository(), cancel: cancel}
	orders := NewOrderService(orderRepo, nil, examplePolicy(), testLog, nil)
	checkout := NewCheckoutService(cf.svc, orders, cf.catalog, testLog)

	for _, id := range []string{"1", "4"} {
		_, err := cf.svc.AddProduct(context.Background(), "session-1", id, domain.RegionUS)
		require.NoError(t, err)
	}

	res, err := checkout.Checkout(ctx, checkoutRequest("session-1", "user-1"))
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	_, err = orders.GetOrderByID(context.Background(), res.Order.ID)
	require.NoError(t, err)

	cart, err := cf.svc.GetCart(context.Background(), "session-1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

// slowOrderRepo holds every CreateOrder long enough for a second request to
// arrive while the first order is still being written.
type slowOrderRepo struct {
	*repository.MemoryOrderRepository
	delay   time.Duration
	started chan struct{}
	once    sync.Once
	creates atomic.Int32
}

func newSlowOrderRepo(delay time.Duration) *slowOrderRepo {
	return &slowOrderRepo{
		MemoryOrderRepository: repository.NewMemoryOrderRepository(),
		delay:                 delay,
		started:               make(chan struct{}),
	}
}

func (r *slowOrderRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	r.creates.Add(1)
	r.once.Do(func() { close(r.started) })
	time.Sleep(r.delay)
	return r.MemoryOrderRepository.CreateOrder(ctx, order)
}

func TestCheckout_DoubleSubmitWithoutKeyCreatesOneOrder(t *testing.T) {
	cf := newCartFixture()
	orderRepo := newSlowOrderRepo(50 * time.Millisecond)
	orders := NewOrderService(orderRepo, nil, examplePolicy(), testLog, nil)
	checkout := NewCheckoutService(cf.svc, orders, cf.catalog, testLog)
	ctx := context.Background()

	for _, id := range []string{"1", "1", "4"} {
		_, err := cf.svc.AddProduct(ctx, "session-1", id, domain.RegionUS)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = checkout.Checkout(ctx, checkoutRequest("session-1", "user-1"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrEmptyCart)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int32(1), orderRepo.creates.Load())

	userOrders, err := orders.GetUserOrders(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, userOrders, 1)
}

func TestCheckout_ItemAddedDuringCheckoutIsKept(t *testing.T) {
	cf := newCartFixture()
	orderRepo := newSlowOrderRepo(50 * time.Millisecond)
	orders := NewOrderService(orderRepo, nil, examplePolicy(), testLog, nil)
	checkout := NewCheckoutService(cf.svc, orders, cf.catalog, testLog)
	ctx := context.Background()

	for _, id := range []string{"1", "4"} {
		_, err := cf.svc.AddProduct(ctx, "session-1", id, domain.RegionUS)
		require.NoError(t, err)
	}

	done := make(chan *CheckoutResult, 1)
	go func() {
		res, err := checkout.Checkout(ctx, checkoutRequest("session-1", "user-1"))
		assert.NoError(t, err)
		done <- res
	}()

	<-orderRepo.started
	_, err := cf.svc.AddProduct(ctx, "session-1", "2", domain.RegionUS)
	require.NoError(t, err)

	res := <-done
	require.NotNil(t, res)
	require.Len(t, res.Order.Lines, 2)
	for _, l := range res.Order.Lines {
		assert.NotEqual(t, "2", l.ProductID)
	}

	cart, err := cf.svc.GetCart(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "2", cart.Lines[0].ProductID)
}

func TestCheckout_ConcurrentRetryWithSameKeyReturnsSameOrder(t *testing.T) {
	cf := newCartFixture()
	orderRepo := newSlowOrderRepo(50 * time.Millisecond)
	orders := NewOrderService(orderRepo, nil, examplePolicy(), testLog, nil)
	checkout := NewCheckoutService(cf.svc, orders, cf.catalog, testLog)
	ctx := context.Background()

	_, err := cf.svc.AddProduct(ctx, "session-1", "1", domain.RegionUS)
	require.NoError(t, err)

	req := checkoutRequest("session-1", "")
	req.IdempotencyKey = "key-1"

	var wg sync.WaitGroup
	results := make([]*CheckoutResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = checkout.Checkout(ctx, req)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].Order.ID, results[1].Order.ID)
	assert.Equal(t, int32(1), orderRepo.creates.Load())
}
