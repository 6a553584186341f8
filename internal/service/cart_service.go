package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fjod/storefront/internal/apperr"
	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/metrics"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/internal/repository"
)

// Catalog resolves products. GetByID returns repository.ErrProductNotFound
// for unknown ids.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByCategory(ctx context.Context, category domain.Category) ([]*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
}

const lockStripes = 64

// keyedMutex serializes work per cart key using a fixed set of stripes.
type keyedMutex struct {
	stripes [lockStripes]sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog Catalog
	metrics *metrics.Metrics
	log     *slog.Logger
	sfg     singleflight.Group // Prevents cache stampede
	locks   keyedMutex
}

func NewCartService(repo repository.CartRepository, c cache.CartCache, catalog Catalog, log *slog.Logger, m *metrics.Metrics) *CartService {
	if c == nil {
		c = cache.NopCache{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &CartService{
		repo:    repo,
		cache:   c,
		catalog: catalog,
		metrics: m,
		log:     log,
	}
}

// GetCart returns the cart for key, or an empty cart when none is stored.
func (s *CartService) GetCart(ctx context.Context, key string) (*domain.Cart, error) {
	if key == "" {
		return nil, apperr.Validation("get cart", ErrMissingCartKey)
	}

	cart, err := s.cache.Get(ctx, key)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.WarnContext(ctx, "cache get error", "cart", key, "error", err)
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(key, func() (any, error) {
		unlock := s.locks.lock(key)
		defer unlock()

		cart, err := s.repo.GetCart(ctx, key)
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.NewCart(key), nil
		}
		if err != nil {
			return nil, err
		}

		if errSet := s.cache.Set(ctx, key, cart); errSet != nil {
			s.log.WarnContext(ctx, "cache set error", "cart", key, "error", errSet)
		}
		return cart, nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "repo get cart error", "cart", key, "error", err)
		return nil, apperr.Persistence("get cart", err)
	}

	// callers sharing a flight must not share the cart
	shared := v.(*domain.Cart)
	out := *shared
	out.Lines = shared.Snapshot()
	return &out, nil
}

// AddProduct resolves productID in the catalog and adds one unit at the
// product's discounted price for region.
func (s *CartService) AddProduct(ctx context.Context, key, productID string, region domain.Region) (*domain.Cart, error) {
	const op = "add product"

	p, err := s.catalog.GetByID(ctx, productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, apperr.NotFound(op, fmt.Errorf("product %s: %w", productID, err))
	}
	if err != nil {
		s.log.ErrorContext(ctx, "catalog lookup error", "product", productID, "error", err)
		return nil, apperr.Persistence(op, err)
	}
	if !p.InStock {
		return nil, apperr.Validation(op, fmt.Errorf("product %s: %w", productID, ErrOutOfStock))
	}

	q := pricing.QuoteFor(p, region)
	if q == nil {
		return nil, apperr.RegionUnavailable(op, fmt.Errorf("product %s in %s: %w", productID, region, ErrRegionUnavailable))
	}

	item := domain.CartItem{
		ProductID: p.ID,
		Name:      p.Name.In(pricing.LanguageOf(region)),
		UnitPrice: q.DiscountedPrice(),
		Currency:  q.Currency,
		VolumeMl:  p.VolumeMl,
		ImageRef:  p.ImageRef,
	}

	return s.mutate(ctx, key, "add", func(c *domain.Cart) error {
		if err := c.AddItem(item); err != nil {
			return apperr.Validation(op, err)
		}
		c.Region = region
		return nil
	})
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, key, productID string, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, key, "update", func(c *domain.Cart) error {
		c.UpdateQuantity(productID, quantity)
		return nil
	})
}

func (s *CartService) RemoveItem(ctx context.Context, key, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, key, "remove", func(c *domain.Cart) error {
		c.RemoveItem(productID)
		return nil
	})
}

func (s *CartService) ClearCart(ctx context.Context, key string) error {
	if key == "" {
		return apperr.Validation("clear cart", ErrMissingCartKey)
	}

	unlock := s.locks.lock(key)
	defer unlock()
	return s.deleteLocked(ctx, key)
}

// deleteLocked removes the stored cart. The caller holds key's lock.
func (s *CartService) deleteLocked(ctx context.Context, key string) error {
	if err := s.repo.DeleteCart(ctx, key); err != nil {
		s.log.ErrorContext(ctx, "repo delete cart error", "cart", key, "error", err)
		return apperr.Persistence("clear cart", err)
	}

	s.invalidateCache(key)
	s.metrics.CartMutation("clear")
	return nil
}

// withLockedCart runs fn on the stored cart while holding key's lock, so no
// mutation of the same cart can interleave with it. fn must not call other
// locking CartService methods for key; deleteLocked is safe.
func (s *CartService) withLockedCart(ctx context.Context, key string, fn func(*domain.Cart) error) error {
	if key == "" {
		return apperr.Validation("checkout", ErrMissingCartKey)
	}

	unlock := s.locks.lock(key)
	defer unlock()

	cart, err := s.load(ctx, key, "checkout")
	if err != nil {
		return err
	}
	return fn(cart)
}

// mutate runs fn on the stored cart and saves the result while holding the
// key's lock. The cache entry is dropped before the lock is released.
func (s *CartService) mutate(ctx context.Context, key, op string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	if key == "" {
		return nil, apperr.Validation(op+" cart item", ErrMissingCartKey)
	}

	unlock := s.locks.lock(key)
	defer unlock()

	cart, err := s.load(ctx, key, op+" cart item")
	if err != nil {
		return nil, err
	}

	if err := fn(cart); err != nil {
		return nil, err
	}

	if err := s.repo.SaveCart(ctx, cart); err != nil {
		s.log.ErrorContext(ctx, "repo save cart error", "cart", key, "error", err)
		return nil, apperr.Persistence(op+" cart item", err)
	}

	s.invalidateCache(key)
	s.metrics.CartMutation(op)
	return cart, nil
}

// load reads the stored cart, or a new one when none exists. The caller
// holds key's lock.
func (s *CartService) load(ctx context.Context, key, op string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, key)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCart(key), nil
	}
	if err != nil {
		s.log.ErrorContext(ctx, "repo get cart error", "cart", key, "error", err)
		return nil, apperr.Persistence(op, err)
	}
	return cart, nil
}

func (s *CartService) invalidateCache(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn("cache invalidate error", "cart", key, "error", err)
	}
}
