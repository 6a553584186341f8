package cache

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, key string) (*domain.Cart, error)
	Set(ctx context.Context, key string, cart *domain.Cart) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")

// NopCache always misses. It stands in when no Redis is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*domain.Cart, error) {
	return nil, ErrCacheMiss
}

func (NopCache) Set(context.Context, string, *domain.Cart) error {
	return nil
}

func (NopCache) Delete(context.Context, string) error {
	return nil
}
