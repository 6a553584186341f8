package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/pkg/circuitbreaker"
)

const defaultCallTimeout = 3 * time.Second

// CatalogClient reads the catalog from a remote catalog service. Calls go
// through a circuit breaker; not-found answers do not count as failures.
type CatalogClient struct {
	conn     *grpc.ClientConn
	timeout  time.Duration
	product  *circuitbreaker.Breaker[*domain.Product]
	products *circuitbreaker.Breaker[[]*domain.Product]
}

// NewServer returns a gRPC server instrumented with OpenTelemetry.
func NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	return grpc.NewServer(opts...)
}

// Dial connects to the catalog service at addr.
func Dial(addr string, log *slog.Logger, opts ...grpc.DialOption) (*CatalogClient, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog service: %w", err)
	}
	return NewCatalogClient(conn, log), nil
}

func NewCatalogClient(conn *grpc.ClientConn, log *slog.Logger) *CatalogClient {
	cfg := circuitbreaker.DefaultConfig("catalog")
	cfg.IsSuccessful = func(err error) bool {
		return errors.Is(err, repository.ErrProductNotFound) || status.Code(err) == codes.InvalidArgument
	}
	return &CatalogClient{
		conn:     conn,
		timeout:  defaultCallTimeout,
		product:  circuitbreaker.New[*domain.Product](cfg, log),
		products: circuitbreaker.New[[]*domain.Product](cfg, log),
	}
}

func (c *CatalogClient) invoke(ctx context.Context, method string, req, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.conn.Invoke(ctx, method, req, resp, grpc.CallContentSubtype(codecName))
}

func (c *CatalogClient) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return c.product.Execute(func() (*domain.Product, error) {
		resp := new(GetProductResponse)
		if err := c.invoke(ctx, getProductMethod, &GetProductRequest{ID: id}, resp); err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, repository.ErrProductNotFound
			}
			return nil, fmt.Errorf("catalog get product %s: %w", id, err)
		}
		if resp.Product == nil {
			return nil, repository.ErrProductNotFound
		}
		return resp.Product, nil
	})
}

func (c *CatalogClient) GetByCategory(ctx context.Context, category domain.Category) ([]*domain.Product, error) {
	return c.list(ctx, category)
}

func (c *CatalogClient) List(ctx context.Context) ([]*domain.Product, error) {
	return c.list(ctx, "")
}

func (c *CatalogClient) list(ctx context.Context, category domain.Category) ([]*domain.Product, error) {
	return c.products.Execute(func() ([]*domain.Product, error) {
		resp := new(ListByCategoryResponse)
		if err := c.invoke(ctx, listByCategoryMethod, &ListByCategoryRequest{Category: category}, resp); err != nil {
			return nil, fmt.Errorf("catalog list products: %w", err)
		}
		if resp.Products == nil {
			return []*domain.Product{}, nil
		}
		return resp.Products, nil
	})
}

func (c *CatalogClient) Close() error {
	return c.conn.Close()
}
