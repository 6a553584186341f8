package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
)

// CatalogServiceServer serves a catalog repository over gRPC.
type CatalogServiceServer struct {
	repo repository.CatalogRepository
	log  *slog.Logger
}

func NewCatalogServiceServer(repo repository.CatalogRepository, log *slog.Logger) *CatalogServiceServer {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogServiceServer{repo: repo, log: log}
}

func (s *CatalogServiceServer) GetProduct(ctx context.Context, req *GetProductRequest) (*GetProductResponse, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "product id is required")
	}

	p, err := s.repo.GetByID(ctx, req.ID)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, status.Errorf(codes.NotFound, "product %s not found", req.ID)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "get product failed", "product", req.ID, "error", err)
		return nil, status.Errorf(codes.Internal, "failed to fetch product: %v", err)
	}

	return &GetProductResponse{Product: p}, nil
}

func (s *CatalogServiceServer) ListByCategory(ctx context.Context, req *ListByCategoryRequest) (*ListByCategoryResponse, error) {
	if req.Category != "" && !req.Category.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown category %q", req.Category)
	}

	var (
		products []*domain.Product
		err      error
	)
	if req.Category == "" {
		products, err = s.repo.List(ctx)
	} else {
		products, err = s.repo.GetByCategory(ctx, req.Category)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "list products failed", "category", req.Category, "error", err)
		return nil, status.Errorf(codes.Internal, "failed to fetch products: %v", err)
	}

	return &ListByCategoryResponse{Products: products}, nil
}
