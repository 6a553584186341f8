package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/fjod/storefront/internal/domain"
)

const (
	catalogServiceName = "storefront.catalog.v1.CatalogService"

	getProductMethod     = "/" + catalogServiceName + "/GetProduct"
	listByCategoryMethod = "/" + catalogServiceName + "/ListByCategory"
)

type GetProductRequest struct {
	ID string `json:"id"`
}

type GetProductResponse struct {
	Product *domain.Product `json:"product"`
}

// ListByCategoryRequest lists the whole catalog when Category is empty.
type ListByCategoryRequest struct {
	Category domain.Category `json:"category,omitempty"`
}

type ListByCategoryResponse struct {
	Products []*domain.Product `json:"products"`
}

// CatalogServer is the server API for the catalog service.
type CatalogServer interface {
	GetProduct(context.Context, *GetProductRequest) (*GetProductResponse, error)
	ListByCategory(context.Context, *ListByCategoryRequest) (*ListByCategoryResponse, error)
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

func getProductHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetProductRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).GetProduct(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getProductMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).GetProduct(ctx, req.(*GetProductRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listByCategoryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListByCategoryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).ListByCategory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listByCategoryMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).ListByCategory(ctx, req.(*ListByCategoryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: catalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetProduct", Handler: getProductHandler},
		{MethodName: "ListByCategory", Handler: listByCategoryHandler},
	},
	Streams: []grpc.StreamDesc{},
}
