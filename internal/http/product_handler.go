package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront/internal/apperr"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/service"
)

type ProductHandler struct {
	catalog service.Catalog
	timeout time.Duration
}

func NewProductHandler(catalog service.Catalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

// GET /api/v1/products?lang=&category=&sort=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	region := regionFromRequest(r)
	category := domain.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		respondError(w, r, http.StatusBadRequest, "invalid_category", "unknown category")
		return
	}

	var (
		products []*domain.Product
		err      error
	)
	if category == "" {
		products, err = h.catalog.List(ctx)
	} else {
		products, err = h.catalog.GetByCategory(ctx, category)
	}
	if err != nil {
		handleServiceError(w, r, apperr.Persistence("list products", err))
		return
	}

	available := pricing.FilterByRegionalAvailability(products, region)
	if sort := r.URL.Query().Get("sort"); sort != "" {
		available = pricing.SortByRegionalPrice(available, region, pricing.ParseSortOrder(sort))
	}

	dtos := make([]ProductDTO, 0, len(available))
	for _, p := range available {
		q := pricing.QuoteFor(p, region)
		if q == nil {
			continue
		}
		dtos = append(dtos, toProductDTO(p, q))
	}

	stats := pricing.RegionalPriceStats(available, region)
	resp := ProductListDTO{
		Region:   region,
		Products: dtos,
		Stats:    PriceStatsDTO{Stats: stats},
	}
	if stats.Count > 0 {
		resp.Stats.FormattedRange = pricing.FormatPriceRange(stats.Min, stats.Max, region)
	}

	respondJSON(w, r, http.StatusOK, resp)
}

// GET /api/v1/products/{id}?lang=
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	region := regionFromRequest(r)

	p, err := h.catalog.GetByID(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		respondError(w, r, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		handleServiceError(w, r, apperr.Persistence("get product", err))
		return
	}

	q := pricing.QuoteFor(p, region)
	if q == nil {
		respondError(w, r, http.StatusUnprocessableEntity, "region_unavailable", "product is not available in your region")
		return
	}

	respondJSON(w, r, http.StatusOK, toProductDTO(p, q))
}
