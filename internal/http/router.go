package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/storefront/internal/metrics"
	"github.com/fjod/storefront/internal/service"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string
	JWTSecret      []byte
	JWTIssuer      string
	CheckoutRPS    float64
	CheckoutBurst  int
}

type Deps struct {
	Catalog  service.Catalog
	Carts    CartService
	Orders   OrderService
	Checkout CheckoutService
	Metrics  *metrics.Metrics
	Log      *slog.Logger
}

func NewRouter(cfg RouterConfig, d Deps) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	productHandler := NewProductHandler(d.Catalog, cfg.RequestTimeout)
	cartHandler := NewCartHandler(d.Carts, cfg.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(d.Checkout, cfg.RequestTimeout)
	ordersHandler := NewOrdersHandler(d.Orders, cfg.RequestTimeout)
	checkoutLimiter := NewRateLimiter(cfg.CheckoutRPS, cfg.CheckoutBurst)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware(d.Metrics))
	r.Use(MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", d.Metrics.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})
		r.With(checkoutLimiter.Middleware).Post("/checkout", checkoutHandler.Checkout)
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{order_id}", ordersHandler.GetOrder)
			// any signed-in user may move any order; there are no roles yet
			r.With(requireUser).Patch("/{order_id}/status", ordersHandler.UpdateStatus)
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", cartIDHeader, idempotencyHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
	})

	return otelhttp.NewHandler(c.Handler(r), "storefront-http")
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if getUserIDFromContext(r.Context()) == "" {
			respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing user authentication")
			return
		}
		next.ServeHTTP(w, r)
	})
}
