package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/config"
	catalogrpc "github.com/fjod/storefront/internal/grpc"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/idempotency"
	"github.com/fjod/storefront/internal/metrics"
	"github.com/fjod/storefront/internal/publisher"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/service"
	"github.com/fjod/storefront/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("STOREFRONT_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, closer := logger.New(logger.Options{
		Service:   cfg.App.Name,
		Level:     cfg.App.LogLevel,
		FilePath:  cfg.App.LogFile,
		MaxSizeMB: cfg.App.LogMaxSize,
	})
	defer closer.Close()

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped with error", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()
	var wg sync.WaitGroup

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	defer tp.Shutdown(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Catalog
	var catalog service.Catalog
	if cfg.Catalog.GRPCAddr != "" {
		client, err := catalogrpc.Dial(cfg.Catalog.GRPCAddr, log)
		if err != nil {
			return err
		}
		defer client.Close()
		catalog = client
		log.Info("using remote catalog", "addr", cfg.Catalog.GRPCAddr)
	} else {
		repo, err := openCatalog(ctx, cfg)
		if err != nil {
			return err
		}
		defer repo.Close()
		catalog = repo
		log.Info("using local catalog", "path", cfg.Catalog.SQLitePath)
	}

	// Carts
	var carts repository.CartRepository = repository.NewMemoryCartRepository()
	if cfg.Mongo.URI != "" {
		db, err := repository.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return err
		}
		defer db.Client().Disconnect(context.Background())

		carts = repository.NewMongoCartRepository(db, cfg.Mongo.Collection)
		if err := repository.EnsureIndexes(ctx, carts); err != nil {
			return err
		}
		log.Info("connected to MongoDB", "database", cfg.Mongo.Database)
	}

	// Cache and idempotency records
	var (
		cartCache cache.CartCache = cache.NopCache{}
		idem      idempotency.Store
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		cartCache = cache.NewRedisCache(rdb, cfg.Redis.CartTTL)
		idem = idempotency.NewRedisStore(rdb, cfg.Redis.IdempotencyTTL)
		log.Info("redis ping succeeded", "addr", cfg.Redis.Addr)
	} else {
		idem = idempotency.NewMemoryStore(cfg.Redis.IdempotencyTTL)
	}

	// Orders and the outbox publisher
	// nothing drains the in-memory outbox
	var orders repository.OrderRepository = repository.NewMemoryOrderRepository().WithOutboxLimit(0)
	pollerCtx, pollerCancel := context.WithCancel(ctx)
	defer pollerCancel()
	if cfg.Postgres.DSN != "" {
		db, err := repository.OpenPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
		if err != nil {
			return err
		}
		if err := repository.RunOrderMigrations(db); err != nil {
			db.Close()
			return err
		}
		log.Info("database migrations completed")

		pg := repository.NewPostgresOrderRepository(db)
		defer pg.Close()
		orders = pg

		poller := publisher.NewOutboxPoller(pg, publisher.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), publisher.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			PollInterval: cfg.Kafka.PollInterval,
			BatchSize:    cfg.Kafka.BatchSize,
		}, log, m)
		defer poller.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(pollerCtx)
		}()
	}

	taxRate, err := cfg.TaxRate()
	if err != nil {
		return err
	}
	shipping, err := cfg.ShippingCost()
	if err != nil {
		return err
	}
	policy := service.OrderPolicy{
		TaxRate:      taxRate,
		ShippingCost: shipping,
		DeliveryDays: cfg.Orders.DeliveryDays,
	}

	cartService := service.NewCartService(carts, cartCache, catalog, log, m)
	orderService := service.NewOrderService(orders, idem, policy, log, m)
	checkoutService := service.NewCheckoutService(cartService, orderService, catalog, log)

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		JWTIssuer:      cfg.Auth.Issuer,
		CheckoutRPS:    cfg.HTTP.CheckoutRPS,
		CheckoutBurst:  cfg.HTTP.CheckoutBurst,
	}, h.Deps{
		Catalog:  catalog,
		Carts:    cartService,
		Orders:   orderService,
		Checkout: checkoutService,
		Metrics:  m,
		Log:      log,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("storefront listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("shutting down storefront")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	pollerCancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("outbox poller didn't stop in time")
	}

	log.Info("storefront stopped")
	return nil
}

func openCatalog(ctx context.Context, cfg config.Config) (*repository.SQLiteCatalogRepository, error) {
	db, err := repository.OpenSQLite(ctx, cfg.Catalog.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := repository.RunCatalogMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	repo := repository.NewSQLiteCatalogRepository(db)
	if cfg.Catalog.Seed {
		seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := repo.Seed(seedCtx); err != nil {
			repo.Close()
			return nil, err
		}
	}
	return repo, nil
}
