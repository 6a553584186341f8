package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/reflection"

	"github.com/fjod/storefront/internal/config"
	catalogrpc "github.com/fjod/storefront/internal/grpc"
	"github.com/fjod/storefront/internal/repository"
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
		Service:   "catalog-service",
		Level:     cfg.App.LogLevel,
		FilePath:  cfg.App.LogFile,
		MaxSizeMB: cfg.App.LogMaxSize,
	})
	defer closer.Close()

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, cfg.Catalog.SQLitePath)
	if err != nil {
		log.Error("failed to open catalog database", "error", err)
		os.Exit(1)
	}
	if err := repository.RunCatalogMigrations(db); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repo := repository.NewSQLiteCatalogRepository(db)
	defer repo.Close()

	if cfg.Catalog.Seed {
		seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := repo.Seed(seedCtx)
		cancel()
		if err != nil {
			log.Error("failed to seed catalog", "error", err)
			os.Exit(1)
		}
	}

	lis, err := net.Listen("tcp", cfg.Catalog.ListenAddr)
	if err != nil {
		log.Error("failed to listen", "addr", cfg.Catalog.ListenAddr, "error", err)
		os.Exit(1)
	}

	grpcServer := catalogrpc.NewServer()
	catalogrpc.RegisterCatalogServer(grpcServer, catalogrpc.NewCatalogServiceServer(repo, log))

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	go func() {
		log.Info("catalog service listening", "addr", cfg.Catalog.ListenAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("failed to serve", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down catalog service")
	grpcServer.GracefulStop()
	log.Info("catalog service stopped")
}
