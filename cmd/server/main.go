package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/storefront/internal/adapter/auth"
	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/logger"
	"github.com/rl1809/storefront/internal/metrics"
	"github.com/rl1809/storefront/internal/port"
	"github.com/rl1809/storefront/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg, err := logger.New(logger.Config{Level: cfg.LogLevel, Env: cfg.Env})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logg.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Store
	store := storage.NewStore(cfg.Store.URI, cfg.Store.Database)
	logg.Info("store selected", zap.String("kind", store.Kind), zap.String("database", cfg.Store.Database))

	// Redis is optional; without it there is no item cache and no
	// idempotency keys.
	var rdb *redis.Client
	var cache port.CacheRepository
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logg.Warn("redis not reachable, continuing", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			logg.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
		}
		pingCancel()
		cache = storage.NewRedisAdapter(rdb, logg)
	} else {
		logg.Warn("REDIS_ADDR not set, catalog cache and idempotency keys disabled")
	}

	// Services
	catalogService := service.NewCatalogService(store.Catalog, cache, logg)
	ledger := service.NewInventoryLedger(store.Catalog, cache, m, logg)
	carts := service.NewCartAggregator(store.Carts, store.Catalog, m, logg)
	gate := auth.NewAccessGate(cfg.Auth.JWTSecret)

	// gRPC health mirrors the supervisor state
	grpcHandler := handler.NewGRPCHandler()

	sup := supervisor.New(store.Connector, logg,
		supervisor.WithPolicy(supervisor.Policy{
			Base:      cfg.Store.RetryBase,
			Cap:       cfg.Store.RetryCap,
			JitterMax: cfg.Store.RetryJitter,
		}),
		supervisor.WithAttemptTimeout(cfg.Store.ConnectTimeout),
		supervisor.WithMetrics(m),
		supervisor.WithListener(grpcHandler.OnStateChange),
		supervisor.WithListener(func(s supervisor.State) {
			logg.Info("store connection state changed", zap.Stringer("state", s))
		}),
	)
	sup.Start(ctx, cfg.Store.URI)

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	grpcHandler.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPC.Addr())
	if err != nil {
		logg.Fatal("failed to listen", zap.String("addr", cfg.GRPC.Addr()), zap.Error(err))
	}

	go func() {
		logg.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Addr()))
		if err := grpcServer.Serve(lis); err != nil {
			logg.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(catalogService, ledger, carts, gate, sup, handler.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}, logg)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      otelhttp.NewHandler(httpHandler.Routes(), "storefront"),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logg.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	sup.Shutdown(shutdownCtx)
	<-sup.Stopped()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Warn("HTTP server shutdown", zap.Error(err))
	}
	logg.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logg.Info("gRPC server stopped")

	if rdb != nil {
		rdb.Close()
	}
	logg.Info("connections closed")
}
