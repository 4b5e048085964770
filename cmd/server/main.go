package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/catalog-orders/internal/adapter/handler"
	"github.com/rl1809/catalog-orders/internal/adapter/messaging"
	"github.com/rl1809/catalog-orders/internal/adapter/storage"
	"github.com/rl1809/catalog-orders/internal/config"
	"github.com/rl1809/catalog-orders/internal/core/cache"
	"github.com/rl1809/catalog-orders/internal/core/service"
	"github.com/rl1809/catalog-orders/internal/pkg/clock"
	"github.com/rl1809/catalog-orders/internal/platform/observability"
	"github.com/rl1809/catalog-orders/internal/port"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	shutdownTracing, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	// Initialize MySQL
	db, err := storage.OpenMySQL(cfg.MySQLDSN, cfg.Location)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.MySQLMaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQLMaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Info("connected to mysql")

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if cfg.ApplySchema {
		if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	// Initialize Redis
	var cacheRepo port.CacheRepository
	if cfg.UseRedisCache {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: 100,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Reads fall through to MySQL while Redis is unreachable.
			logger.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		}
		cacheRepo = storage.NewRedisAdapter(rdb)
	}

	var publisher port.EventPublisher = port.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		logger.Info("publishing order events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	// Initialize services
	clk := clock.NewRealClock(cfg.Location)
	layer := cache.NewLayer(cacheRepo, cfg.UseRedisCache, logger)
	invalidator := service.NewInvalidator(layer, mysqlAdapter, cfg.WarmListCache, logger)
	coupons := service.NewCouponEngine(mysqlAdapter, clk)
	orderService := service.NewOrderService(mysqlAdapter, coupons, invalidator, publisher, clk, logger)
	services := handler.Services{
		Orders:       orderService,
		OrderDetails: service.NewOrderDetailService(mysqlAdapter, layer, invalidator, clk, logger),
		Products:     service.NewProductService(mysqlAdapter, layer, invalidator, clk),
		Categories:   service.NewCategoryService(mysqlAdapter, layer, invalidator),
		Coupons:      service.NewCouponService(mysqlAdapter),
		CouponEngine: coupons,
	}

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterOrderServiceServer(grpcServer, handler.NewGRPCHandler(orderService, coupons, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(services, logger).Register(mux)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")
	return nil
}
