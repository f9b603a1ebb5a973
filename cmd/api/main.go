package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/user/asset-pipeline/internal/adapter/chromedp_fetcher"
	minio_adapter "github.com/user/asset-pipeline/internal/adapter/minio"
	"github.com/user/asset-pipeline/internal/adapter/ocrclient"
	"github.com/user/asset-pipeline/internal/adapter/postgres"
	redis_adapter "github.com/user/asset-pipeline/internal/adapter/redis"
	"github.com/user/asset-pipeline/internal/delivery/http/handler"
	"github.com/user/asset-pipeline/internal/delivery/http/router"
	"github.com/user/asset-pipeline/internal/scheduler"
	"github.com/user/asset-pipeline/internal/usecase"
	"github.com/user/asset-pipeline/pkg/config"
	"github.com/user/asset-pipeline/pkg/logger"
	"github.com/user/asset-pipeline/pkg/metrics"
)

func main() {
	// --- Configuration ---
	cfg := config.Load()

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())

	// --- Metrics ---
	metrics.Init()
	slog.Info("Metrics initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Database Connections ---

	// PostgreSQL
	pgConnString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	dbpool, err := pgxpool.New(ctx, pgConnString)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	slog.Info("PostgreSQL connection pool established")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("Redis connection established")

	// Object storage
	objectStore, err := minio_adapter.NewObjectStore(ctx, minio_adapter.Config{
		Endpoint:     cfg.MinioEndpoint,
		AccessKey:    cfg.MinioAccessKey,
		SecretKey:    cfg.MinioSecretKey,
		Bucket:       cfg.MinioBucket,
		UseSSL:       cfg.MinioUseSSL,
		MaxAssetSize: cfg.MaxAssetSize,
	})
	if err != nil {
		slog.Error("Unable to connect to object storage", "error", err)
		os.Exit(1)
	}
	slog.Info("Object storage bucket ready", "bucket", cfg.MinioBucket)

	// --- Repositories ---
	domainRepo := postgres.NewDomainRepo(dbpool)
	urlRepo := postgres.NewURLRepo(dbpool)
	assetRepo := postgres.NewAssetRepo(dbpool)
	ocrResultRepo := postgres.NewOCRResultRepo(dbpool)
	sweepGuard := redis_adapter.NewSweepGuard(rdb)

	// --- External services ---
	fetcher, err := chromedp_fetcher.NewChromedpFetcher(cfg.MaxConcurrency, cfg.PageLoadTimeout)
	if err != nil {
		slog.Error("Unable to initialize browser fetcher", "error", err)
		os.Exit(1)
	}
	ocrClient := ocrclient.NewClient(ocrclient.Config{
		Endpoint: cfg.OCREndpoint,
		APIKey:   cfg.OCRAPIKey,
		Timeout:  cfg.OCRTimeout,
	})

	// --- Use Cases ---
	sweeper := usecase.NewOrchestrator(
		domainRepo, urlRepo, assetRepo,
		fetcher, objectStore, ocrClient, sweepGuard,
		usecase.OrchestratorConfig{
			ClaimBatchSize: cfg.ClaimBatchSize,
			MaxConcurrency: cfg.MaxConcurrency,
			MaxRetries:     cfg.MaxRetries,
			ClaimLease:     cfg.ClaimLease,
			DomainGuardTTL: cfg.DomainSweepGuard,
		},
	)
	catalogManager := usecase.NewCatalogManager(
		domainRepo, urlRepo, assetRepo, ocrResultRepo,
		sweeper, cfg.SweepInterval,
	)

	// --- Scheduler ---
	sched := scheduler.New(sweeper, cfg.SweepInterval, cfg.SweepInterval)
	if err := sched.Start(); err != nil {
		slog.Error("Unable to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(catalogManager)
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
