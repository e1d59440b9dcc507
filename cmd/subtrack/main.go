package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"subtrack/internal/backend"
	"subtrack/internal/cache"
	"subtrack/internal/cli"
	"subtrack/internal/config"
	apphttp "subtrack/internal/http"
	applog "subtrack/internal/log"
	"subtrack/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)
	cli.MustValidate(logger, cfg.Validate)

	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	cacheLogger := logger.WithComponent(applog.ComponentCache).Logger
	statsCache, cacheCleanup := backend.NewStatsCache(ctx, cfg, cacheLogger)
	publisher, publisherCleanup := backend.NewChangePublisher(cfg, logger.Logger)

	statsSvc := services.NewStatsService(result.Store, statsCache)
	subSvc := services.NewSubscriptionService(result.Store, publisher, statsSvc, cfg.DefaultCurrency)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	manager := cache.NewManager(cacheLogger)
	if cleaner, ok := statsCache.(cache.Cleaner); ok {
		manager.Register(cleaner)
	}
	manager.Start(sweepCtx, time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, subSvc, statsSvc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		stopSweep()
		manager.Wait()

		closeAll(logger, []namedCleanup{
			{"publisher", publisherCleanup},
			{"cache", cacheCleanup},
			{"backend", result.Cleanup},
		})
	})

	logger.Info("Starting subtrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"default_currency", cfg.DefaultCurrency)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

type namedCleanup struct {
	name    string
	cleanup backend.CleanupFunc
}

// closeAll releases resources in order, logging failures.
func closeAll(logger *applog.Logger, resources []namedCleanup) {
	for _, r := range resources {
		if r.cleanup == nil {
			continue
		}
		if err := r.cleanup(); err != nil {
			logger.Warn("Cleanup failed", "resource", r.name, "error", err)
		}
	}
}
