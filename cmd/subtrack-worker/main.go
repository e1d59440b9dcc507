package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"subtrack/internal/amqp"
	"subtrack/internal/backend"
	"subtrack/internal/cache"
	"subtrack/internal/cli"
	"subtrack/internal/config"
	applog "subtrack/internal/log"
	"subtrack/internal/services"
	gsheet "subtrack/internal/sheets/google"
	"subtrack/internal/stats"
	"subtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	cli.MustValidate(logger, cfg.Validate, cfg.ValidateExport)

	logger.Info("Starting subtrack-worker")

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
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	cacheLogger := logger.WithComponent(applog.ComponentCache).Logger
	statsCache, cacheCleanup := backend.NewStatsCache(ctx, cfg, cacheLogger)
	if cacheCleanup != nil {
		defer cacheCleanup()
	}
	statsSvc := services.NewStatsService(result.Store, statsCache)

	credentials, err := cfg.ServiceAccountCredentials()
	if err != nil {
		logger.Error("Failed to read Google service account credentials", "error", err)
		os.Exit(1)
	}
	sheetsClient, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleStatsSheetName, credentials)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		applog.FieldSheet, cfg.GoogleStatsSheetName)

	// ValidateExport has already checked the range.
	rng, _ := stats.ParseTimeRange(cfg.ExportTimeRange)
	exportWorker := worker.NewExportWorker(statsSvc, sheetsClient, services.NewRenewalProcessor(result.Store), worker.Config{
		TimeRange: rng,
		Interval:  cfg.ExportInterval,
	})

	var consumer *amqp.Client
	if cfg.AMQPURL != "" {
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
	} else {
		logger.Info("AMQP disabled, exporting on the interval only")
	}

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := exportWorker.Stop(ctx); err != nil {
			logger.Warn("Export worker stop failed", "error", err)
		}
	})

	if err := exportWorker.Start(runCtx); err != nil {
		logger.Error("Failed to start export worker", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(runCtx)

	if consumer != nil {
		g.Go(func() error {
			err := consumer.ConsumeSubscriptionChanges(gctx, exportWorker.HandleChangeMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		manager := cache.NewManager(cacheLogger)
		if cleaner, ok := statsCache.(cache.Cleaner); ok {
			manager.Register(cleaner)
		}
		manager.Start(gctx, time.Minute)
		manager.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", "error", err)
		_ = exportWorker.Stop(context.Background())
		return
	}

	cli.WaitForShutdown(runCtx, done)
}
