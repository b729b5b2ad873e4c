package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"welth/internal/amqp"
	"welth/internal/config"
	applog "welth/internal/log"
	"welth/internal/services"
	"welth/internal/storage"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	// Publish view invalidations so server instances drop stale dashboards
	// when occurrences land.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		host, _ := os.Hostname()
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, "welth.worker."+host)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without view fan-out", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	processor := services.NewRecurringProcessor(store, amqpClient)
	processor.SetBatchSize(cfg.RecurringBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	// Catch up on anything that came due while the worker was down.
	if count, err := processor.ProcessDue(ctx, time.Now()); err != nil {
		logger.Error("Initial processing failed", "error", err)
	} else {
		logger.Info("Initial processing complete", "occurrences_created", count)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received")
			return
		case now := <-ticker.C:
			count, err := processor.ProcessDue(ctx, now)
			if err != nil {
				logger.Error("Periodic processing failed", "error", err)
				continue
			}
			logger.Info("Periodic processing complete",
				"occurrences_created", count,
				"next_check", now.Add(cfg.RecurringInterval).Format("15:04:05"))
		}
	}
}
