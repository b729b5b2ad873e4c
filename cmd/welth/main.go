package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"welth/internal/amqp"
	"welth/internal/config"
	"welth/internal/gate"
	apphttp "welth/internal/http"
	applog "welth/internal/log"
	"welth/internal/receipt"
	"welth/internal/services"
	"welth/internal/storage"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

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

	// AMQP is optional; without it each instance only invalidates its own
	// view cache.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		queue := cfg.AMQPQueue
		if queue == "" {
			host, _ := os.Hostname()
			queue = "welth.views." + host
		}
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, queue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without view fan-out", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", queue)
		}
	} else {
		logger.Info("AMQP disabled, view invalidation is local only")
	}

	limiter := gate.NewLimiter(gate.LimiterConfig{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		CleanupInterval:   5 * time.Minute,
	})
	defer limiter.Stop()

	identity := gate.NewUpstreamIdentity(store)

	ledger := services.NewLedgerService(store, limiter, amqpClient)
	accounts := services.NewAccountService(store, limiter, amqpClient)
	budgets := services.NewBudgetService(store, limiter)

	// Receipt scanning needs a Gemini API key; without one the endpoint
	// reports itself unconfigured.
	var scanner apphttp.ReceiptScanner
	if os.Getenv("GEMINI_API_KEY") != "" {
		client, err := genai.NewClient(context.Background(), nil)
		if err != nil {
			logger.Warn("Failed to initialize Gemini client, receipt scanning disabled", "error", err)
		} else {
			extractor := receipt.NewGeminiExtractor(client, cfg.GeminiModel)
			scanner = receipt.NewScanner(extractor, limiter, cfg.MaxReceiptBytes)
			logger.Info("Receipt scanning enabled", "model", cfg.GeminiModel)
		}
	} else {
		logger.Info("GEMINI_API_KEY not set, receipt scanning disabled")
	}

	srv := apphttp.NewServer(":"+cfg.Port, identity, ledger, accounts, budgets, scanner, nil)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting welth server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeStaleViews(ctx, srv.HandleStaleViews)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
