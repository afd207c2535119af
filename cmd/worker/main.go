package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/analytics"
	"github.com/refill-ledger/ledger/internal/api"
	"github.com/refill-ledger/ledger/internal/app"
	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/observability"
	"github.com/refill-ledger/ledger/internal/platform/cache"
	"github.com/refill-ledger/ledger/internal/querycache"
	"github.com/refill-ledger/ledger/jobs"
)

func main() {
	// The backend reads money as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.TestMode {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil || redisClient == nil {
		logger.Error("connect redis", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	client, err := api.New(api.Options{
		BaseURL:     cfg.APIURL,
		Timeout:     cfg.APITimeout,
		Tokens:      api.NewRedisTokenStore(redisClient, "ledger:session:"),
		Logger:      logger,
		Metrics:     metrics,
		Credentials: cfg.ServiceCredentials(),
	})
	if err != nil {
		logger.Error("init api client", slog.Any("error", err))
		os.Exit(1)
	}
	if creds := cfg.ServiceCredentials(); creds != nil {
		if err := client.EnsureSession(ctx, *creds); err != nil {
			logger.Warn("backend login", slog.Any("error", err))
		}
	}

	queryCache := querycache.New(redisClient, cfg.CacheTTL, logger)
	analyticsService := analytics.NewService(client, queryCache, dates.SystemClock)

	overdueJob := jobs.NewOverdueScanJob(client, logger, metrics.Jobs)
	warmupJob := jobs.NewDashboardWarmupJob(analyticsService, logger, metrics.Jobs)

	schedule, err := jobs.Schedule()
	if err != nil {
		logger.Error("build schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskOverdueScan, Handler: overdueJob.Handle},
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
		},
		Cron: schedule,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("worker started", slog.Int("cron", len(schedule)))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
