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
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/analytics"
	"github.com/refill-ledger/ledger/internal/api"
	"github.com/refill-ledger/ledger/internal/app"
	"github.com/refill-ledger/ledger/internal/dashboard"
	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/observability"
	"github.com/refill-ledger/ledger/internal/platform/cache"
	"github.com/refill-ledger/ledger/internal/querycache"
	"github.com/refill-ledger/ledger/internal/view"
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
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, running without shared cache", slog.Any("error", err))
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	queryCache := querycache.New(redisClient, cfg.CacheTTL, logger)
	if err := queryCache.Listen(ctx, func(ns querycache.Namespace, _ int64) {
		metrics.ObserveCacheBump(string(ns))
	}); err != nil {
		logger.Warn("querycache listen", slog.Any("error", err))
	}

	var tokens api.TokenStore = api.NewFileTokenStore(cfg.TokenPath())
	if redisClient != nil {
		tokens = api.NewRedisTokenStore(redisClient, "ledger:session:")
	}
	client, err := api.New(api.Options{
		BaseURL:     cfg.APIURL,
		Timeout:     cfg.APITimeout,
		Tokens:      tokens,
		Logger:      logger,
		Metrics:     metrics,
		Credentials: cfg.ServiceCredentials(),
		OnSessionExpired: func() {
			logger.Warn("backend session expired")
		},
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

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("load templates", slog.Any("error", err))
		os.Exit(1)
	}

	analyticsService := analytics.NewService(client, queryCache, dates.SystemClock)
	dashboardHandler := dashboard.NewHandler(dashboard.Deps{
		Logger:    logger,
		Backend:   client,
		Insights:  analyticsService,
		Cache:     queryCache,
		Lock:      dashboard.NewCreditLock(redisClient, dashboard.DefaultLockTTL),
		Observer:  metrics,
		Clock:     dates.SystemClock,
		Templates: templates,
	})

	var jobHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:    logger,
		Config:    cfg,
		Metrics:   metrics,
		Dashboard: dashboardHandler,
		Jobs:      jobHandler,
		Ready:     readyChecks(redisClient, client),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func readyChecks(redisClient *redis.Client, client *api.Client) map[string]app.ReadyCheck {
	checks := map[string]app.ReadyCheck{
		"backend": func(ctx context.Context) error {
			_, err := client.CurrentSettings(ctx)
			return err
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
