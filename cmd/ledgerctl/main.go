package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/api"
	"github.com/refill-ledger/ledger/internal/app"
	"github.com/refill-ledger/ledger/internal/cli"
	"github.com/refill-ledger/ledger/internal/dates"
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
	// Command output owns stdout.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	client, err := api.New(api.Options{
		BaseURL: cfg.APIURL,
		Timeout: cfg.APITimeout,
		Tokens:  api.NewFileTokenStore(cfg.TokenPath()),
		Logger:  logger,
	})
	if err != nil {
		logger.Error("init api client", slog.Any("error", err))
		os.Exit(1)
	}

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Debug("job client close", slog.Any("error", err))
		}
	}()

	env := &cli.Env{
		Backend:  client,
		Jobs:     jobClient,
		Logger:   logger,
		Clock:    dates.SystemClock,
		Out:      os.Stdout,
		Username: cfg.APIUsername,
		Password: cfg.APIPassword,
	}
	if err := cli.Execute(ctx, env, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
