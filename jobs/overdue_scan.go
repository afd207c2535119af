package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/refill-ledger/ledger/internal/api"
	"github.com/refill-ledger/ledger/internal/dates"
	jobmetrics "github.com/refill-ledger/ledger/internal/jobs"
	"github.com/refill-ledger/ledger/internal/ledger"
	"github.com/refill-ledger/ledger/internal/money"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// reminderNamespace seeds the per customer per day idempotency keys.
var reminderNamespace = uuid.MustParse("6f1c3a52-9a0e-4c1b-8d4e-2b7f5e9a1d30")

// ReminderBackend is what the scan needs from the ledger API.
type ReminderBackend interface {
	CurrentSettings(ctx context.Context) (ledger.Settings, error)
	ListOutstanding(ctx context.Context) ([]ledger.OutstandingBalance, error)
	ListReminders(ctx context.Context, customerID string) ([]ledger.Reminder, error)
	CreateReminder(ctx context.Context, in api.ReminderInput, opts ...api.RequestOption) (ledger.Reminder, error)
}

// ScanResult summarises one overdue scan.
type ScanResult struct {
	Overdue int `json:"overdue"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// OverdueScanJob logs one reminder per overdue customer.
type OverdueScanJob struct {
	Backend ReminderBackend
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   dates.Clock
}

// NewOverdueScanJob wires dependencies for the scan handler.
func NewOverdueScanJob(backend ReminderBackend, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{Backend: backend, Logger: logger, Metrics: metrics, clock: dates.SystemClock}
}

// Handle processes overdue scan tasks.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Backend == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("overdue scan: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run performs the scan. A failed reminder is logged and counted but does
// not stop the others; the run fails only when nothing could be read.
func (j *OverdueScanJob) Run(ctx context.Context, payload OverdueScanPayload) (result ScanResult, err error) {
	tracker := j.metrics().Track(TaskOverdueScan)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.Bool("dry_run", payload.DryRun))
	started := time.Now()
	now := j.clock.Now()

	settings, err := j.Backend.CurrentSettings(ctx)
	if err != nil {
		logger.Error("load settings", slog.Any("error", err))
		return result, err
	}
	balances, err := j.Backend.ListOutstanding(ctx)
	if err != nil {
		logger.Error("load outstanding balances", slog.Any("error", err))
		return result, err
	}

	for _, bal := range balances {
		if !bal.TotalOwed.IsPositive() {
			continue
		}
		days := ledger.OverdueDays(bal, now, settings.DaysBeforeOverdue)
		if days <= 0 || days < payload.MinDaysOverdue {
			continue
		}
		result.Overdue++
		clog := logger.With(slog.String("customer_id", bal.CustomerID), slog.Int("days_overdue", days))

		recent, rerr := j.remindedSince(ctx, bal.CustomerID, now.Add(-ReminderCooldown))
		if rerr != nil {
			result.Failed++
			clog.Warn("list reminders", slog.Any("error", rerr))
			continue
		}
		if recent {
			result.Skipped++
			continue
		}
		if payload.DryRun {
			clog.Info("would remind customer")
			continue
		}
		_, cerr := j.Backend.CreateReminder(ctx, api.ReminderInput{
			CustomerID: bal.CustomerID,
			Message:    reminderMessage(bal, days),
			Channel:    "SYSTEM",
		}, api.WithIdempotencyKey(reminderKey(bal.CustomerID, now)))
		if cerr != nil {
			result.Failed++
			clog.Warn("create reminder", slog.Any("error", cerr))
			continue
		}
		result.Created++
	}

	m := j.metrics()
	m.AddReminders("created", result.Created)
	m.AddReminders("skipped", result.Skipped)
	m.AddReminders("failed", result.Failed)
	logger.Info("completed overdue scan",
		slog.Int("overdue", result.Overdue),
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", time.Since(started)))
	return result, nil
}

func (j *OverdueScanJob) remindedSince(ctx context.Context, customerID string, since time.Time) (bool, error) {
	reminders, err := j.Backend.ListReminders(ctx, customerID)
	if err != nil {
		return false, err
	}
	for _, r := range reminders {
		if r.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func reminderMessage(bal ledger.OutstandingBalance, days int) string {
	name := bal.CustomerName
	if name == "" {
		name = "Customer"
	}
	return fmt.Sprintf("%s has %s outstanding, %d days overdue.", name, money.FormatCurrency(bal.TotalOwed), days)
}

// reminderKey is stable for a customer within one Manila day, so a retried
// scan cannot log the same reminder twice.
func reminderKey(customerID string, now time.Time) string {
	return uuid.NewSHA1(reminderNamespace, []byte(customerID+"|"+dates.Today(now))).String()
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskOverdueScan))
	}
	return slog.Default().With(slog.String("job", TaskOverdueScan))
}

func (j *OverdueScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
