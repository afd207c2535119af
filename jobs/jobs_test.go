package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refill-ledger/ledger/internal/api"
	jobmetrics "github.com/refill-ledger/ledger/internal/jobs"
	"github.com/refill-ledger/ledger/internal/ledger"
)

type stubReminderBackend struct {
	settings  ledger.Settings
	balances  []ledger.OutstandingBalance
	reminders map[string][]ledger.Reminder
	createErr map[string]error
	listErr   error

	created []api.ReminderInput
	keys    []string
}

func (s *stubReminderBackend) CurrentSettings(context.Context) (ledger.Settings, error) {
	return s.settings, nil
}

func (s *stubReminderBackend) ListOutstanding(context.Context) ([]ledger.OutstandingBalance, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.balances, nil
}

func (s *stubReminderBackend) ListReminders(_ context.Context, customerID string) ([]ledger.Reminder, error) {
	return s.reminders[customerID], nil
}

func (s *stubReminderBackend) CreateReminder(_ context.Context, in api.ReminderInput, opts ...api.RequestOption) (ledger.Reminder, error) {
	if err := s.createErr[in.CustomerID]; err != nil {
		return ledger.Reminder{}, err
	}
	header := http.Header{}
	for _, opt := range opts {
		opt(header)
	}
	s.created = append(s.created, in)
	s.keys = append(s.keys, header.Get("Idempotency-Key"))
	return ledger.Reminder{CustomerID: in.CustomerID, Message: in.Message}, nil
}

var (
	scanNow = time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC)
	longAgo = scanNow.AddDate(0, -2, 0)
)

func days(n int) *int { return &n }

func newScanFixture() (*stubReminderBackend, *OverdueScanJob, *jobmetrics.Metrics) {
	backend := &stubReminderBackend{
		settings: ledger.Settings{DaysBeforeOverdue: 7},
		balances: []ledger.OutstandingBalance{
			{CustomerID: "late", CustomerName: "Ana", TotalOwed: decimal.NewFromInt(300), DaysPastDue: days(10)},
			{CustomerID: "fresh", CustomerName: "Ben", TotalOwed: decimal.NewFromInt(50), DaysPastDue: days(0), OldestDebtDate: &longAgo},
			{CustomerID: "paid", CustomerName: "Cora", TotalOwed: decimal.Zero, DaysPastDue: days(40)},
			{CustomerID: "reminded", CustomerName: "Dan", TotalOwed: decimal.NewFromInt(75), DaysPastDue: days(3)},
		},
		reminders: map[string][]ledger.Reminder{
			"reminded": {{CustomerID: "reminded", CreatedAt: scanNow.Add(-2 * time.Hour)}},
			"late":     {{CustomerID: "late", CreatedAt: scanNow.Add(-48 * time.Hour)}},
		},
		createErr: map[string]error{},
	}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewOverdueScanJob(backend, nil, metrics)
	job.clock = func() time.Time { return scanNow }
	return backend, job, metrics
}

func TestOverdueScanRemindsOverdueCustomersOnce(t *testing.T) {
	backend, job, _ := newScanFixture()

	result, err := job.Run(context.Background(), OverdueScanPayload{})
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Overdue: 2, Created: 1, Skipped: 1}, result)

	require.Len(t, backend.created, 1)
	assert.Equal(t, "late", backend.created[0].CustomerID)
	assert.Contains(t, backend.created[0].Message, "₱300.00")
	assert.Contains(t, backend.created[0].Message, "10 days overdue")
	assert.NotEmpty(t, backend.keys[0])
}

func TestOverdueScanKeysAreStablePerDay(t *testing.T) {
	assert.Equal(t, reminderKey("late", scanNow), reminderKey("late", scanNow.Add(time.Hour)))
	assert.NotEqual(t, reminderKey("late", scanNow), reminderKey("late", scanNow.Add(24*time.Hour)))
	assert.NotEqual(t, reminderKey("late", scanNow), reminderKey("other", scanNow))
}

func TestOverdueScanMinDaysAndDryRun(t *testing.T) {
	backend, job, _ := newScanFixture()
	result, err := job.Run(context.Background(), OverdueScanPayload{MinDaysOverdue: 5, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Overdue)
	assert.Empty(t, backend.created)
}

func TestOverdueScanCountsFailuresWithoutAborting(t *testing.T) {
	backend, job, _ := newScanFixture()
	backend.reminders = nil
	backend.createErr["late"] = errors.New("backend unavailable")

	result, err := job.Run(context.Background(), OverdueScanPayload{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Created)
	assert.Len(t, backend.created, 1)
}

func TestOverdueScanFailsWhenBalancesUnavailable(t *testing.T) {
	backend, job, _ := newScanFixture()
	backend.listErr = errors.New("timeout")

	task, err := NewOverdueScanTask(OverdueScanPayload{})
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestOverdueScanRejectsBadPayload(t *testing.T) {
	_, job, _ := newScanFixture()
	err := job.Handle(context.Background(), asynq.NewTask(TaskOverdueScan, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type stubWarmer struct {
	presets []string
	err     error
}

func (s *stubWarmer) Warm(_ context.Context, presets ...string) error {
	s.presets = presets
	return s.err
}

func TestDashboardWarmupUsesDefaultPresets(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewDashboardWarmupJob(warmer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, DefaultWarmupPresets, warmer.presets)

	task, err = NewDashboardWarmupTask(DashboardWarmupPayload{Presets: []string{"30d"}})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"30d"}, warmer.presets)

	warmer.err = errors.New("cache down")
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestTaskByName(t *testing.T) {
	task, err := TaskByName(TaskOverdueScan)
	require.NoError(t, err)
	assert.Equal(t, TaskOverdueScan, task.Type())

	var payload OverdueScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))

	_, err = TaskByName("mail:send")
	assert.Error(t, err)

	schedule, err := Schedule()
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, OverdueScanCron, schedule[0].Spec)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestJobsHealth(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, nil).MountRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"pending":3`)

	r = chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("redis down")}, nil).MountRoutes(r)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestJobMetricsTrackOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	_, job, _ := newScanFixture()
	job.Metrics = metrics

	_, err := job.Run(context.Background(), OverdueScanPayload{})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "ledger_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
