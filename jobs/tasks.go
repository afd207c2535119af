package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueScan creates collection reminders for overdue customers.
	TaskOverdueScan = "reminders:overdue-scan"
	// TaskDashboardWarmup precomputes the dashboard into the query cache.
	TaskDashboardWarmup = "dashboard:warmup"
)

// Cron specs, evaluated in Asia/Manila.
const (
	OverdueScanCron     = "0 8 * * *"
	DashboardWarmupCron = "*/15 * * * *"
)

// ReminderCooldown is how long a reminded customer is left alone.
const ReminderCooldown = 24 * time.Hour

// OverdueScanPayload tunes one scan. Zero values use the settings.
type OverdueScanPayload struct {
	MinDaysOverdue int  `json:"min_days_overdue,omitempty"`
	DryRun         bool `json:"dry_run,omitempty"`
}

// DashboardWarmupPayload lists the range presets to precompute.
type DashboardWarmupPayload struct {
	Presets []string `json:"presets,omitempty"`
}

// DefaultWarmupPresets are the ranges the dashboard opens with.
var DefaultWarmupPresets = []string{"today", "week", "month"}

// NewOverdueScanTask constructs the overdue scan task. At most one scan is
// queued per cooldown window.
func NewOverdueScanTask(payload OverdueScanPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueScan, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Unique(ReminderCooldown),
	), nil
}

// NewDashboardWarmupTask constructs the warmup task.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(1),
		asynq.Timeout(2*time.Minute),
	), nil
}

// TaskByName builds a task with default payload, for manual triggers.
func TaskByName(name string) (*asynq.Task, error) {
	switch name {
	case TaskOverdueScan:
		return NewOverdueScanTask(OverdueScanPayload{})
	case TaskDashboardWarmup:
		return NewDashboardWarmupTask(DashboardWarmupPayload{})
	default:
		return nil, fmt.Errorf("jobs: unknown task %q", name)
	}
}

// Schedule returns the cron registrations of the worker.
func Schedule() ([]CronRegistration, error) {
	scan, err := NewOverdueScanTask(OverdueScanPayload{})
	if err != nil {
		return nil, err
	}
	warm, err := NewDashboardWarmupTask(DashboardWarmupPayload{})
	if err != nil {
		return nil, err
	}
	return []CronRegistration{
		{Spec: OverdueScanCron, Task: scan},
		{Spec: DashboardWarmupCron, Task: warm},
	}, nil
}
