// Package cli implements ledgerctl, the operator command line for the refill
// ledger backend.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/refill-ledger/ledger/internal/api"
	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/ledger"
)

// Backend is the part of the API client the commands use.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (ledger.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (ledger.User, error)
	GetCustomer(ctx context.Context, id string) (ledger.Customer, error)
	AllCustomers(ctx context.Context) ([]ledger.Customer, error)
	SalesInRange(ctx context.Context, r dates.Range) ([]ledger.Sale, error)
	CurrentSettings(ctx context.Context) (ledger.Settings, error)
	OutstandingBalance(ctx context.Context, customerID string) (*ledger.OutstandingBalance, error)
	ListOutstanding(ctx context.Context) ([]ledger.OutstandingBalance, error)
	DailyReport(ctx context.Context, date string) (ledger.DailyPaymentReport, error)
	AllPayments(ctx context.Context, q api.PaymentQuery) ([]ledger.Payment, error)
}

// JobTrigger enqueues background jobs by name.
type JobTrigger interface {
	Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error)
}

// ErrDiscrepancies is returned by payments verify when any payment fails
// reconciliation, so scripts can rely on the exit code.
var ErrDiscrepancies = errors.New("payments with discrepancies found")

// Env carries what the commands need at run time.
type Env struct {
	Backend Backend
	Jobs    JobTrigger
	Logger  *slog.Logger
	Clock   dates.Clock
	Out     io.Writer

	// Default credentials for login when flags are omitted.
	Username string
	Password string
}

// NewRootCommand assembles the ledgerctl command tree.
func NewRootCommand(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the refill ledger from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if env.Out != nil {
		root.SetOut(env.Out)
	}
	root.AddCommand(
		newLoginCmd(env),
		newLogoutCmd(env),
		newWhoamiCmd(env),
		newCustomersCmd(env),
		newSalesCmd(env),
		newMetricsCmd(env),
		newCreditCheckCmd(env),
		newReportCmd(env),
		newPaymentsCmd(env),
		newJobsCmd(env),
	)
	return root
}

// Execute runs the command tree with args and reports a user-facing error.
func Execute(ctx context.Context, env *Env, args []string) error {
	root := NewRootCommand(env)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if errors.Is(err, api.ErrSessionExpired) || errors.Is(err, api.ErrNoRefreshToken) {
		return fmt.Errorf("not logged in, run `ledgerctl login`: %w", err)
	}
	return err
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
