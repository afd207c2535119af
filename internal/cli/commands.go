package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/refill-ledger/ledger/internal/analytics"
	"github.com/refill-ledger/ledger/internal/api"
	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/export"
	"github.com/refill-ledger/ledger/internal/ledger"
	"github.com/refill-ledger/ledger/internal/money"
)

func newLoginCmd(env *Env) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				username = env.Username
			}
			if password == "" {
				password = env.Password
			}
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}
			user, err := env.Backend.Login(cmd.Context(), api.Credentials{Username: username, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Username, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username (defaults to LEDGER_API_USERNAME)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (defaults to LEDGER_API_PASSWORD)")
	return cmd
}

func newLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := env.Backend.Logout(cmd.Context()); err != nil {
				env.logger().Warn("logout", slog.Any("error", err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := env.Backend.Me(cmd.Context())
			if err != nil {
				return err
			}
			name := user.Username
			if user.FullName != "" {
				name = fmt.Sprintf("%s (%s)", user.FullName, user.Username)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s, role %s\n", name, user.Role)
			return nil
		},
	}
}

func newCustomersCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{Use: "customers", Short: "Customer commands"}
	var location string
	list := &cobra.Command{
		Use:   "list",
		Short: "List customers with their outstanding balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := ledger.Location(strings.ToUpper(location))
			if filter != "" && !filter.Valid() {
				return fmt.Errorf("unknown location %q", location)
			}
			customers, err := env.Backend.AllCustomers(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "NAME", "LOCATION", "BALANCE", "STATUS")
			for _, c := range customers {
				if filter != "" && c.Location != filter {
					continue
				}
				status := string(c.CollectionStatus)
				if status == "" {
					status = string(ledger.CollectionActive)
				}
				row(tw, c.ID, c.Name, string(c.Location), money.FormatCurrency(c.OutstandingBalance), status)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&location, "location", "", "only customers of this location")
	cmd.AddCommand(list)
	return cmd
}

func newSalesCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{Use: "sales", Short: "Sale commands"}
	var from, to string
	list := &cobra.Command{
		Use:   "list",
		Short: "List sales between two dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := resolveRange(env, "", from, to)
			if err != nil {
				return err
			}
			sales, err := env.Backend.SalesInRange(cmd.Context(), r)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tw := newTable(out, "DATE", "CUSTOMER", "QTY", "TYPE", "TOTAL")
			total := decimal.Zero
			for _, s := range sales {
				customer := s.CustomerID
				if s.Customer != nil && s.Customer.Name != "" {
					customer = s.Customer.Name
				}
				row(tw, s.DateKey(), customer, fmt.Sprint(s.Quantity), string(s.PaymentType), money.FormatCurrency(s.Total))
				total = total.Add(s.Total)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d sales, %s total (%s)\n", len(sales), money.FormatCurrency(total), r)
			return nil
		},
	}
	list.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (default today)")
	list.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default --from)")
	cmd.AddCommand(list)
	return cmd
}

func newMetricsCmd(env *Env) *cobra.Command {
	var preset, from, to string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show dashboard metrics for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := resolveRange(env, preset, from, to)
			if err != nil {
				return err
			}
			service := analytics.NewService(env.Backend, nil, env.Clock)
			board, err := service.Dashboard(cmd.Context(), r)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(board)
			}
			cur, change := board.Current, board.Change
			fmt.Fprintf(out, "Period %s (previous %s)\n", board.Range, board.Previous)
			tw := newTable(out, "METRIC", "VALUE", "CHANGE")
			row(tw, "Revenue", money.FormatCurrency(cur.Revenue), money.FormatPercent(change.Revenue, 1))
			row(tw, "Gallons", fmt.Sprint(cur.Quantity), money.FormatPercent(change.Quantity, 1))
			row(tw, "Transactions", fmt.Sprint(cur.TransactionCount), money.FormatPercent(change.TransactionCount, 1))
			row(tw, "Active customers", fmt.Sprint(cur.ActiveCustomers), money.FormatPercent(change.ActiveCustomers, 1))
			row(tw, "Average sale", money.FormatCurrency(cur.AverageSale), money.FormatPercent(change.AverageSale, 1))
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Outstanding %s across %d customers, %d overdue\n",
				board.Outstanding.Total, board.Outstanding.Customers, board.Outstanding.Overdue)
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "range", "today", "today, week, month, 7d or 30d")
	cmd.Flags().StringVar(&from, "from", "", "custom range start, overrides --range")
	cmd.Flags().StringVar(&to, "to", "", "custom range end")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw dashboard payload")
	return cmd
}

func newCreditCheckCmd(env *Env) *cobra.Command {
	var customerID string
	var quantity int
	cmd := &cobra.Command{
		Use:   "credit-check",
		Short: "Check whether a credit sale fits the customer's limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if customerID == "" {
				return errors.New("--customer is required")
			}
			if quantity <= 0 {
				return errors.New("--quantity must be positive")
			}
			ctx := cmd.Context()
			customer, err := env.Backend.GetCustomer(ctx, customerID)
			if api.IsNotFound(err) {
				return fmt.Errorf("customer %q: %w", customerID, ledger.ErrNotFound)
			}
			if err != nil {
				return err
			}
			settings, err := env.Backend.CurrentSettings(ctx)
			if err != nil {
				return err
			}
			owed := decimal.Zero
			bal, err := env.Backend.OutstandingBalance(ctx, customerID)
			if err != nil {
				return err
			}
			if bal != nil {
				owed = bal.TotalOwed
			}
			res, err := ledger.CheckCustomerCredit(&customer, settings, owed, quantity)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tw := newTable(out, "CUSTOMER", "SALE", "BALANCE", "NEW BALANCE", "LIMIT", "USED")
			limit := "none"
			if res.CreditLimit.IsPositive() {
				limit = money.FormatCurrency(res.CreditLimit)
			}
			row(tw, customer.Name, money.FormatCurrency(res.SaleAmount), money.FormatCurrency(res.CurrentBalance),
				money.FormatCurrency(res.NewBalance), limit, money.FormatPercent(res.Utilization, 1))
			if err := tw.Flush(); err != nil {
				return err
			}
			if msg := res.Message(); msg != "" {
				fmt.Fprintln(out, msg)
			}
			if res.Blocked() {
				return ledger.ErrCreditLimitExceeded
			}
			fmt.Fprintf(out, "Result: %s\n", res.Level)
			return nil
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "gallons to sell on credit")
	return cmd
}

func newReportCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Report exports"}
	var date, outPath string
	daily := &cobra.Command{
		Use:   "daily",
		Short: "Export the daily payment report as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date == "" {
				date = dates.Today(env.Clock.Now())
			}
			if _, err := dates.ParseKey(date); err != nil {
				return fmt.Errorf("invalid --date %q: %w", date, err)
			}
			report, err := env.Backend.DailyReport(cmd.Context(), date)
			if err != nil {
				return err
			}
			if outPath == "-" {
				return export.WriteDailyPaymentsCSV(cmd.OutOrStdout(), report)
			}
			if outPath == "" {
				outPath = export.DailyFilename(date)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := export.WriteDailyPaymentsCSV(f, report); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d payments to %s\n", len(report.Payments), outPath)
			return nil
		},
	}
	daily.Flags().StringVar(&date, "date", "", "business day, YYYY-MM-DD (default today)")
	daily.Flags().StringVar(&outPath, "out", "", "output file, - for stdout (default daily-report-<date>.csv)")
	cmd.AddCommand(daily)
	return cmd
}

func newPaymentsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{Use: "payments", Short: "Payment commands"}
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Reconcile paid amounts against transaction history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payments, err := env.Backend.AllPayments(cmd.Context(), api.PaymentQuery{})
			if err != nil {
				return err
			}
			var found []ledger.Discrepancy
			for _, p := range payments {
				if d, ok := ledger.Reconcile(p); ok {
					found = append(found, d)
				}
			}
			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintf(out, "%d payments verified, no discrepancies\n", len(payments))
				return nil
			}
			tw := newTable(out, "PAYMENT", "PAID", "TRANSACTIONS", "OVERPAID")
			for _, d := range found {
				row(tw, d.PaymentID, money.FormatCurrency(d.PaidAmount), money.FormatCurrency(d.TransactionTotal), fmt.Sprint(d.Overpaid))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			return fmt.Errorf("%w: %d of %d", ErrDiscrepancies, len(found), len(payments))
		},
	}
	cmd.AddCommand(verify)
	return cmd
}

func newJobsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{Use: "jobs", Short: "Background job commands"}
	trigger := &cobra.Command{
		Use:   "trigger <name>",
		Short: "Enqueue a background job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Jobs == nil {
				return errors.New("job queue not configured")
			}
			info, err := env.Jobs.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %s as %s on queue %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	cmd.AddCommand(trigger)
	return cmd
}

// resolveRange prefers an explicit --from/--to over the named preset.
func resolveRange(env *Env, preset, from, to string) (dates.Range, error) {
	if from == "" && to == "" {
		return dates.Preset(preset, env.Clock.Now())
	}
	if from == "" {
		from = to
	}
	if to == "" {
		to = from
	}
	return dates.NewRange(from, to)
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row(tw, headers...)
	return tw
}

func row(tw *tabwriter.Writer, cells ...string) {
	fmt.Fprintln(tw, strings.Join(cells, "\t"))
}
