package export

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/ledger"
)

// DailyFilename is the download name of a daily report.
func DailyFilename(date string) string {
	return fmt.Sprintf("daily-report-%s.csv", date)
}

// WriteDailyPaymentsCSV writes one row per payment of the report followed
// by the totals.
func WriteDailyPaymentsCSV(w io.Writer, report ledger.DailyPaymentReport) error {
	s := newCSVStreamer(w)
	if err := s.writeComment("# Report: Daily Payments"); err != nil {
		return err
	}
	if err := s.writeComment("# Date: " + report.Date); err != nil {
		return err
	}
	if err := s.writeRow("Payment ID", "Customer", "Location", "Created", "Amount", "Paid", "Remaining", "Status", "Method", "Notes"); err != nil {
		return err
	}
	for _, p := range report.Payments {
		name, location := customerCells(p.Customer, p.CustomerID)
		if err := s.writeRow(
			p.ID,
			name,
			location,
			dates.FormatAbsolute(p.CreatedAt),
			amount(p.Amount),
			amount(p.PaidAmount),
			amount(p.Remaining()),
			string(p.Status),
			string(p.Method),
			deref(p.Notes),
		); err != nil {
			return err
		}
	}
	sum := report.Summary
	if sum.Count == 0 && len(report.Payments) > 0 {
		sum = ledger.SummarizePayments(report.Payments)
	}
	if err := s.writeRow(); err != nil {
		return err
	}
	totals := [][]string{
		{"Totals", "Payments", strconv.Itoa(sum.Count)},
		{"Totals", "Amount", amount(sum.TotalAmount)},
		{"Totals", "Collected", amount(sum.TotalCollected)},
		{"Totals", "Outstanding", amount(sum.TotalOutstanding)},
	}
	methods := make([]string, 0, len(sum.ByMethod))
	for m := range sum.ByMethod {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	for _, m := range methods {
		totals = append(totals, []string{"Totals", "Collected " + m, amount(sum.ByMethod[ledger.PaymentMethod(m)])})
	}
	for _, row := range totals {
		if err := s.writeRow(row...); err != nil {
			return err
		}
	}
	return s.Close()
}

// WriteSalesCSV exports a sales list. customers resolves names when the
// sale rows do not embed their customer.
func WriteSalesCSV(w io.Writer, sales []ledger.Sale, customers []ledger.Customer) error {
	index := make(map[string]*ledger.Customer, len(customers))
	for i := range customers {
		index[customers[i].ID] = &customers[i]
	}
	s := newCSVStreamer(w)
	if err := s.writeComment("# Report: Sales"); err != nil {
		return err
	}
	if err := s.writeRow("Date", "Sale ID", "Customer", "Location", "Quantity", "Unit Price", "Total", "Payment Type", "Recorded By", "Notes"); err != nil {
		return err
	}
	quantity := 0
	total := decimal.Zero
	for _, sale := range sales {
		customer := sale.Customer
		if customer == nil {
			customer = index[sale.CustomerID]
		}
		name, location := customerCells(customer, sale.CustomerID)
		recordedBy := ""
		if sale.User != nil {
			recordedBy = sale.User.Username
		}
		if err := s.writeRow(
			sale.DateKey(),
			sale.ID,
			name,
			location,
			strconv.Itoa(sale.Quantity),
			amount(sale.UnitPrice),
			amount(sale.Total),
			string(sale.PaymentType),
			recordedBy,
			deref(sale.Notes),
		); err != nil {
			return err
		}
		quantity += sale.Quantity
		total = total.Add(sale.Total)
	}
	if err := s.writeRow(); err != nil {
		return err
	}
	if err := s.writeRow("Totals", strconv.Itoa(len(sales)), "", "", strconv.Itoa(quantity), "", amount(total)); err != nil {
		return err
	}
	return s.Close()
}

func customerCells(c *ledger.Customer, fallbackID string) (string, string) {
	if c == nil {
		return fallbackID, ""
	}
	return c.Name, string(c.Location)
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
