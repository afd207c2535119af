package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/dates"
)

// Remaining is what is still owed on the payment, never negative.
func (p Payment) Remaining() decimal.Decimal {
	return decimal.Max(p.Amount.Sub(p.PaidAmount), decimal.Zero)
}

// Settled reports whether the payment is fully paid.
func (p Payment) Settled() bool {
	return p.PaidAmount.GreaterThanOrEqual(p.Amount)
}

// ApplyPayment validates a partial payment of amount and returns the
// payment as it would look afterwards. The receiver is not modified.
func ApplyPayment(p Payment, amount decimal.Decimal) (Payment, error) {
	if !amount.IsPositive() {
		return p, ErrInvalidAmount
	}
	if amount.GreaterThan(p.Remaining()) {
		return p, fmt.Errorf("%w: paying %s against %s remaining", ErrOverpayment, amount.StringFixed(2), p.Remaining().StringFixed(2))
	}
	next := p
	next.PaidAmount = p.PaidAmount.Add(amount)
	if next.Settled() {
		next.Status = StatusPaid
	} else {
		next.Status = StatusPartial
	}
	return next, nil
}

// DeriveStatus recomputes a payment's status at now. COLLECTION is only set
// by staff and is kept while anything remains unpaid.
func DeriveStatus(p Payment, now time.Time, daysBeforeOverdue int) PaymentStatus {
	if p.Settled() {
		return StatusPaid
	}
	if p.Status == StatusCollection {
		return StatusCollection
	}
	if isPastDue(p, now, daysBeforeOverdue) {
		return StatusOverdue
	}
	if p.PaidAmount.IsPositive() {
		return StatusPartial
	}
	return StatusUnpaid
}

func isPastDue(p Payment, now time.Time, daysBeforeOverdue int) bool {
	today := dates.Today(now)
	if p.DueDate != nil {
		return dates.DateKey(*p.DueDate) < today
	}
	if p.CreatedAt.IsZero() {
		return false
	}
	due := dates.StartOfDay(p.CreatedAt).AddDate(0, 0, daysBeforeOverdue)
	return dates.DateKey(due) < today
}

// DaysPastDue counts days since the due date, zero when not yet due.
func DaysPastDue(p Payment, now time.Time, daysBeforeOverdue int) int {
	var due time.Time
	switch {
	case p.DueDate != nil:
		due = *p.DueDate
	case !p.CreatedAt.IsZero():
		due = dates.StartOfDay(p.CreatedAt).AddDate(0, 0, daysBeforeOverdue)
	default:
		return 0
	}
	n, err := dates.DaysBetween(dates.DateKey(due), dates.Today(now))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Discrepancy describes a payment whose paid amount disagrees with its
// transaction history.
type Discrepancy struct {
	PaymentID        string          `json:"paymentId"`
	PaidAmount       decimal.Decimal `json:"paidAmount"`
	TransactionTotal decimal.Decimal `json:"transactionTotal"`
	Overpaid         bool            `json:"overpaid"`
}

// Reconcile compares PaidAmount with the sum of the payment's transactions.
// Payments without transaction history are not checked.
func Reconcile(p Payment) (Discrepancy, bool) {
	if len(p.Transactions) == 0 {
		if p.PaidAmount.GreaterThan(p.Amount) {
			return Discrepancy{PaymentID: p.ID, PaidAmount: p.PaidAmount, Overpaid: true}, true
		}
		return Discrepancy{}, false
	}
	total := decimal.Zero
	for _, tx := range p.Transactions {
		total = total.Add(tx.Amount)
	}
	overpaid := p.PaidAmount.GreaterThan(p.Amount) || total.GreaterThan(p.Amount)
	if total.Equal(p.PaidAmount) && !overpaid {
		return Discrepancy{}, false
	}
	return Discrepancy{PaymentID: p.ID, PaidAmount: p.PaidAmount, TransactionTotal: total, Overpaid: overpaid}, true
}

// SortTransactions orders a payment's transactions oldest first.
func SortTransactions(txs []PaymentTransaction) {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.Before(txs[j].CreatedAt) })
}
