package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/dates"
)

// Aging bucket labels.
const (
	BucketCurrent = "current"
	Bucket1to30   = "1-30"
	Bucket31to60  = "31-60"
	Bucket61to90  = "61-90"
	BucketOver90  = "90+"
)

// Buckets lists the aging buckets in display order.
var Buckets = []string{BucketCurrent, Bucket1to30, Bucket31to60, Bucket61to90, BucketOver90}

// AgingBucketFor maps days past due to a bucket label.
func AgingBucketFor(daysPastDue int) string {
	switch {
	case daysPastDue <= 0:
		return BucketCurrent
	case daysPastDue <= 30:
		return Bucket1to30
	case daysPastDue <= 60:
		return Bucket31to60
	case daysPastDue <= 90:
		return Bucket61to90
	default:
		return BucketOver90
	}
}

// AgingBucket summarises outstanding debt inside one bucket.
type AgingBucket struct {
	Bucket    string          `json:"bucket"`
	Amount    decimal.Decimal `json:"amount"`
	Customers int             `json:"customers"`
}

// AgingReport is the aging breakdown of all outstanding balances.
type AgingReport struct {
	AsOf     string               `json:"asOf"`
	Buckets  []AgingBucket        `json:"buckets"`
	Total    decimal.Decimal      `json:"total"`
	Overdue  int                  `json:"overdueCustomers"`
	Balances []OutstandingBalance `json:"balances,omitempty"`
}

// BuildAging groups balances into buckets. When the backend omitted
// daysPastDue it is derived from the oldest debt date; missing amounts count
// as zero.
func BuildAging(balances []OutstandingBalance, now time.Time, daysBeforeOverdue int) AgingReport {
	index := make(map[string]int, len(Buckets))
	report := AgingReport{AsOf: dates.Today(now), Buckets: make([]AgingBucket, len(Buckets)), Total: decimal.Zero}
	for i, b := range Buckets {
		report.Buckets[i] = AgingBucket{Bucket: b, Amount: decimal.Zero}
		index[b] = i
	}
	for _, bal := range balances {
		if !bal.TotalOwed.IsPositive() {
			continue
		}
		days := OverdueDays(bal, now, daysBeforeOverdue)
		i := index[AgingBucketFor(days)]
		report.Buckets[i].Amount = report.Buckets[i].Amount.Add(bal.TotalOwed)
		report.Buckets[i].Customers++
		report.Total = report.Total.Add(bal.TotalOwed)
		if days > 0 {
			report.Overdue++
		}
	}
	return report
}

// OverdueDays is how far bal is past its overdue threshold. The backend's
// daysPastDue wins whenever it is present, zero included; otherwise it is
// derived from the oldest debt date.
func OverdueDays(bal OutstandingBalance, now time.Time, daysBeforeOverdue int) int {
	if bal.DaysPastDue != nil {
		return *bal.DaysPastDue
	}
	if bal.OldestDebtDate == nil {
		return 0
	}
	return daysSince(*bal.OldestDebtDate, now) - daysBeforeOverdue
}

func daysSince(t, now time.Time) int {
	n, err := dates.DaysBetween(dates.DateKey(t), dates.Today(now))
	if err != nil {
		return 0
	}
	return n
}
