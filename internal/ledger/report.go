package ledger

import "github.com/shopspring/decimal"

// DailyPaymentReport lists the payments of one business day.
type DailyPaymentReport struct {
	Date     string       `json:"date"`
	Payments []Payment    `json:"payments"`
	Summary  DailySummary `json:"summary"`
}

// DailySummary totals a daily report.
type DailySummary struct {
	Count            int                               `json:"count"`
	TotalAmount      decimal.Decimal                   `json:"totalAmount"`
	TotalCollected   decimal.Decimal                   `json:"totalCollected"`
	TotalOutstanding decimal.Decimal                   `json:"totalOutstanding"`
	ByMethod         map[PaymentMethod]decimal.Decimal `json:"byMethod,omitempty"`
	ByStatus         map[PaymentStatus]int             `json:"byStatus,omitempty"`
}

// SummarizePayments computes report totals from the payment rows.
func SummarizePayments(payments []Payment) DailySummary {
	sum := DailySummary{
		TotalAmount:      decimal.Zero,
		TotalCollected:   decimal.Zero,
		TotalOutstanding: decimal.Zero,
		ByMethod:         make(map[PaymentMethod]decimal.Decimal),
		ByStatus:         make(map[PaymentStatus]int),
	}
	for _, p := range payments {
		sum.Count++
		sum.TotalAmount = sum.TotalAmount.Add(p.Amount)
		sum.TotalCollected = sum.TotalCollected.Add(p.PaidAmount)
		sum.TotalOutstanding = sum.TotalOutstanding.Add(p.Remaining())
		if p.PaidAmount.IsPositive() {
			method := p.Method
			if method == "" {
				method = MethodCash
			}
			sum.ByMethod[method] = sum.ByMethod[method].Add(p.PaidAmount)
		}
		sum.ByStatus[p.Status]++
	}
	return sum
}
