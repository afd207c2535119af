package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Utilisation thresholds in percent.
var (
	CreditWarningThreshold = decimal.NewFromInt(80)
	CreditBlockThreshold   = decimal.NewFromInt(100)
)

// CreditLevel classifies the outcome of a credit check.
type CreditLevel string

// Credit levels.
const (
	CreditOK      CreditLevel = "ok"
	CreditWarning CreditLevel = "warning"
	CreditBlocked CreditLevel = "blocked"
)

// CreditInput is everything a credit check needs.
type CreditInput struct {
	CurrentBalance decimal.Decimal
	CreditLimit    decimal.Decimal
	Quantity       int
	UnitPrice      decimal.Decimal
}

// CreditResult is the outcome of CheckCredit.
type CreditResult struct {
	SaleAmount      decimal.Decimal `json:"saleAmount"`
	CurrentBalance  decimal.Decimal `json:"currentBalance"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	CreditLimit     decimal.Decimal `json:"creditLimit"`
	AvailableCredit decimal.Decimal `json:"availableCredit"`
	Utilization     decimal.Decimal `json:"utilization"`
	Level           CreditLevel     `json:"level"`
}

// Blocked reports whether the sale must not be submitted.
func (r CreditResult) Blocked() bool { return r.Level == CreditBlocked }

// Message is the user-facing explanation for warnings and blocks.
func (r CreditResult) Message() string {
	switch r.Level {
	case CreditBlocked:
		return fmt.Sprintf("credit limit exceeded: new balance %s is %s%% of the %s limit",
			r.NewBalance.StringFixed(2), r.Utilization.StringFixed(1), r.CreditLimit.StringFixed(2))
	case CreditWarning:
		return fmt.Sprintf("customer is at %s%% of their credit limit", r.Utilization.StringFixed(1))
	default:
		return ""
	}
}

// CheckCredit adds the sale to the current balance and classifies the
// resulting utilisation. A non-positive limit means no limit is enforced.
func CheckCredit(in CreditInput) CreditResult {
	amount := LineTotal(in.Quantity, in.UnitPrice)
	newBalance := in.CurrentBalance.Add(amount)
	res := CreditResult{
		SaleAmount:     amount,
		CurrentBalance: in.CurrentBalance,
		NewBalance:     newBalance,
		CreditLimit:    in.CreditLimit,
		Utilization:    decimal.Zero,
		Level:          CreditOK,
	}
	if !in.CreditLimit.IsPositive() {
		return res
	}
	res.AvailableCredit = decimal.Max(in.CreditLimit.Sub(in.CurrentBalance), decimal.Zero)
	res.Utilization = newBalance.Div(in.CreditLimit).Mul(decimal.NewFromInt(100))
	switch {
	case res.Utilization.GreaterThan(CreditBlockThreshold):
		res.Level = CreditBlocked
	case res.Utilization.GreaterThanOrEqual(CreditWarningThreshold):
		res.Level = CreditWarning
	}
	return res
}

// CreditLimitFor returns the customer's own limit, or the settings default.
func CreditLimitFor(c *Customer, s Settings) decimal.Decimal {
	if c != nil && c.CreditLimit != nil {
		return *c.CreditLimit
	}
	return s.DefaultCreditLimit
}

// CheckCustomerCredit runs CheckCredit for a credit sale of quantity units to
// c using balance as the freshly fetched outstanding amount.
func CheckCustomerCredit(c *Customer, s Settings, balance decimal.Decimal, quantity int) (CreditResult, error) {
	if !s.CreditEnabled {
		return CreditResult{}, ErrCreditDisabled
	}
	return CheckCredit(CreditInput{
		CurrentBalance: balance,
		CreditLimit:    CreditLimitFor(c, s),
		Quantity:       quantity,
		UnitPrice:      EffectivePrice(c, s),
	}), nil
}
