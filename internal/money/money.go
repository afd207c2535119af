// Package money formats and derives monetary values for the ledger screens,
// reports and exports. Amounts are always decimal.Decimal.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultCurrency is the settings currency used when none is configured.
const DefaultCurrency = "PHP"

var (
	hundred = decimal.NewFromInt(100)
	printer = message.NewPrinter(language.English)
	symbols = map[string]string{
		"PHP": "₱",
		"USD": "$",
	}
)

// FormatCurrency renders an amount in pesos, e.g. ₱1,234.50.
func FormatCurrency(amount decimal.Decimal) string {
	return FormatCurrencyCode(amount, DefaultCurrency)
}

// FormatCurrencyCode renders an amount using the symbol for code. Unknown
// codes are written as a prefix ("JPY 1,000.00").
func FormatCurrencyCode(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	symbol, ok := symbols[code]
	if !ok {
		symbol = code + " "
	}
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	return sign + symbol + FormatNumber(amount, 2)
}

// FormatNumber renders a decimal with thousands grouping and a fixed number
// of fraction digits.
func FormatNumber(amount decimal.Decimal, places int32) string {
	rounded := amount.Round(places).InexactFloat64()
	digits := int(places)
	return printer.Sprint(number.Decimal(rounded, number.MinFractionDigits(digits), number.MaxFractionDigits(digits)))
}

// Percentage returns part/whole*100, or zero when whole is zero.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// PercentChange returns the relative change from previous to current in
// percent. A move away from a zero baseline counts as 100%.
func PercentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsZero() {
			return decimal.Zero
		}
		if current.IsNegative() {
			return hundred.Neg()
		}
		return hundred
	}
	return current.Sub(previous).Div(previous.Abs()).Mul(hundred)
}

// FormatPercent renders p with the given precision, e.g. 85.0%.
func FormatPercent(p decimal.Decimal, places int32) string {
	return p.StringFixed(places) + "%"
}

// Average divides total by count, returning zero for an empty set.
func Average(total decimal.Decimal, count int) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count)))
}

// Sum adds the given amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
