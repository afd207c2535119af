package ledger

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Setting keys as stored by the backend key/value store.
const (
	KeyUnitPrice            = "unit_price"
	KeyCurrency             = "currency"
	KeyCustomPricingEnabled = "enable_custom_pricing"
	KeyCreditEnabled        = "enable_credit"
	KeyDefaultCreditLimit   = "default_credit_limit"
	KeyDaysBeforeOverdue    = "days_before_overdue"
)

// Defaults applied when a key is missing or unparsable.
var (
	DefaultUnitPrice         = decimal.NewFromInt(25)
	DefaultCreditLimit       = decimal.NewFromInt(1000)
	DefaultDaysBeforeOverdue = 7
)

// Setting is one backend key/value pair.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Settings is the typed view over the global key/value store.
type Settings struct {
	UnitPrice            decimal.Decimal `json:"unitPrice"`
	Currency             string          `json:"currency"`
	CustomPricingEnabled bool            `json:"customPricingEnabled"`
	CreditEnabled        bool            `json:"creditEnabled"`
	DefaultCreditLimit   decimal.Decimal `json:"defaultCreditLimit"`
	DaysBeforeOverdue    int             `json:"daysBeforeOverdue"`
}

// DefaultSettings returns the values used before the backend answers.
func DefaultSettings() Settings {
	return Settings{
		UnitPrice:          DefaultUnitPrice,
		Currency:           "PHP",
		CreditEnabled:      true,
		DefaultCreditLimit: DefaultCreditLimit,
		DaysBeforeOverdue:  DefaultDaysBeforeOverdue,
	}
}

// SettingsFromPairs folds backend pairs over the defaults. Unknown keys are
// ignored and malformed values keep the default.
func SettingsFromPairs(pairs []Setting) Settings {
	s := DefaultSettings()
	for _, p := range pairs {
		value := strings.TrimSpace(p.Value)
		switch p.Key {
		case KeyUnitPrice:
			if d, err := decimal.NewFromString(value); err == nil && d.IsPositive() {
				s.UnitPrice = d
			}
		case KeyCurrency:
			if value != "" {
				s.Currency = strings.ToUpper(value)
			}
		case KeyCustomPricingEnabled:
			if b, err := strconv.ParseBool(value); err == nil {
				s.CustomPricingEnabled = b
			}
		case KeyCreditEnabled:
			if b, err := strconv.ParseBool(value); err == nil {
				s.CreditEnabled = b
			}
		case KeyDefaultCreditLimit:
			if d, err := decimal.NewFromString(value); err == nil && !d.IsNegative() {
				s.DefaultCreditLimit = d
			}
		case KeyDaysBeforeOverdue:
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				s.DaysBeforeOverdue = n
			}
		}
	}
	return s
}

// Pairs renders the settings back into backend pairs.
func (s Settings) Pairs() []Setting {
	return []Setting{
		{Key: KeyUnitPrice, Value: s.UnitPrice.StringFixed(2)},
		{Key: KeyCurrency, Value: s.Currency},
		{Key: KeyCustomPricingEnabled, Value: strconv.FormatBool(s.CustomPricingEnabled)},
		{Key: KeyCreditEnabled, Value: strconv.FormatBool(s.CreditEnabled)},
		{Key: KeyDefaultCreditLimit, Value: s.DefaultCreditLimit.StringFixed(2)},
		{Key: KeyDaysBeforeOverdue, Value: strconv.Itoa(s.DaysBeforeOverdue)},
	}
}
