package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		name   string
		amount decimal.Decimal
		want   string
	}{
		{"zero", decimal.Zero, "₱0.00"},
		{"grouping", decimal.RequireFromString("1234.5"), "₱1,234.50"},
		{"millions", decimal.RequireFromString("1250000"), "₱1,250,000.00"},
		{"negative", decimal.RequireFromString("-12"), "-₱12.00"},
		{"rounds", decimal.RequireFromString("23.456"), "₱23.46"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatCurrency(tc.amount))
		})
	}
}

func TestFormatCurrencyCode(t *testing.T) {
	assert.Equal(t, "$5.00", FormatCurrencyCode(decimal.NewFromInt(5), "usd"))
	assert.Equal(t, "JPY 1,000.00", FormatCurrencyCode(decimal.NewFromInt(1000), "JPY"))
	assert.Equal(t, "₱5.00", FormatCurrencyCode(decimal.NewFromInt(5), ""))
}

func TestPercentage(t *testing.T) {
	assert.True(t, Percentage(decimal.NewFromInt(850), decimal.NewFromInt(1000)).Equal(decimal.NewFromInt(85)))
	assert.True(t, Percentage(decimal.NewFromInt(5), decimal.Zero).IsZero())
}

func TestPercentChange(t *testing.T) {
	assert.True(t, PercentChange(decimal.NewFromInt(150), decimal.NewFromInt(100)).Equal(decimal.NewFromInt(50)))
	assert.True(t, PercentChange(decimal.NewFromInt(50), decimal.NewFromInt(100)).Equal(decimal.NewFromInt(-50)))
	assert.True(t, PercentChange(decimal.NewFromInt(10), decimal.Zero).Equal(decimal.NewFromInt(100)))
	assert.True(t, PercentChange(decimal.Zero, decimal.Zero).IsZero())
}

func TestAverageAndFormatPercent(t *testing.T) {
	assert.True(t, Average(decimal.NewFromInt(100), 4).Equal(decimal.NewFromInt(25)))
	assert.True(t, Average(decimal.NewFromInt(100), 0).IsZero())
	assert.Equal(t, "85.0%", FormatPercent(decimal.NewFromInt(85), 1))
}
