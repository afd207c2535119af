package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/ledger"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func days(n int) *int { return &n }

func sale(id, customer, date string, qty int, total int64, pt ledger.PaymentType) ledger.Sale {
	return ledger.Sale{ID: id, CustomerID: customer, Date: date, Quantity: qty, Total: dec(total), PaymentType: pt}
}

func TestCalculatePeriodMetricsFiltersByDay(t *testing.T) {
	sales := []ledger.Sale{
		sale("s1", "A", "2024-01-01", 5, 125, ledger.PaymentCash),
		sale("s2", "A", "2024-01-02", 3, 75, ledger.PaymentCash),
	}
	m := CalculatePeriodMetrics(sales, dates.Range{Start: "2024-01-01", End: "2024-01-01"})
	assert.Equal(t, 5, m.Quantity)
	assert.Equal(t, 1, m.TransactionCount)
	assert.Equal(t, 1, m.ActiveCustomers)
	assert.True(t, m.Revenue.Equal(dec(125)))
	assert.True(t, m.AverageSale.Equal(dec(125)))
}

func TestCalculatePeriodMetricsUsesFullTimestamps(t *testing.T) {
	sales := []ledger.Sale{
		sale("s1", "A", "2024-01-01T23:30:00+08:00", 2, 50, ledger.PaymentCash),
		sale("s2", "B", "2024-01-03T00:10:00+08:00", 1, 25, ledger.PaymentCash),
	}
	m := CalculatePeriodMetrics(sales, dates.Range{Start: "2024-01-01", End: "2024-01-02"})
	assert.Equal(t, 1, m.TransactionCount)

	empty := CalculatePeriodMetrics(nil, dates.Range{Start: "2024-01-01", End: "2024-01-02"})
	assert.True(t, empty.AverageSale.IsZero())
}

func TestCalculateEffectivePeriodMetricsHonoursToggle(t *testing.T) {
	custom := dec(30)
	customers := []ledger.Customer{{ID: "A", Name: "Ana", CustomUnitPrice: &custom}, {ID: "B", Name: "Ben"}}
	sales := []ledger.Sale{
		sale("s1", "A", "2024-01-01", 2, 46, ledger.PaymentCash),
		sale("s2", "B", "2024-01-01", 1, 23, ledger.PaymentCash),
		sale("s3", "ghost", "2024-01-01", 1, 99, ledger.PaymentCash),
	}
	r := dates.Range{Start: "2024-01-01", End: "2024-01-01"}
	settings := ledger.DefaultSettings()
	settings.UnitPrice = dec(23)

	off := CalculateEffectivePeriodMetrics(sales, customers, settings, r)
	assert.True(t, off.Revenue.Equal(dec(23*4)), off.Revenue.String())

	settings.CustomPricingEnabled = true
	on := CalculateEffectivePeriodMetrics(sales, customers, settings, r)
	assert.True(t, on.Revenue.Equal(dec(60+23+23)), on.Revenue.String())
	assert.Equal(t, 3, on.ActiveCustomers)
}

func TestGroupByDayZeroFills(t *testing.T) {
	sales := []ledger.Sale{
		sale("s1", "A", "2024-01-01", 2, 50, ledger.PaymentCash),
		sale("s2", "A", "2024-01-03", 1, 25, ledger.PaymentCash),
		sale("s3", "A", "2024-01-03", 1, 25, ledger.PaymentCredit),
		sale("s4", "A", "2024-02-01", 9, 225, ledger.PaymentCash),
	}
	points := GroupByDay(sales, dates.Range{Start: "2024-01-01", End: "2024-01-03"}, nil)
	require.Len(t, points, 3)
	assert.Equal(t, "2024-01-02", points[1].Date)
	assert.True(t, points[1].Revenue.IsZero())
	assert.Equal(t, 2, points[2].Count)
	assert.True(t, points[2].Revenue.Equal(dec(50)))
	assert.True(t, points[2].Cash.Equal(dec(25)))
	assert.True(t, points[2].Credit.Equal(dec(25)))
}

func TestGroupingSkipsUnknownCustomers(t *testing.T) {
	customers := []ledger.Customer{
		{ID: "A", Name: "Ana", Location: ledger.LocationPoblacion},
		{ID: "B", Name: "Ben", Location: ledger.LocationPoblacion},
		{ID: "C", Name: "Cora", Location: ledger.LocationSanJose},
	}
	sales := []ledger.Sale{
		sale("s1", "A", "2024-01-01", 2, 50, ledger.PaymentCash),
		sale("s2", "B", "2024-01-02", 1, 25, ledger.PaymentCash),
		sale("s3", "C", "2024-01-02", 4, 100, ledger.PaymentCredit),
		sale("s4", "missing", "2024-01-02", 4, 100, ledger.PaymentCash),
	}

	locations := GroupByLocation(sales, customers, StoredRevenue)
	require.Len(t, locations, 2)
	assert.Equal(t, ledger.LocationPoblacion, locations[0].Location)
	assert.Equal(t, 2, locations[0].Customers)
	assert.True(t, locations[0].Revenue.Equal(dec(75)))

	byCustomer := GroupByCustomer(sales, customers, nil)
	require.Len(t, byCustomer, 3)
	assert.Equal(t, "2024-01-01", byCustomer[0].LastSale)

	top := TopCustomers(byCustomer, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "C", top[0].CustomerID)
	assert.Equal(t, "A", top[1].CustomerID)

	topLoc := TopLocations(locations, 1)
	require.Len(t, topLoc, 1)
	assert.Equal(t, ledger.LocationSanJose, topLoc[0].Location)
}

func TestTopCustomersTieBreaksByName(t *testing.T) {
	rows := []CustomerRow{
		{CustomerID: "2", Name: "bea", Revenue: dec(10)},
		{CustomerID: "1", Name: "Abe", Revenue: dec(10)},
		{CustomerID: "3", Name: "Cy", Revenue: dec(5)},
	}
	top := TopCustomers(rows, 0)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{top[0].CustomerID, top[1].CustomerID, top[2].CustomerID})
	assert.Equal(t, "2", rows[0].CustomerID)
}

func TestCompare(t *testing.T) {
	c := Compare(
		PeriodMetrics{Revenue: dec(150), Quantity: 6, TransactionCount: 3, ActiveCustomers: 2, AverageSale: dec(50)},
		PeriodMetrics{Revenue: dec(100), Quantity: 0, TransactionCount: 4, ActiveCustomers: 2, AverageSale: dec(25)},
	)
	assert.True(t, c.Revenue.Equal(dec(50)))
	assert.True(t, c.Quantity.Equal(dec(100)))
	assert.True(t, c.TransactionCount.Equal(dec(-25)))
	assert.True(t, c.ActiveCustomers.IsZero())
	assert.True(t, c.AverageSale.Equal(dec(100)))
}

func TestPaymentTypeSplit(t *testing.T) {
	split := PaymentTypeSplit([]ledger.Sale{
		sale("s1", "A", "2024-01-01", 3, 75, ledger.PaymentCash),
		sale("s2", "A", "2024-01-01", 1, 25, ledger.PaymentCredit),
	}, nil)
	assert.True(t, split.Cash.Equal(dec(75)))
	assert.True(t, split.Credit.Equal(dec(25)))
	assert.Equal(t, 1, split.CreditCount)
	assert.True(t, split.CashPercent.Equal(dec(75)))
	assert.True(t, split.CreditPercent.Equal(dec(25)))

	empty := PaymentTypeSplit(nil, nil)
	assert.True(t, empty.CashPercent.IsZero())
}
