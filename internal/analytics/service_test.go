package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/ledger"
	"github.com/refill-ledger/ledger/internal/querycache"
)

type stubSource struct {
	mu        sync.Mutex
	sales     []ledger.Sale
	customers []ledger.Customer
	settings  ledger.Settings
	balances  []ledger.OutstandingBalance
	salesErr  error
	salesCall int
	lastRange dates.Range
}

func (s *stubSource) SalesInRange(_ context.Context, r dates.Range) ([]ledger.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.salesCall++
	s.lastRange = r
	return s.sales, s.salesErr
}

func (s *stubSource) AllCustomers(context.Context) ([]ledger.Customer, error) {
	return s.customers, nil
}

func (s *stubSource) CurrentSettings(context.Context) (ledger.Settings, error) {
	return s.settings, nil
}

func (s *stubSource) ListOutstanding(context.Context) ([]ledger.OutstandingBalance, error) {
	return s.balances, nil
}

var fixedNow = time.Date(2024, 1, 10, 9, 0, 0, 0, dates.Location())

func newTestService(t *testing.T, src Source) (*Service, *querycache.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := querycache.New(client, time.Minute, nil)
	return NewService(src, cache, func() time.Time { return fixedNow }), cache
}

func fixtureSource() *stubSource {
	return &stubSource{
		customers: []ledger.Customer{
			{ID: "A", Name: "Ana", Location: ledger.LocationPoblacion},
			{ID: "B", Name: "Ben", Location: ledger.LocationSanIsidro},
		},
		settings: ledger.DefaultSettings(),
		sales: []ledger.Sale{
			sale("p1", "A", "2024-01-08", 2, 50, ledger.PaymentCash),
			sale("c1", "A", "2024-01-09", 4, 100, ledger.PaymentCash),
			sale("c2", "B", "2024-01-10", 2, 50, ledger.PaymentCredit),
		},
		balances: []ledger.OutstandingBalance{
			{CustomerID: "B", TotalOwed: dec(50), DaysPastDue: days(12)},
		},
	}
}

func TestDashboardComputesAndCaches(t *testing.T) {
	src := fixtureSource()
	svc, _ := newTestService(t, src)
	ctx := context.Background()
	r := dates.Range{Start: "2024-01-09", End: "2024-01-10"}

	d, err := svc.Dashboard(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, dates.Range{Start: "2024-01-07", End: "2024-01-10"}, src.lastRange)
	assert.Equal(t, dates.Range{Start: "2024-01-07", End: "2024-01-08"}, d.Previous)
	assert.Equal(t, 2, d.Current.TransactionCount)
	assert.Equal(t, 6, d.Current.Quantity)
	assert.Equal(t, 1, d.PreviousData.TransactionCount)
	assert.True(t, d.Current.Revenue.Equal(dec(150)), d.Current.Revenue.String())
	assert.True(t, d.Change.Revenue.Equal(dec(200)), d.Change.Revenue.String())
	require.Len(t, d.Daily, 2)
	require.Len(t, d.TopCustomers, 2)
	assert.Equal(t, "A", d.TopCustomers[0].CustomerID)
	assert.Equal(t, 1, d.Split.CreditCount)
	assert.Equal(t, "50.00", d.Outstanding.Total)
	assert.Equal(t, 1, d.Outstanding.Overdue)
	assert.Equal(t, 1, d.Outstanding.Customers)

	_, err = svc.Dashboard(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 1, src.salesCall)
}

func TestDashboardPricesEveryPanelAlike(t *testing.T) {
	custom := dec(30)
	src := fixtureSource()
	src.customers[0].CustomUnitPrice = &custom
	src.settings.CustomPricingEnabled = true
	src.sales = []ledger.Sale{
		sale("a1", "A", "2024-01-10", 10, 250, ledger.PaymentCash),
		sale("b1", "B", "2024-01-10", 13, 1, ledger.PaymentCredit),
	}
	svc, _ := newTestService(t, src)

	d, err := svc.Dashboard(context.Background(), dates.TodayRange(fixedNow))
	require.NoError(t, err)

	daily, located, ranked := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range d.Daily {
		daily = daily.Add(p.Revenue)
	}
	for _, l := range d.Locations {
		located = located.Add(l.Revenue)
	}
	for _, c := range d.TopCustomers {
		ranked = ranked.Add(c.Revenue)
	}
	card := d.Current.Revenue
	assert.True(t, daily.Equal(card), "daily %s card %s", daily, card)
	assert.True(t, located.Equal(card), "locations %s card %s", located, card)
	assert.True(t, ranked.Equal(card), "customers %s card %s", ranked, card)
	assert.True(t, d.Split.Cash.Add(d.Split.Credit).Equal(card))

	require.Len(t, d.TopCustomers, 2)
	assert.Equal(t, "B", d.TopCustomers[0].CustomerID, "13 units at the default price outrank 10 units at 30")
	assert.True(t, d.TopCustomers[1].Revenue.Equal(dec(300)), d.TopCustomers[1].Revenue.String())
	assert.True(t, d.Split.Cash.Equal(dec(300)))
}

func TestDashboardRefetchesAfterInvalidate(t *testing.T) {
	src := fixtureSource()
	svc, cache := newTestService(t, src)
	ctx := context.Background()
	r := dates.TodayRange(fixedNow)

	_, err := svc.Dashboard(ctx, r)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, querycache.Sales))
	_, err = svc.Dashboard(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 2, src.salesCall)
}

func TestDashboardErrors(t *testing.T) {
	src := fixtureSource()
	src.salesErr = errors.New("backend down")
	svc, _ := newTestService(t, src)

	_, err := svc.Dashboard(context.Background(), dates.Range{Start: "2024-01-02", End: "2024-01-01"})
	assert.ErrorIs(t, err, dates.ErrInvalidRange)

	_, err = svc.Dashboard(context.Background(), dates.TodayRange(fixedNow))
	assert.ErrorIs(t, err, src.salesErr)
}

func TestAgingAndWarm(t *testing.T) {
	src := fixtureSource()
	svc := NewService(src, nil, func() time.Time { return fixedNow })

	report, err := svc.Aging(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", report.AsOf)
	assert.True(t, report.Total.Equal(dec(50)))

	require.NoError(t, svc.Warm(context.Background(), "today", "week"))
	assert.Equal(t, 2, src.salesCall)
	assert.Error(t, svc.Warm(context.Background(), "fortnight"))
}
