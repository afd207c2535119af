package analytics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/ledger"
	"github.com/refill-ledger/ledger/internal/querycache"
)

// Source exposes the backend reads the aggregations rely on.
type Source interface {
	SalesInRange(ctx context.Context, r dates.Range) ([]ledger.Sale, error)
	AllCustomers(ctx context.Context) ([]ledger.Customer, error)
	CurrentSettings(ctx context.Context) (ledger.Settings, error)
	ListOutstanding(ctx context.Context) ([]ledger.OutstandingBalance, error)
}

// Top list sizes on the dashboard.
const (
	TopCustomerLimit = 5
	TopLocationLimit = 6
)

// Dashboard is the payload behind the dashboard page.
type Dashboard struct {
	Range        dates.Range     `json:"range"`
	Previous     dates.Range     `json:"previous"`
	Current      PeriodMetrics   `json:"current"`
	PreviousData PeriodMetrics   `json:"previousMetrics"`
	Change       Comparison      `json:"change"`
	Daily        []DayPoint      `json:"daily"`
	Locations    []LocationRow   `json:"locations"`
	TopCustomers []CustomerRow   `json:"topCustomers"`
	Split        PaymentSplit    `json:"paymentSplit"`
	Outstanding  OutstandingCard `json:"outstanding"`
	GeneratedAt  time.Time       `json:"generatedAt"`
}

// OutstandingCard summarises receivables.
type OutstandingCard struct {
	Total     string `json:"total"`
	Customers int    `json:"customers"`
	Overdue   int    `json:"overdue"`
}

// Service coordinates backend reads with the cache layer.
type Service struct {
	source Source
	cache  *querycache.Cache
	clock  dates.Clock
}

// NewService wires a Source with a cache helper. cache may be nil.
func NewService(source Source, cache *querycache.Cache, clock dates.Clock) *Service {
	return &Service{source: source, cache: cache, clock: clock}
}

// Dashboard computes the dashboard for r compared with the period before it.
// Revenue figures use effective prices so a pricing toggle is reflected
// without waiting for stored totals to be rewritten.
func (s *Service) Dashboard(ctx context.Context, r dates.Range) (Dashboard, error) {
	if err := r.Validate(); err != nil {
		return Dashboard{}, err
	}
	loader := func(ctx context.Context) (any, error) {
		prev := dates.PreviousPeriod(r)
		var (
			sales     []ledger.Sale
			customers []ledger.Customer
			settings  ledger.Settings
			balances  []ledger.OutstandingBalance
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			sales, err = s.source.SalesInRange(gctx, dates.Range{Start: prev.Start, End: r.End})
			return err
		})
		g.Go(func() (err error) {
			customers, err = s.source.AllCustomers(gctx)
			return err
		})
		g.Go(func() (err error) {
			settings, err = s.source.CurrentSettings(gctx)
			return err
		})
		g.Go(func() (err error) {
			balances, err = s.source.ListOutstanding(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("analytics: dashboard: %w", err)
		}

		current := FilterRange(sales, r)
		revenue := EffectiveRevenue(customers, settings)
		aging := ledger.BuildAging(balances, s.clock.Now(), settings.DaysBeforeOverdue)
		d := Dashboard{
			Range:        r,
			Previous:     prev,
			Current:      aggregate(sales, r, revenue),
			PreviousData: aggregate(sales, prev, revenue),
			Daily:        GroupByDay(current, r, revenue),
			Locations:    TopLocations(GroupByLocation(current, customers, revenue), TopLocationLimit),
			TopCustomers: TopCustomers(GroupByCustomer(current, customers, revenue), TopCustomerLimit),
			Split:        PaymentTypeSplit(current, revenue),
			Outstanding: OutstandingCard{
				Total:     aging.Total.StringFixed(2),
				Customers: debtors(aging),
				Overdue:   aging.Overdue,
			},
			GeneratedAt: s.clock.Now(),
		}
		d.Change = Compare(d.Current, d.PreviousData)
		return d, nil
	}

	key, err := s.cache.BuildKey(ctx,
		[]querycache.Namespace{querycache.Sales, querycache.Customers, querycache.Settings, querycache.Debts},
		"dashboard", r.Start, r.End)
	if err != nil {
		return Dashboard{}, err
	}
	var d Dashboard
	if err := s.cache.FetchJSON(ctx, key, &d, loader); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Aging buckets outstanding balances as of now.
func (s *Service) Aging(ctx context.Context) (ledger.AgingReport, error) {
	now := s.clock.Now()
	loader := func(ctx context.Context) (any, error) {
		var (
			settings ledger.Settings
			balances []ledger.OutstandingBalance
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			settings, err = s.source.CurrentSettings(gctx)
			return err
		})
		g.Go(func() (err error) {
			balances, err = s.source.ListOutstanding(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("analytics: aging: %w", err)
		}
		return ledger.BuildAging(balances, now, settings.DaysBeforeOverdue), nil
	}
	key, err := s.cache.BuildKey(ctx, []querycache.Namespace{querycache.Debts, querycache.Settings}, "aging", dates.Today(now))
	if err != nil {
		return ledger.AgingReport{}, err
	}
	var report ledger.AgingReport
	if err := s.cache.FetchJSON(ctx, key, &report, loader); err != nil {
		return ledger.AgingReport{}, err
	}
	return report, nil
}

// Warm precomputes the dashboard presets so the first page load hits cache.
func (s *Service) Warm(ctx context.Context, presets ...string) error {
	now := s.clock.Now()
	for _, name := range presets {
		r, err := dates.Preset(name, now)
		if err != nil {
			return err
		}
		if _, err := s.Dashboard(ctx, r); err != nil {
			return err
		}
	}
	_, err := s.Aging(ctx)
	return err
}

func debtors(report ledger.AgingReport) int {
	n := 0
	for _, b := range report.Buckets {
		n += b.Customers
	}
	return n
}
