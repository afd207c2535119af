// Package analytics aggregates sales into the dashboard and report figures.
package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/ledger"
	"github.com/refill-ledger/ledger/internal/money"
)

// PeriodMetrics summarises the sales inside a date window.
type PeriodMetrics struct {
	Revenue          decimal.Decimal `json:"revenue"`
	Quantity         int             `json:"quantity"`
	TransactionCount int             `json:"transactionCount"`
	ActiveCustomers  int             `json:"activeCustomers"`
	AverageSale      decimal.Decimal `json:"averageSale"`
}

// Revenue prices one sale. A nil Revenue uses the stored total.
type Revenue func(ledger.Sale) decimal.Decimal

func (f Revenue) of(s ledger.Sale) decimal.Decimal {
	if f == nil {
		return s.Total
	}
	return f(s)
}

// StoredRevenue is the total the backend recorded for the sale.
func StoredRevenue(s ledger.Sale) decimal.Decimal { return s.Total }

// EffectiveRevenue reprices each sale at the effective price of its customer
// under the current pricing toggle. Sales whose customer is unknown are
// priced at the default.
func EffectiveRevenue(customers []ledger.Customer, settings ledger.Settings) Revenue {
	index := indexCustomers(customers)
	return func(s ledger.Sale) decimal.Decimal {
		return ledger.LineTotal(s.Quantity, ledger.EffectivePrice(index[s.CustomerID], settings))
	}
}

// CalculatePeriodMetrics sums the stored totals of sales inside r.
func CalculatePeriodMetrics(sales []ledger.Sale, r dates.Range) PeriodMetrics {
	return aggregate(sales, r, StoredRevenue)
}

// CalculateEffectivePeriodMetrics sums sales inside r at EffectiveRevenue.
func CalculateEffectivePeriodMetrics(sales []ledger.Sale, customers []ledger.Customer, settings ledger.Settings, r dates.Range) PeriodMetrics {
	return aggregate(sales, r, EffectiveRevenue(customers, settings))
}

func aggregate(sales []ledger.Sale, r dates.Range, revenue Revenue) PeriodMetrics {
	var m PeriodMetrics
	seen := make(map[string]struct{})
	for _, s := range sales {
		if !r.Contains(s.DateKey()) {
			continue
		}
		m.Revenue = m.Revenue.Add(revenue.of(s))
		m.Quantity += s.Quantity
		m.TransactionCount++
		seen[s.CustomerID] = struct{}{}
	}
	m.ActiveCustomers = len(seen)
	m.AverageSale = money.Average(m.Revenue, m.TransactionCount)
	return m
}

func indexCustomers(customers []ledger.Customer) map[string]*ledger.Customer {
	index := make(map[string]*ledger.Customer, len(customers))
	for i := range customers {
		index[customers[i].ID] = &customers[i]
	}
	return index
}

// DayPoint is one day of the revenue trend.
type DayPoint struct {
	Date     string          `json:"date"`
	Revenue  decimal.Decimal `json:"revenue"`
	Cash     decimal.Decimal `json:"cash"`
	Credit   decimal.Decimal `json:"credit"`
	Quantity int             `json:"quantity"`
	Count    int             `json:"count"`
}

// GroupByDay buckets sales per day of r. Days without sales are present
// with zero values so charts keep a continuous axis.
func GroupByDay(sales []ledger.Sale, r dates.Range, revenue Revenue) []DayPoint {
	days := r.Days()
	points := make([]DayPoint, len(days))
	pos := make(map[string]int, len(days))
	for i, d := range days {
		points[i] = DayPoint{Date: d}
		pos[d] = i
	}
	for _, s := range sales {
		i, ok := pos[s.DateKey()]
		if !ok {
			continue
		}
		amount := revenue.of(s)
		points[i].Revenue = points[i].Revenue.Add(amount)
		if s.PaymentType == ledger.PaymentCredit {
			points[i].Credit = points[i].Credit.Add(amount)
		} else {
			points[i].Cash = points[i].Cash.Add(amount)
		}
		points[i].Quantity += s.Quantity
		points[i].Count++
	}
	return points
}

// LocationRow aggregates sales per delivery zone.
type LocationRow struct {
	Location  ledger.Location `json:"location"`
	Revenue   decimal.Decimal `json:"revenue"`
	Quantity  int             `json:"quantity"`
	Count     int             `json:"count"`
	Customers int             `json:"customers"`
}

// GroupByLocation aggregates sales by the location of their customer.
// Sales referencing an unknown customer are skipped.
func GroupByLocation(sales []ledger.Sale, customers []ledger.Customer, revenue Revenue) []LocationRow {
	index := indexCustomers(customers)
	rows := make(map[ledger.Location]*LocationRow)
	members := make(map[ledger.Location]map[string]struct{})
	for _, s := range sales {
		c, ok := index[s.CustomerID]
		if !ok {
			continue
		}
		row, ok := rows[c.Location]
		if !ok {
			row = &LocationRow{Location: c.Location}
			rows[c.Location] = row
			members[c.Location] = make(map[string]struct{})
		}
		row.Revenue = row.Revenue.Add(revenue.of(s))
		row.Quantity += s.Quantity
		row.Count++
		members[c.Location][c.ID] = struct{}{}
	}
	out := make([]LocationRow, 0, len(rows))
	for loc, row := range rows {
		row.Customers = len(members[loc])
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// CustomerRow aggregates sales per customer.
type CustomerRow struct {
	CustomerID string          `json:"customerId"`
	Name       string          `json:"name"`
	Location   ledger.Location `json:"location"`
	Revenue    decimal.Decimal `json:"revenue"`
	Quantity   int             `json:"quantity"`
	Count      int             `json:"count"`
	LastSale   string          `json:"lastSale"`
}

// GroupByCustomer aggregates sales per customer, skipping unknown ones.
func GroupByCustomer(sales []ledger.Sale, customers []ledger.Customer, revenue Revenue) []CustomerRow {
	index := indexCustomers(customers)
	rows := make(map[string]*CustomerRow)
	for _, s := range sales {
		c, ok := index[s.CustomerID]
		if !ok {
			continue
		}
		row, ok := rows[c.ID]
		if !ok {
			row = &CustomerRow{CustomerID: c.ID, Name: c.Name, Location: c.Location}
			rows[c.ID] = row
		}
		row.Revenue = row.Revenue.Add(revenue.of(s))
		row.Quantity += s.Quantity
		row.Count++
		if key := s.DateKey(); key > row.LastSale {
			row.LastSale = key
		}
	}
	out := make([]CustomerRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}

// TopCustomers ranks rows by revenue descending, ties by name, keeping at
// most limit rows. A non-positive limit keeps all of them.
func TopCustomers(rows []CustomerRow, limit int) []CustomerRow {
	out := append([]CustomerRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return truncate(out, limit)
}

// TopLocations ranks rows like TopCustomers.
func TopLocations(rows []LocationRow, limit int) []LocationRow {
	out := append([]LocationRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Location < out[j].Location
	})
	return truncate(out, limit)
}

func truncate[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// Comparison holds the percent changes shown on dashboard cards.
type Comparison struct {
	Revenue          decimal.Decimal `json:"revenue"`
	Quantity         decimal.Decimal `json:"quantity"`
	TransactionCount decimal.Decimal `json:"transactionCount"`
	ActiveCustomers  decimal.Decimal `json:"activeCustomers"`
	AverageSale      decimal.Decimal `json:"averageSale"`
}

// Compare reports the change of current relative to previous.
func Compare(current, previous PeriodMetrics) Comparison {
	count := func(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }
	return Comparison{
		Revenue:          money.PercentChange(current.Revenue, previous.Revenue),
		Quantity:         money.PercentChange(count(current.Quantity), count(previous.Quantity)),
		TransactionCount: money.PercentChange(count(current.TransactionCount), count(previous.TransactionCount)),
		ActiveCustomers:  money.PercentChange(count(current.ActiveCustomers), count(previous.ActiveCustomers)),
		AverageSale:      money.PercentChange(current.AverageSale, previous.AverageSale),
	}
}

// PaymentSplit compares cash and credit revenue.
type PaymentSplit struct {
	Cash          decimal.Decimal `json:"cash"`
	Credit        decimal.Decimal `json:"credit"`
	CashCount     int             `json:"cashCount"`
	CreditCount   int             `json:"creditCount"`
	CashPercent   decimal.Decimal `json:"cashPercent"`
	CreditPercent decimal.Decimal `json:"creditPercent"`
}

// PaymentTypeSplit splits the revenue of sales by payment type.
func PaymentTypeSplit(sales []ledger.Sale, revenue Revenue) PaymentSplit {
	var split PaymentSplit
	for _, s := range sales {
		switch s.PaymentType {
		case ledger.PaymentCredit:
			split.Credit = split.Credit.Add(revenue.of(s))
			split.CreditCount++
		default:
			split.Cash = split.Cash.Add(revenue.of(s))
			split.CashCount++
		}
	}
	total := split.Cash.Add(split.Credit)
	split.CashPercent = money.Percentage(split.Cash, total)
	split.CreditPercent = money.Percentage(split.Credit, total)
	return split
}

// FilterRange keeps the sales whose business day falls inside r.
func FilterRange(sales []ledger.Sale, r dates.Range) []ledger.Sale {
	out := make([]ledger.Sale, 0, len(sales))
	for _, s := range sales {
		if r.Contains(s.DateKey()) {
			out = append(out, s)
		}
	}
	return out
}
