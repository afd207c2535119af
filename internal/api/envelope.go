package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/ledger"
)

// Pagination is the backend paging block.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HasNext reports whether another page follows.
func (p *Pagination) HasNext() bool {
	return p != nil && p.Page < p.TotalPages
}

// List is the normalised list shape.
type List[T any] struct {
	Data       []T         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Single is the normalised single-resource shape.
type Single[T any] struct {
	Data T `json:"data"`
}

// Nullable is the normalised shape of endpoints that may return no data.
type Nullable[T any] struct {
	Data    *T     `json:"data"`
	Message string `json:"message,omitempty"`
}

// The adapters below are total: malformed or partial envelopes produce
// zero values instead of errors.

func fields(raw []byte) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func decodeSlice[T any](raw json.RawMessage) []T {
	out := []T{}
	if len(raw) == 0 {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func decodePagination(raw json.RawMessage) *Pagination {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var p Pagination
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	return &p
}

// AdaptPagedList reads {data: [...], pagination}.
func AdaptPagedList[T any](raw []byte) List[T] {
	m := fields(raw)
	return List[T]{Data: decodeSlice[T](m["data"]), Pagination: decodePagination(m["pagination"])}
}

// AdaptNestedList reads {data: {data: [...], pagination}}.
func AdaptNestedList[T any](raw []byte) List[T] {
	inner := fields(fields(raw)["data"])
	return List[T]{Data: decodeSlice[T](inner["data"]), Pagination: decodePagination(inner["pagination"])}
}

// AdaptSalesListResponse normalises the doubly nested sales list.
func AdaptSalesListResponse(raw []byte) List[ledger.Sale] {
	return AdaptNestedList[ledger.Sale](raw)
}

// AdaptCustomerListResponse normalises the customer list, which nests the
// rows once and keeps pagination at the root.
func AdaptCustomerListResponse(raw []byte) List[ledger.Customer] {
	return AdaptPagedList[ledger.Customer](raw)
}

// AdaptFlatList accepts a bare array or {data: [...]}.
func AdaptFlatList[T any](raw []byte) List[T] {
	var bare []json.RawMessage
	if err := json.Unmarshal(raw, &bare); err == nil {
		return List[T]{Data: decodeSlice[T](raw)}
	}
	return List[T]{Data: decodeSlice[T](fields(raw)["data"])}
}

// AdaptSingle reads {data: T}, falling back to a bare T.
func AdaptSingle[T any](raw []byte) Single[T] {
	var out Single[T]
	if data, ok := fields(raw)["data"]; ok {
		_ = json.Unmarshal(data, &out.Data)
		return out
	}
	_ = json.Unmarshal(raw, &out.Data)
	return out
}

// AdaptNullable reads {data: T|null, message}.
func AdaptNullable[T any](raw []byte) Nullable[T] {
	m := fields(raw)
	var out Nullable[T]
	_ = json.Unmarshal(m["message"], &out.Message)
	data := m["data"]
	if len(data) == 0 || string(data) == "null" {
		return out
	}
	var v T
	if err := json.Unmarshal(data, &v); err == nil {
		out.Data = &v
	}
	return out
}

// AdaptAgingReport normalises the debts aging payload. Buckets may arrive
// as a list of {bucket, amount, customers} or as a map of bucket name to
// amount; every standard bucket is present in the result and a missing
// total is recomputed.
func AdaptAgingReport(raw []byte, now time.Time) ledger.AgingReport {
	body := fields(raw)
	if data, ok := body["data"]; ok {
		body = fields(data)
	}
	report := ledger.BuildAging(nil, now, 0)
	_ = json.Unmarshal(body["asOf"], &report.AsOf)

	pos := make(map[string]int, len(report.Buckets))
	for i, b := range report.Buckets {
		pos[b.Bucket] = i
	}
	add := func(name string, amount decimal.Decimal, customers int) {
		i, ok := pos[name]
		if !ok {
			return
		}
		report.Buckets[i].Amount = report.Buckets[i].Amount.Add(amount)
		report.Buckets[i].Customers += customers
	}

	var list []struct {
		Bucket    string          `json:"bucket"`
		Amount    decimal.Decimal `json:"amount"`
		Customers int             `json:"customers"`
		Count     int             `json:"count"`
	}
	var byName map[string]json.RawMessage
	switch {
	case json.Unmarshal(body["buckets"], &list) == nil:
		for _, b := range list {
			add(b.Bucket, b.Amount, b.Customers+b.Count)
		}
	case json.Unmarshal(body["buckets"], &byName) == nil:
		for name, v := range byName {
			var amount decimal.Decimal
			if err := json.Unmarshal(v, &amount); err == nil {
				add(name, amount, 0)
				continue
			}
			var obj struct {
				Amount    decimal.Decimal `json:"amount"`
				Customers int             `json:"customers"`
				Count     int             `json:"count"`
			}
			if err := json.Unmarshal(v, &obj); err == nil {
				add(name, obj.Amount, obj.Customers+obj.Count)
			}
		}
	}
	report.Balances = decodeSlice[ledger.OutstandingBalance](body["balances"])

	var total decimal.Decimal
	if err := json.Unmarshal(body["total"], &total); err == nil {
		report.Total = total
	} else {
		for _, b := range report.Buckets {
			report.Total = report.Total.Add(b.Amount)
		}
	}
	if err := json.Unmarshal(body["overdueCustomers"], &report.Overdue); err != nil {
		report.Overdue = 0
		for _, b := range report.Buckets {
			if b.Bucket != ledger.BucketCurrent {
				report.Overdue += b.Customers
			}
		}
	}
	return report
}

// AdaptDailyReport normalises {data: {date, payments, summary}}. A missing
// summary is computed from the payment rows.
func AdaptDailyReport(raw []byte) ledger.DailyPaymentReport {
	body := fields(raw)
	if data, ok := body["data"]; ok {
		body = fields(data)
	}
	var report ledger.DailyPaymentReport
	_ = json.Unmarshal(body["date"], &report.Date)
	report.Payments = decodeSlice[ledger.Payment](body["payments"])
	summary := ledger.SummarizePayments(report.Payments)
	if rawSummary, ok := body["summary"]; ok {
		var s ledger.DailySummary
		if err := json.Unmarshal(rawSummary, &s); err == nil && s.Count > 0 {
			if s.ByMethod == nil {
				s.ByMethod = summary.ByMethod
			}
			if s.ByStatus == nil {
				s.ByStatus = summary.ByStatus
			}
			summary = s
		}
	}
	report.Summary = summary
	return report
}
