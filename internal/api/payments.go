package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/ledger"
)

// PaymentQuery filters the payment list.
type PaymentQuery struct {
	ListParams
	CustomerID string
	Status     ledger.PaymentStatus
}

// TransactionInput records a partial payment.
type TransactionInput struct {
	Amount decimal.Decimal      `json:"amount"`
	Method ledger.PaymentMethod `json:"method"`
	Notes  *string              `json:"notes,omitempty"`
}

// ListPayments returns one page of payments.
func (c *Client) ListPayments(ctx context.Context, q PaymentQuery) (List[ledger.Payment], error) {
	values := q.values()
	if q.CustomerID != "" {
		values.Set("customerId", q.CustomerID)
	}
	if q.Status != "" {
		values.Set("status", string(q.Status))
	}
	body, err := c.call(ctx, http.MethodGet, "/payments", values, nil)
	if err != nil {
		return List[ledger.Payment]{}, err
	}
	return AdaptPagedList[ledger.Payment](body), nil
}

// GetPayment returns one payment with its transactions.
func (c *Client) GetPayment(ctx context.Context, id string) (ledger.Payment, error) {
	body, err := c.call(ctx, http.MethodGet, "/payments/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return ledger.Payment{}, err
	}
	return AdaptSingle[ledger.Payment](body).Data, nil
}

// RecordPayment adds a partial payment to a payment.
func (c *Client) RecordPayment(ctx context.Context, paymentID string, in TransactionInput, opts ...RequestOption) (ledger.Payment, error) {
	body, err := c.call(ctx, http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/transactions", nil, in, opts...)
	if err != nil {
		return ledger.Payment{}, err
	}
	return AdaptSingle[ledger.Payment](body).Data, nil
}

// UpdatePaymentStatus sets a payment status, typically COLLECTION.
func (c *Client) UpdatePaymentStatus(ctx context.Context, paymentID string, status ledger.PaymentStatus) (ledger.Payment, error) {
	body, err := c.call(ctx, http.MethodPatch, "/payments/"+url.PathEscape(paymentID)+"/status", nil, map[string]ledger.PaymentStatus{"status": status})
	if err != nil {
		return ledger.Payment{}, err
	}
	return AdaptSingle[ledger.Payment](body).Data, nil
}

// DailyReport returns the payments of one business day.
func (c *Client) DailyReport(ctx context.Context, date string) (ledger.DailyPaymentReport, error) {
	body, err := c.call(ctx, http.MethodGet, "/payments/daily-report", url.Values{"date": {date}}, nil)
	if err != nil {
		return ledger.DailyPaymentReport{}, err
	}
	report := AdaptDailyReport(body)
	if report.Date == "" {
		report.Date = date
	}
	return report, nil
}
