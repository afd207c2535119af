package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/ledger"
)

// SalesQuery filters the sales list.
type SalesQuery struct {
	ListParams
	CustomerID  string
	PaymentType ledger.PaymentType
	Range       *dates.Range
}

// SaleInput is the create and update payload. The backend prices the sale.
type SaleInput struct {
	CustomerID  string             `json:"customerId"`
	Quantity    int                `json:"quantity"`
	PaymentType ledger.PaymentType `json:"paymentType"`
	Notes       *string            `json:"notes,omitempty"`
}

// ListSales returns one page of sales.
func (c *Client) ListSales(ctx context.Context, q SalesQuery) (List[ledger.Sale], error) {
	values := q.values()
	if q.CustomerID != "" {
		values.Set("customerId", q.CustomerID)
	}
	if q.PaymentType != "" {
		values.Set("paymentType", string(q.PaymentType))
	}
	if q.Range != nil {
		values.Set("startDate", q.Range.Start)
		values.Set("endDate", q.Range.End)
	}
	body, err := c.call(ctx, http.MethodGet, "/sales", values, nil)
	if err != nil {
		return List[ledger.Sale]{}, err
	}
	return AdaptSalesListResponse(body), nil
}

// GetSale returns one sale.
func (c *Client) GetSale(ctx context.Context, id string) (ledger.Sale, error) {
	body, err := c.call(ctx, http.MethodGet, "/sales/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return ledger.Sale{}, err
	}
	return AdaptSingle[ledger.Sale](body).Data, nil
}

// CreateSale records a sale.
func (c *Client) CreateSale(ctx context.Context, in SaleInput, opts ...RequestOption) (ledger.Sale, error) {
	body, err := c.call(ctx, http.MethodPost, "/sales", nil, in, opts...)
	if err != nil {
		return ledger.Sale{}, err
	}
	return AdaptSingle[ledger.Sale](body).Data, nil
}

// UpdateSale edits a sale inside its edit window.
func (c *Client) UpdateSale(ctx context.Context, id string, in SaleInput) (ledger.Sale, error) {
	body, err := c.call(ctx, http.MethodPut, "/sales/"+url.PathEscape(id), nil, in)
	if err != nil {
		return ledger.Sale{}, err
	}
	return AdaptSingle[ledger.Sale](body).Data, nil
}

// DeleteSale removes a sale.
func (c *Client) DeleteSale(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/sales/"+url.PathEscape(id), nil, nil)
	return err
}
