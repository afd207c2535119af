package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/refill-ledger/ledger/internal/ledger"
)

// OutstandingBalance returns the debt summary of one customer, or nil when
// the customer owes nothing.
func (c *Client) OutstandingBalance(ctx context.Context, customerID string) (*ledger.OutstandingBalance, error) {
	body, err := c.call(ctx, http.MethodGet, "/debts/customer/"+url.PathEscape(customerID), nil, nil)
	if err != nil {
		return nil, err
	}
	return AdaptNullable[ledger.OutstandingBalance](body).Data, nil
}

// ListOutstanding returns every customer with a balance.
func (c *Client) ListOutstanding(ctx context.Context) ([]ledger.OutstandingBalance, error) {
	body, err := c.call(ctx, http.MethodGet, "/debts", nil, nil)
	if err != nil {
		return nil, err
	}
	return AdaptFlatList[ledger.OutstandingBalance](body).Data, nil
}

// Aging returns the backend aging report.
func (c *Client) Aging(ctx context.Context) (ledger.AgingReport, error) {
	body, err := c.call(ctx, http.MethodGet, "/debts/aging", nil, nil)
	if err != nil {
		return ledger.AgingReport{}, err
	}
	return AdaptAgingReport(body, c.clock.Now()), nil
}
