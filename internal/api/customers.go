package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/ledger"
)

// ListParams pages and filters list endpoints.
type ListParams struct {
	Page   int
	Limit  int
	Search string
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	return q
}

// CustomerQuery filters the customer list.
type CustomerQuery struct {
	ListParams
	Location ledger.Location
	Status   ledger.CollectionStatus
}

// CustomerInput is the create and update payload.
type CustomerInput struct {
	Name            string           `json:"name"`
	Location        ledger.Location  `json:"location"`
	Phone           *string          `json:"phone,omitempty"`
	CustomUnitPrice *decimal.Decimal `json:"customUnitPrice,omitempty"`
	CreditLimit     *decimal.Decimal `json:"creditLimit,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
}

// ListCustomers returns one page of customers.
func (c *Client) ListCustomers(ctx context.Context, q CustomerQuery) (List[ledger.Customer], error) {
	values := q.values()
	if q.Location != "" {
		values.Set("location", string(q.Location))
	}
	if q.Status != "" {
		values.Set("collectionStatus", string(q.Status))
	}
	body, err := c.call(ctx, http.MethodGet, "/customers", values, nil)
	if err != nil {
		return List[ledger.Customer]{}, err
	}
	return AdaptCustomerListResponse(body), nil
}

// GetCustomer returns one customer.
func (c *Client) GetCustomer(ctx context.Context, id string) (ledger.Customer, error) {
	body, err := c.call(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return ledger.Customer{}, err
	}
	return AdaptSingle[ledger.Customer](body).Data, nil
}

// CreateCustomer registers a customer.
func (c *Client) CreateCustomer(ctx context.Context, in CustomerInput) (ledger.Customer, error) {
	body, err := c.call(ctx, http.MethodPost, "/customers", nil, in)
	if err != nil {
		return ledger.Customer{}, err
	}
	return AdaptSingle[ledger.Customer](body).Data, nil
}

// UpdateCustomer replaces a customer's editable fields.
func (c *Client) UpdateCustomer(ctx context.Context, id string, in CustomerInput) (ledger.Customer, error) {
	body, err := c.call(ctx, http.MethodPut, "/customers/"+url.PathEscape(id), nil, in)
	if err != nil {
		return ledger.Customer{}, err
	}
	return AdaptSingle[ledger.Customer](body).Data, nil
}

// DeleteCustomer removes a customer.
func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/customers/"+url.PathEscape(id), nil, nil)
	return err
}
