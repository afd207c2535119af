package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/ledger"
)

// pageSize and maxPages bound the walk over paginated lists.
const (
	pageSize = 100
	maxPages = 50
)

// ErrTooManyPages is returned when a list still has pages left after
// maxPages; aggregating the rows read so far would undercount.
var ErrTooManyPages = errors.New("api: list exceeds page limit")

func collect[T any](ctx context.Context, fetch func(ctx context.Context, page int) (List[T], error)) ([]T, error) {
	var out []T
	for page := 1; ; page++ {
		list, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		out = append(out, list.Data...)
		if !list.Pagination.HasNext() || len(list.Data) == 0 {
			return out, nil
		}
		if page == maxPages {
			return nil, fmt.Errorf("%w: %d of %d pages read (%d rows)", ErrTooManyPages, page, list.Pagination.TotalPages, len(out))
		}
	}
}

// SalesInRange walks every page of sales inside r.
func (c *Client) SalesInRange(ctx context.Context, r dates.Range) ([]ledger.Sale, error) {
	return collect(ctx, func(ctx context.Context, page int) (List[ledger.Sale], error) {
		return c.ListSales(ctx, SalesQuery{ListParams: ListParams{Page: page, Limit: pageSize}, Range: &r})
	})
}

// AllCustomers walks every page of customers.
func (c *Client) AllCustomers(ctx context.Context) ([]ledger.Customer, error) {
	return collect(ctx, func(ctx context.Context, page int) (List[ledger.Customer], error) {
		return c.ListCustomers(ctx, CustomerQuery{ListParams: ListParams{Page: page, Limit: pageSize}})
	})
}

// AllPayments walks every page of payments matching q.
func (c *Client) AllPayments(ctx context.Context, q PaymentQuery) ([]ledger.Payment, error) {
	return collect(ctx, func(ctx context.Context, page int) (List[ledger.Payment], error) {
		q.Page, q.Limit = page, pageSize
		return c.ListPayments(ctx, q)
	})
}

// CurrentSettings is GetSettings under the name the aggregations use.
func (c *Client) CurrentSettings(ctx context.Context) (ledger.Settings, error) {
	return c.GetSettings(ctx)
}
