package api

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/ledger"
)

func TestAdaptSalesListResponse(t *testing.T) {
	raw := []byte(`{"data":{"data":[{"id":"s1","customerId":"A","quantity":2,"total":50},{"id":"s2","quantity":1,"total":"25.00"}],
		"pagination":{"page":1,"limit":20,"total":2,"totalPages":1}}}`)
	list := AdaptSalesListResponse(raw)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "s1", list.Data[0].ID)
	assert.Equal(t, "25", list.Data[1].Total.String())
	require.NotNil(t, list.Pagination)
	assert.Equal(t, 2, list.Pagination.Total)
	assert.False(t, list.Pagination.HasNext())
}

func TestAdaptSalesListResponseMalformed(t *testing.T) {
	cases := map[string]string{
		"missing pagination": `{"data":{"data":[{"id":"s1"}]}}`,
		"flat data":          `{"data":[{"id":"s1"}]}`,
		"null":               `null`,
		"garbage":            `not json`,
		"empty":              ``,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var list List[ledger.Sale]
			assert.NotPanics(t, func() { list = AdaptSalesListResponse([]byte(raw)) })
			assert.Nil(t, list.Pagination)
			assert.NotNil(t, list.Data)
		})
	}
	assert.Len(t, AdaptSalesListResponse([]byte(cases["missing pagination"])).Data, 1)
}

func TestAdaptCustomerListResponse(t *testing.T) {
	raw := []byte(`{"data":[{"id":"c1","name":"Ana","location":"POBLACION"}],"pagination":{"page":1,"totalPages":3}}`)
	list := AdaptCustomerListResponse(raw)
	require.Len(t, list.Data, 1)
	assert.Equal(t, ledger.LocationPoblacion, list.Data[0].Location)
	assert.True(t, list.Pagination.HasNext())
}

func TestAdaptFlatList(t *testing.T) {
	bare := AdaptFlatList[ledger.Setting]([]byte(`[{"key":"unit_price","value":"23"}]`))
	wrapped := AdaptFlatList[ledger.Setting]([]byte(`{"data":[{"key":"unit_price","value":"23"}]}`))
	assert.Equal(t, bare, wrapped)
	assert.Len(t, bare.Data, 1)
	assert.Empty(t, AdaptFlatList[ledger.Setting]([]byte(`{"data":{}}`)).Data)
}

func TestAdaptSingleAndNullable(t *testing.T) {
	assert.Equal(t, "u1", AdaptSingle[ledger.User]([]byte(`{"data":{"id":"u1"}}`)).Data.ID)
	assert.Equal(t, "u2", AdaptSingle[ledger.User]([]byte(`{"id":"u2"}`)).Data.ID)

	none := AdaptNullable[ledger.OutstandingBalance]([]byte(`{"data":null,"message":"No outstanding balance"}`))
	assert.Nil(t, none.Data)
	assert.Equal(t, "No outstanding balance", none.Message)

	some := AdaptNullable[ledger.OutstandingBalance]([]byte(`{"data":{"customerId":"c1","totalOwed":120}}`))
	require.NotNil(t, some.Data)
	assert.Equal(t, "120", some.Data.TotalOwed.String())
}

func TestAdaptAgingReport(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, dates.Location())

	list := AdaptAgingReport([]byte(`{"data":{"asOf":"2024-02-29","buckets":[
		{"bucket":"current","amount":100,"customers":2},{"bucket":"31-60","amount":"50.5","count":1},{"bucket":"bogus","amount":9}]}}`), now)
	assert.Equal(t, "2024-02-29", list.AsOf)
	require.Len(t, list.Buckets, len(ledger.Buckets))
	assert.Equal(t, "150.5", list.Total.String())
	assert.Equal(t, 1, list.Overdue)

	byName := AdaptAgingReport([]byte(`{"buckets":{"1-30":25,"90+":{"amount":75,"customers":3}},"total":100,"overdueCustomers":4}`), now)
	assert.Equal(t, "2024-03-01", byName.AsOf)
	assert.Equal(t, "100", byName.Total.String())
	assert.Equal(t, 4, byName.Overdue)

	empty := AdaptAgingReport([]byte(`{}`), now)
	assert.True(t, empty.Total.IsZero())
	assert.Len(t, empty.Buckets, len(ledger.Buckets))
}

func TestAdaptDailyReport(t *testing.T) {
	report := AdaptDailyReport([]byte(`{"data":{"date":"2024-01-05","payments":[
		{"id":"p1","customerId":"c1","amount":100,"paidAmount":40,"status":"PARTIAL"}]}}`))
	assert.Equal(t, "2024-01-05", report.Date)
	require.Len(t, report.Payments, 1)
	assert.Equal(t, 1, report.Summary.Count)
	assert.Equal(t, "60", report.Summary.TotalOutstanding.String())

	withSummary := AdaptDailyReport([]byte(`{"date":"2024-01-05","payments":[],"summary":{"count":3,"totalAmount":10,"totalCollected":10,"totalOutstanding":0}}`))
	assert.Equal(t, 3, withSummary.Summary.Count)
	assert.NotNil(t, withSummary.Summary.ByMethod)
}

func TestErrorFromResponse(t *testing.T) {
	e := errorFromResponse(422, []byte(`{"message":["name is required","phone is invalid"],"errors":{"name":"required","phone":["invalid"]}}`))
	assert.Equal(t, "name is required; phone is invalid", e.Message)
	assert.Equal(t, map[string]string{"name": "required", "phone": "invalid"}, e.Errors)

	plain := errorFromResponse(502, []byte(`<html>bad gateway</html>`))
	assert.Equal(t, "Bad Gateway", plain.Message)
	assert.Nil(t, plain.Errors)

	assert.Nil(t, HandleAPIError(nil))
	assert.False(t, IsNotFound(nil))
	assert.True(t, IsNotFound(errorFromResponse(404, nil)))
	assert.ErrorIs(t, errorFromResponse(404, []byte(`{"message":"Customer not found"}`)), ledger.ErrNotFound)
	assert.NotErrorIs(t, errorFromResponse(400, nil), ledger.ErrNotFound)
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", ledger.ErrNotFound)))

	paged := HandleAPIError(fmt.Errorf("%w: 50 of 80 pages read", ErrTooManyPages))
	assert.Contains(t, paged.Message, "narrow the date range")
	assert.ErrorIs(t, paged, ErrTooManyPages)
}
