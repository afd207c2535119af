package view

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refill-ledger/ledger/internal/analytics"
	"github.com/refill-ledger/ledger/internal/dates"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderDashboardPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	d := analytics.Dashboard{
		Range:       dates.Range{Start: "2024-03-11", End: "2024-03-15"},
		Current:     analytics.PeriodMetrics{Revenue: decimal.NewFromInt(1250), Quantity: 50, TransactionCount: 12},
		GeneratedAt: time.Date(2024, 3, 15, 9, 30, 0, 0, dates.Location()),
		TopCustomers: []analytics.CustomerRow{
			{Name: "Ana <script>", Revenue: decimal.NewFromInt(500)},
		},
	}
	rr := httptest.NewRecorder()
	require.NoError(t, engine.Render(rr, "pages/dashboard.html", TemplateData{Title: "Dashboard", CurrentPath: "/", Data: d}))

	body := rr.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, body, "₱1,250.00")
	assert.Contains(t, body, "Ana &lt;script&gt;")
	assert.Contains(t, body, "/charts/revenue.svg?range=custom&amp;start=2024-03-11&amp;end=2024-03-15")
}
