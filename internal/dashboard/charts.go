package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/refill-ledger/ledger/internal/analytics"
	"github.com/refill-ledger/ledger/internal/charts"
	"github.com/refill-ledger/ledger/internal/money"
)

func (h *Handler) handleRevenueChart(w http.ResponseWriter, r *http.Request) {
	h.serveChart(w, r, "revenue", func(d analytics.Dashboard, theme charts.Theme) ([]byte, error) {
		series := make([]float64, len(d.Daily))
		labels := make([]string, len(d.Daily))
		for i, p := range d.Daily {
			series[i] = p.Revenue.InexactFloat64()
			labels[i] = p.Date[5:]
		}
		return charts.Line(charts.DefaultWidth, charts.DefaultHeight, series, labels, charts.LineOpts{
			Title:       "Daily revenue",
			Description: "Revenue per day, " + d.Range.String() + ", total " + money.FormatCurrency(d.Current.Revenue),
			Theme:       theme,
			ShowDots:    len(series) <= 31,
		})
	})
}

func (h *Handler) handlePaymentSplitChart(w http.ResponseWriter, r *http.Request) {
	h.serveChart(w, r, "payment-split", func(d analytics.Dashboard, theme charts.Theme) ([]byte, error) {
		cash := make([]float64, len(d.Daily))
		credit := make([]float64, len(d.Daily))
		labels := make([]string, len(d.Daily))
		for i, p := range d.Daily {
			cash[i] = p.Cash.InexactFloat64()
			credit[i] = p.Credit.InexactFloat64()
			labels[i] = p.Date[5:]
		}
		return charts.Bars(charts.DefaultWidth, charts.DefaultHeight, cash, credit, labels, charts.BarOpts{
			Title:        "Cash vs credit",
			Description:  "Cash " + money.FormatPercent(d.Split.CashPercent, 1) + ", credit " + money.FormatPercent(d.Split.CreditPercent, 1),
			SeriesALabel: "Cash",
			SeriesBLabel: "Credit",
			Theme:        theme,
		})
	})
}

// serveChart loads the dashboard and renders it through SafeRender, so a
// backend or render failure still answers 200 with the placeholder chart.
func (h *Handler) serveChart(w http.ResponseWriter, r *http.Request, name string, draw func(analytics.Dashboard, charts.Theme) ([]byte, error)) {
	theme := charts.ThemeByName(r.URL.Query().Get("theme"))
	svg, err := charts.SafeRender(func() ([]byte, error) {
		rng, err := h.parseRange(r)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		d, err := h.insights.Dashboard(ctx, rng)
		if err != nil {
			return nil, err
		}
		return draw(d, theme)
	}, r.URL.RequestURI())
	if err != nil {
		h.logger.Warn("chart render", slog.String("chart", name), slog.Any("error", err))
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(svg)
}
