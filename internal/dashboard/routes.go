package dashboard

import "github.com/go-chi/chi/v5"

// MountRoutes registers the dashboard API and chart endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	if h.templates != nil {
		r.Get("/", h.handlePage)
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/reports/daily", h.handleDailyReport)
		r.Get("/reports/daily.csv", h.handleDailyReportCSV)
		r.Get("/reports/sales.csv", h.handleSalesCSV)
		r.Get("/reports/aging", h.handleAging)
		r.Get("/customers/{id}/credit", h.handleCreditPreview)
		r.Post("/sales", h.handleCreateSale)
		r.Post("/payments/{id}/transactions", h.handleRecordPayment)
	})
	r.Get("/charts/revenue.svg", h.handleRevenueChart)
	r.Get("/charts/payment-split.svg", h.handlePaymentSplitChart)
}
