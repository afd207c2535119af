// Package dashboard serves the back-office dashboard: metrics, reports,
// charts and the validated sale and payment endpoints.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/analytics"
	"github.com/refill-ledger/ledger/internal/api"
	"github.com/refill-ledger/ledger/internal/charts"
	"github.com/refill-ledger/ledger/internal/dates"
	"github.com/refill-ledger/ledger/internal/export"
	"github.com/refill-ledger/ledger/internal/forms"
	"github.com/refill-ledger/ledger/internal/ledger"
	"github.com/refill-ledger/ledger/internal/money"
	"github.com/refill-ledger/ledger/internal/platform/httpx"
	"github.com/refill-ledger/ledger/internal/querycache"
	"github.com/refill-ledger/ledger/internal/view"
)

const requestTimeout = 8 * time.Second

// Backend is the subset of the ledger API client the handler calls.
type Backend interface {
	GetCustomer(ctx context.Context, id string) (ledger.Customer, error)
	CurrentSettings(ctx context.Context) (ledger.Settings, error)
	OutstandingBalance(ctx context.Context, customerID string) (*ledger.OutstandingBalance, error)
	CreateSale(ctx context.Context, in api.SaleInput, opts ...api.RequestOption) (ledger.Sale, error)
	GetPayment(ctx context.Context, id string) (ledger.Payment, error)
	RecordPayment(ctx context.Context, paymentID string, in api.TransactionInput, opts ...api.RequestOption) (ledger.Payment, error)
	DailyReport(ctx context.Context, date string) (ledger.DailyPaymentReport, error)
	SalesInRange(ctx context.Context, r dates.Range) ([]ledger.Sale, error)
	AllCustomers(ctx context.Context) ([]ledger.Customer, error)
}

// Insights computes the aggregated views.
type Insights interface {
	Dashboard(ctx context.Context, r dates.Range) (analytics.Dashboard, error)
	Aging(ctx context.Context) (ledger.AgingReport, error)
}

// Observer receives dashboard level observations.
type Observer interface {
	ObserveCreditBlocked()
}

type noopObserver struct{}

func (noopObserver) ObserveCreditBlocked() {}

// Deps wires the handler.
type Deps struct {
	Logger   *slog.Logger
	Backend  Backend
	Insights Insights
	Cache    *querycache.Cache
	Lock     *CreditLock
	Observer Observer
	Clock    dates.Clock
	// Templates enables the HTML dashboard page at "/".
	Templates *view.Engine
}

// Handler serves the dashboard JSON, CSV and SVG endpoints.
type Handler struct {
	logger    *slog.Logger
	backend   Backend
	insights  Insights
	cache     *querycache.Cache
	lock      *CreditLock
	observer  Observer
	clock     dates.Clock
	templates *view.Engine
}

// NewHandler builds a Handler.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		logger:    deps.Logger,
		backend:   deps.Backend,
		insights:  deps.Insights,
		cache:     deps.Cache,
		lock:      deps.Lock,
		observer:  deps.Observer,
		clock:     deps.Clock,
		templates: deps.Templates,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.lock == nil {
		h.lock = NewCreditLock(nil, 0)
	}
	if h.observer == nil {
		h.observer = noopObserver{}
	}
	return h
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	d, err := h.insights.Dashboard(ctx, rng)
	if err != nil {
		h.serverError(w, "load dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	d, err := h.insights.Dashboard(ctx, rng)
	if err != nil {
		h.serverError(w, "load dashboard", err)
		return
	}
	data := view.TemplateData{
		Title:       "Dashboard",
		CurrentPath: r.URL.Path,
		Theme:       charts.ThemeByName(r.URL.Query().Get("theme")).Name,
		Data:        d,
	}
	if err := h.templates.Render(w, "pages/dashboard.html", data); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
	}
}

func (h *Handler) handleAging(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	report, err := h.insights.Aging(ctx)
	if err != nil {
		h.serverError(w, "load aging", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadDailyReport(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleDailyReportCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadDailyReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DailyFilename(report.Date)))
	if err := export.WriteDailyPaymentsCSV(w, report); err != nil {
		h.logger.Error("write daily csv", slog.String("date", report.Date), slog.Any("error", err))
	}
}

func (h *Handler) loadDailyReport(w http.ResponseWriter, r *http.Request) (ledger.DailyPaymentReport, bool) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = dates.Today(h.clock.Now())
	}
	if _, err := dates.ParseKey(date); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: date must be YYYY-MM-DD", httpx.ErrValidation))
		return ledger.DailyPaymentReport{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	report, err := h.backend.DailyReport(ctx, date)
	if err != nil {
		h.serverError(w, "load daily report", err)
		return ledger.DailyPaymentReport{}, false
	}
	if report.Date == "" {
		report.Date = date
	}
	return report, true
}

func (h *Handler) handleSalesCSV(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	sales, err := h.backend.SalesInRange(ctx, rng)
	if err != nil {
		h.serverError(w, "load sales", err)
		return
	}
	customers, err := h.backend.AllCustomers(ctx)
	if err != nil {
		h.serverError(w, "load customers", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "sales-"+rng.Start+"-to-"+rng.End+".csv"))
	if err := export.WriteSalesCSV(w, sales, customers); err != nil {
		h.logger.Error("write sales csv", slog.String("range", rng.String()), slog.Any("error", err))
	}
}

// creditPreview is the response of the credit check endpoint.
type creditPreview struct {
	CustomerID    string               `json:"customerId"`
	Quantity      int                  `json:"quantity"`
	UnitPrice     decimal.Decimal      `json:"unitPrice"`
	PriceSource   ledger.PriceSource   `json:"priceSource"`
	Total         decimal.Decimal      `json:"total"`
	CreditEnabled bool                 `json:"creditEnabled"`
	Credit        *ledger.CreditResult `json:"credit,omitempty"`
	Message       string               `json:"message,omitempty"`
}

func (h *Handler) handleCreditPreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	quantity := 1
	if raw := strings.TrimSpace(r.URL.Query().Get("quantity")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > forms.MaxQuantity {
			httpx.RespondError(w, forms.FieldErrors{"quantity": fmt.Sprintf("Quantity must be between 1 and %d", forms.MaxQuantity)})
			return
		}
		quantity = n
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	customer, settings, err := h.customerAndSettings(ctx, id)
	if err != nil {
		h.serverError(w, "load customer", err)
		return
	}
	if customer == nil {
		httpx.RespondError(w, fmt.Errorf("%w: customer %s", ledger.ErrNotFound, id))
		return
	}
	price, source := ledger.ResolvePrice(customer, settings)
	out := creditPreview{
		CustomerID:    id,
		Quantity:      quantity,
		UnitPrice:     price,
		PriceSource:   source,
		Total:         ledger.LineTotal(quantity, price),
		CreditEnabled: settings.CreditEnabled,
	}
	if settings.CreditEnabled {
		balance, err := h.balance(ctx, id)
		if err != nil {
			h.serverError(w, "load balance", err)
			return
		}
		result, _ := ledger.CheckCustomerCredit(customer, settings, balance, quantity)
		out.Credit = &result
		out.Message = result.Message()
	}
	httpx.JSON(w, http.StatusOK, out)
}

// saleResponse wraps a created sale with the pricing preview.
type saleResponse struct {
	Sale    ledger.Sale     `json:"sale"`
	Check   forms.SaleCheck `json:"check"`
	Warning string          `json:"warning,omitempty"`
}

func (h *Handler) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var form forms.SaleForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	customerID := strings.TrimSpace(form.CustomerID)
	customer, settings, err := h.customerAndSettings(ctx, customerID)
	if err != nil {
		h.serverError(w, "load customer", err)
		return
	}

	balance := decimal.Zero
	if form.PaymentType == ledger.PaymentCredit && customer != nil {
		release, err := h.lock.Acquire(ctx, customerID)
		if err != nil {
			if errors.Is(err, ErrLockBusy) {
				httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
				return
			}
			h.serverError(w, "acquire credit lock", err)
			return
		}
		defer release()
		// The balance is read under the lock, right before the commit.
		balance, err = h.balance(ctx, customerID)
		if err != nil {
			h.serverError(w, "load balance", err)
			return
		}
	}

	check, fieldErrs := forms.ValidateSale(form, customer, settings, balance)
	if len(fieldErrs) > 0 {
		if _, blocked := fieldErrs["creditLimit"]; blocked {
			h.observer.ObserveCreditBlocked()
		}
		httpx.RespondError(w, fieldErrs)
		return
	}

	sale, err := h.backend.CreateSale(ctx, api.SaleInput{
		CustomerID:  customerID,
		Quantity:    form.Quantity,
		PaymentType: form.PaymentType,
		Notes:       form.NotesPtr(),
	}, api.WithIdempotencyKey(idempotencyKey(r)))
	if err != nil {
		h.serverError(w, "create sale", err)
		return
	}
	h.invalidate(ctx, querycache.Sales, querycache.Debts, querycache.Customers, querycache.Payments)
	h.logger.Info("sale recorded",
		slog.String("sale_id", sale.ID),
		slog.String("customer_id", customerID),
		slog.String("payment_type", string(form.PaymentType)),
		slog.String("total", money.FormatCurrency(check.Total)))
	httpx.JSON(w, http.StatusCreated, saleResponse{Sale: sale, Check: check, Warning: check.Warning})
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var form forms.PaymentForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	payment, err := h.backend.GetPayment(ctx, id)
	if err != nil {
		h.serverError(w, "load payment", err)
		return
	}
	if errs := forms.ValidatePayment(form, payment); len(errs) > 0 {
		httpx.RespondError(w, errs)
		return
	}
	updated, err := h.backend.RecordPayment(ctx, id, api.TransactionInput{
		Amount: form.Amount,
		Method: form.Method,
		Notes:  form.NotesPtr(),
	}, api.WithIdempotencyKey(idempotencyKey(r)))
	if err != nil {
		h.serverError(w, "record payment", err)
		return
	}
	h.invalidate(ctx, querycache.Payments, querycache.Debts, querycache.Customers)
	h.logger.Info("payment recorded",
		slog.String("payment_id", id),
		slog.String("amount", money.FormatCurrency(form.Amount)),
		slog.String("status", string(updated.Status)))
	httpx.JSON(w, http.StatusOK, updated)
}

// customerAndSettings loads the settings and, when id is set, the customer. A customer
// unknown to the backend yields a nil customer and no error.
func (h *Handler) customerAndSettings(ctx context.Context, id string) (*ledger.Customer, ledger.Settings, error) {
	settings, err := h.backend.CurrentSettings(ctx)
	if err != nil {
		return nil, ledger.Settings{}, err
	}
	if id == "" {
		return nil, settings, nil
	}
	c, err := h.backend.GetCustomer(ctx, id)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, settings, nil
		}
		return nil, ledger.Settings{}, err
	}
	return &c, settings, nil
}

func (h *Handler) balance(ctx context.Context, customerID string) (decimal.Decimal, error) {
	ob, err := h.backend.OutstandingBalance(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	if ob == nil {
		return decimal.Zero, nil
	}
	return ob.TotalOwed, nil
}

func (h *Handler) invalidate(ctx context.Context, namespaces ...querycache.Namespace) {
	if err := h.cache.Invalidate(ctx, namespaces...); err != nil {
		h.logger.Warn("cache invalidate", slog.Any("error", err))
	}
}

// parseRange reads range=today|week|month|7d|30d|custom with start and end
// for custom ranges.
func (h *Handler) parseRange(r *http.Request) (dates.Range, error) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("range"))
	start, end := strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end"))
	if name == "custom" || (name == "" && start != "" && end != "") {
		rng, err := dates.NewRange(start, end)
		if err != nil {
			return dates.Range{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
		return rng, nil
	}
	rng, err := dates.Preset(name, h.clock.Now())
	if err != nil {
		return dates.Range{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return rng, nil
}

func (h *Handler) serverError(w http.ResponseWriter, action string, err error) {
	normalised := api.HandleAPIError(err)
	if normalised.StatusCode >= 400 && normalised.StatusCode < 500 {
		h.logger.Warn(action, slog.Int("status", normalised.StatusCode), slog.String("message", normalised.Message))
	} else {
		h.logger.Error(action, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func idempotencyKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
		return key
	}
	return uuid.NewString()
}
