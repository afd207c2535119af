package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/refill-ledger/ledger/internal/jobs"
)

// Metrics collects the Prometheus metrics of the dashboard, the backend client
// and the worker.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	apiRequests     *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	tokenRefreshes  *prometheus.CounterVec
	cacheBumps      *prometheus.CounterVec
	creditBlocks    prometheus.Counter

	// Jobs shares the registry so a single /metrics endpoint serves both.
	Jobs *jobmetrics.Metrics
}

// NewMetrics builds a private registry with every ledger collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "HTTP requests served, by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_api_requests_total",
		Help: "Requests sent to the ledger backend, by method, resource and status.",
	}, []string{"method", "resource", "code"})
	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_api_request_duration_seconds",
		Help:    "Ledger backend round-trip duration per resource.",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource"})
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_token_refresh_total",
		Help: "Access token refresh attempts, by outcome.",
	}, []string{"outcome"})
	bumps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_cache_invalidations_total",
		Help: "Query cache namespace version bumps observed.",
	}, []string{"namespace"})
	blocks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_credit_blocked_total",
		Help: "Credit sales rejected because the credit limit would be exceeded.",
	})
	registry.MustRegister(requests, duration, apiRequests, apiDuration, refreshes, bumps, blocks)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		apiRequests:     apiRequests,
		apiDuration:     apiDuration,
		tokenRefreshes:  refreshes,
		cacheBumps:      bumps,
		creditBlocks:    blocks,
		Jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler returns the http.Handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveAPIRequest records one backend round trip. Status 0 means the
// request never produced a response.
func (m *Metrics) ObserveAPIRequest(method, resource string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.apiRequests.WithLabelValues(method, resource, code).Inc()
	m.apiDuration.WithLabelValues(resource).Observe(elapsed.Seconds())
}

// ObserveTokenRefresh counts a refresh attempt.
func (m *Metrics) ObserveTokenRefresh(outcome string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(outcome).Inc()
}

// ObserveCacheBump counts a namespace version bump.
func (m *Metrics) ObserveCacheBump(namespace string) {
	if m == nil {
		return
	}
	m.cacheBumps.WithLabelValues(namespace).Inc()
}

// ObserveCreditBlocked counts a rejected credit sale.
func (m *Metrics) ObserveCreditBlocked() {
	if m == nil {
		return
	}
	m.creditBlocks.Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
