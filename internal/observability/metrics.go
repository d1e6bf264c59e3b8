package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus registry for the API process.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	invoices        *prometheus.CounterVec
	payments        *prometheus.CounterVec
	paymentAmount   *prometheus.CounterVec
}

// NewMetrics builds the registry with HTTP and business collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedmill_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedmill_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	invoices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedmill_invoices_created_total",
		Help: "Invoices created by currency.",
	}, []string{"currency"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedmill_payments_recorded_total",
		Help: "Payments recorded by currency.",
	}, []string{"currency"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedmill_payments_amount_total",
		Help: "Sum of recorded payment amounts by currency.",
	}, []string{"currency"})
	registry.MustRegister(requests, duration, invoices, payments, amount,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		invoices:        invoices,
		payments:        payments,
		paymentAmount:   amount,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency for every request by route pattern.
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

// Registerer exposes the registry for extra collectors such as job metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// InvoiceCreated counts a new invoice.
func (m *Metrics) InvoiceCreated(currency string) {
	if m == nil {
		return
	}
	m.invoices.WithLabelValues(currency).Inc()
}

// PaymentRecorded counts a payment and adds its amount.
func (m *Metrics) PaymentRecorded(currency string, amount float64) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(currency).Inc()
	m.paymentAmount.WithLabelValues(currency).Add(amount)
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
