package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/assoc-server/internal/guard"
)

// Metrics holds the prometheus collectors of the site.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	GuardDecisionsTotal   *prometheus.CounterVec
	GuardDecisionDuration *prometheus.HistogramVec
	GuardIncidentsTotal   *prometheus.CounterVec

	AuthOperationsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

var _ guard.Observer = (*Metrics)(nil)

// NewMetrics creates and registers all collectors on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assoc_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assoc_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assoc_guard_decisions_total",
				Help: "Total number of terminal route guard decisions",
			},
			[]string{"guard", "state", "code"},
		),
		GuardDecisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assoc_guard_decision_duration_seconds",
				Help:    "Time spent verifying access",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"guard"},
		),
		GuardIncidentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assoc_guard_incidents_total",
				Help: "Denials caused by profile tampering or suspended accounts",
			},
			[]string{"guard", "code"},
		),
		AuthOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assoc_auth_operations_total",
				Help: "Sign-in, sign-up and sign-out attempts",
			},
			[]string{"operation", "result"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GuardDecisionsTotal,
		m.GuardDecisionDuration,
		m.GuardIncidentsTotal,
		m.AuthOperationsTotal,
	)

	return m
}

// ObserveDecision records a guard outcome.
func (m *Metrics) ObserveDecision(guardName string, d guard.Decision, elapsed time.Duration) {
	code := d.Code
	if code == "" {
		code = "none"
	}
	m.GuardDecisionsTotal.WithLabelValues(guardName, d.State.String(), code).Inc()
	m.GuardDecisionDuration.WithLabelValues(guardName).Observe(elapsed.Seconds())

	if d.Code == guard.CodeProfileInconsistency || d.Code == guard.CodeAccountSuspended {
		m.GuardIncidentsTotal.WithLabelValues(guardName, d.Code).Inc()
	}
}

// ObserveAuth counts an auth operation by outcome.
func (m *Metrics) ObserveAuth(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.AuthOperationsTotal.WithLabelValues(operation, result).Inc()
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware instruments requests. Routes are labelled by their chi
// pattern so path parameters do not explode cardinality.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
