package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for auth counters.
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	loginsTotal     *prometheus.CounterVec
	signupsTotal    *prometheus.CounterVec
	logoutsTotal    prometheus.Counter
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webpage_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webpage_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webpage_auth_attempts_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})
	signups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webpage_signups_total",
		Help: "Signup submissions by outcome.",
	}, []string{"outcome"})
	logouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webpage_logouts_total",
		Help: "Logouts of authenticated sessions.",
	})
	registry.MustRegister(requests, duration, logins, signups, logouts)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		loginsTotal:     logins,
		signupsTotal:    signups,
		logoutsTotal:    logouts,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
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

// ObserveLogin counts a login attempt.
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSignup counts a signup submission.
func (m *Metrics) ObserveSignup(outcome string) {
	if m == nil {
		return
	}
	m.signupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveLogout counts a logout that ended an authenticated session.
func (m *Metrics) ObserveLogout() {
	if m == nil {
		return
	}
	m.logoutsTotal.Inc()
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
