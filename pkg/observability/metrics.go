package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	LoginAttemptsTotal      *prometheus.CounterVec
	LockoutsTotal           *prometheus.CounterVec
	RegistrationsTotal      *prometheus.CounterVec
	TokenVerificationsTotal *prometheus.CounterVec
	ActiveSessions          prometheus.Gauge

	// Attempt ledger
	LedgerPurgedTotal   prometheus.Counter
	LedgerPurgeFailures prometheus.Counter
	LedgerPurgeDuration prometheus.Histogram

	// Database metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitCount        prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laot_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "laot_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laot_auth_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		LockoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laot_auth_lockouts_total",
				Help: "Login attempts refused because the caller is locked out, by the key that tripped",
			},
			[]string{"key"},
		),
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laot_auth_registrations_total",
				Help: "Registrations by outcome",
			},
			[]string{"outcome"},
		),
		TokenVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laot_auth_token_verifications_total",
				Help: "Bearer token verifications by outcome",
			},
			[]string{"outcome"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "laot_sessions_active",
				Help: "Number of live web sessions",
			},
		),

		LedgerPurgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "laot_ledger_purged_attempts_total",
				Help: "Login attempts removed by retention purges",
			},
		),
		LedgerPurgeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "laot_ledger_purge_failures_total",
				Help: "Retention purges that returned an error",
			},
		),
		LedgerPurgeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "laot_ledger_purge_duration_seconds",
				Help:    "Retention purge duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 30},
			},
		),

		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "laot_db_connections_open",
				Help: "Number of open database connections",
			},
		),
		DBConnectionsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "laot_db_connections_in_use",
				Help: "Number of database connections in use",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "laot_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "laot_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.LockoutsTotal,
		m.RegistrationsTotal,
		m.TokenVerificationsTotal,
		m.ActiveSessions,
		m.LedgerPurgedTotal,
		m.LedgerPurgeFailures,
		m.LedgerPurgeDuration,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBWaitCount,
	)

	return m
}

// RecordLogin counts a login attempt outcome
func (m *Metrics) RecordLogin(outcome string) {
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordLockout counts a refused attempt against the key that tripped
func (m *Metrics) RecordLockout(key string) {
	m.LockoutsTotal.WithLabelValues(key).Inc()
}

// RecordRegistration counts a registration outcome
func (m *Metrics) RecordRegistration(outcome string) {
	m.RegistrationsTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenVerification counts a bearer token check outcome
func (m *Metrics) RecordTokenVerification(outcome string) {
	m.TokenVerificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordPurge records one retention purge
func (m *Metrics) RecordPurge(removed int64, took time.Duration, err error) {
	m.LedgerPurgeDuration.Observe(took.Seconds())
	if err != nil {
		m.LedgerPurgeFailures.Inc()
	}
	if removed > 0 {
		m.LedgerPurgedTotal.Add(float64(removed))
	}
}

// ObserveDBStats copies connection pool statistics into the gauges
func (m *Metrics) ObserveDBStats(stats sql.DBStats) {
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBWaitCount.Set(float64(stats.WaitCount))
}

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel returns the mux path template so ids do not explode label
// cardinality. Unmatched requests share one label.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Register it with router.Use so the matched route is known.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(serveMux *http.ServeMux, gatherer prometheus.Gatherer) {
	serveMux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
