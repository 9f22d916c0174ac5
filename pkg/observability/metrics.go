package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the identity pipeline
type Metrics struct {
	// Login pipeline metrics
	LoginsTotal       *prometheus.CounterVec
	LoginDuration     *prometheus.HistogramVec
	PendingRejections *prometheus.CounterVec

	// Account provisioning metrics
	AccountsCreated   *prometheus.CounterVec
	AccountCreateRace prometheus.Counter

	// Directory metrics
	DirectoryOpsTotal   *prometheus.CounterVec
	DirectoryOpDuration *prometheus.HistogramVec

	// Session identity cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idgate_logins_total",
				Help: "Total number of processed authentication events",
			},
			[]string{"kind", "provider", "outcome"},
		),
		LoginDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "idgate_login_duration_seconds",
				Help:    "End-to-end customizer chain duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "provider"},
		),
		PendingRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idgate_pending_rejections_total",
				Help: "Logins rejected because the account awaits moderation",
			},
			[]string{"provider"},
		),
		AccountsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idgate_accounts_created_total",
				Help: "Accounts created by first-time logins",
			},
			[]string{"provider", "pending"},
		),
		AccountCreateRace: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idgate_account_create_races_total",
				Help: "Duplicate-key insert races recovered by re-reading",
			},
		),
		DirectoryOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idgate_directory_operations_total",
				Help: "Directory operations by type and status",
			},
			[]string{"operation", "status"},
		),
		DirectoryOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "idgate_directory_operation_duration_seconds",
				Help:    "Directory operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idgate_session_cache_hits_total",
				Help: "Session identity cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idgate_session_cache_misses_total",
				Help: "Session identity cache misses",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.LoginsTotal,
		m.LoginDuration,
		m.PendingRejections,
		m.AccountsCreated,
		m.AccountCreateRace,
		m.DirectoryOpsTotal,
		m.DirectoryOpDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLogin records one processed authentication event
func (m *Metrics) ObserveLogin(kind, provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(kind, provider, outcome).Inc()
	m.LoginDuration.WithLabelValues(kind, provider).Observe(elapsed.Seconds())
}

// ObserveDirectoryOp records one directory round-trip
func (m *Metrics) ObserveDirectoryOp(operation, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DirectoryOpsTotal.WithLabelValues(operation, status).Inc()
	m.DirectoryOpDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
