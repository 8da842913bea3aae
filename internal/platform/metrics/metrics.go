package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	TenantsCreated prometheus.Counter
	TenantsDeleted prometheus.Counter

	AggregationDuration prometheus.Histogram
	FetchFailures       *prometheus.CounterVec
	TokenFailures       prometheus.Counter
	SecretMigrations    prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		TenantsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "prism_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		TenantsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "prism_tenants_deleted_total",
			Help: "Total number of tenants deleted",
		}),
		AggregationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "prism_aggregation_duration_seconds",
			Help:    "Duration of full tenant data aggregations",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FetchFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "prism_upstream_fetch_failures_total",
			Help: "Total number of upstream fetches that failed soft, labeled by resource",
		}, []string{"resource"}),
		TokenFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "prism_token_failures_total",
			Help: "Total number of failed token exchanges",
		}),
		SecretMigrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "prism_secret_migrations_total",
			Help: "Total number of legacy plaintext secrets encrypted on read",
		}),
	}
}

// IncrementTenantsCreated increments the tenants created counter by 1
func (m *Metrics) IncrementTenantsCreated() {
	m.TenantsCreated.Inc()
}

func (m *Metrics) IncrementTenantsDeleted() {
	m.TenantsDeleted.Inc()
}

func (m *Metrics) ObserveAggregation(start time.Time) {
	m.AggregationDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementFetchFailures(resource string) {
	m.FetchFailures.WithLabelValues(resource).Inc()
}

func (m *Metrics) IncrementTokenFailures() {
	m.TokenFailures.Inc()
}

func (m *Metrics) IncrementSecretMigrations(count int) {
	m.SecretMigrations.Add(float64(count))
}
