// Package metrics exposes Prometheus collectors for migration and seed runs.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/farxc/pgben-schema/internal/migrate"
)

// Metrics tracks migration outcomes and seeded rows.
type Metrics struct {
	MigrationsApplied *prometheus.CounterVec
	MigrationsFailed  *prometheus.CounterVec
	MigrationDuration *prometheus.HistogramVec
	SeedRows          *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	defaultSet  *Metrics
)

// Default returns the collectors registered on the global Prometheus registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultSet = New(prometheus.DefaultRegisterer)
	})
	return defaultSet
}

// New registers a fresh set of collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MigrationsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pgben_migrations_applied_total",
			Help: "Migration units executed successfully",
		}, []string{"direction"}),
		MigrationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pgben_migrations_failed_total",
			Help: "Migration units rolled back after an error",
		}, []string{"direction"}),
		MigrationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pgben_migration_duration_seconds",
			Help:    "Duration of a single migration unit including its bookkeeping write",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"direction"}),
		SeedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pgben_seed_rows_total",
			Help: "Reference rows upserted by seed set",
		}, []string{"set"}),
	}
}

// ObserveMigration implements migrate.Observer.
func (m *Metrics) ObserveMigration(direction migrate.Direction, _ migrate.Migration, elapsed time.Duration, err error) {
	dir := string(direction)
	m.MigrationDuration.WithLabelValues(dir).Observe(elapsed.Seconds())
	if err != nil {
		m.MigrationsFailed.WithLabelValues(dir).Inc()
		return
	}
	m.MigrationsApplied.WithLabelValues(dir).Inc()
}

// ObserveSeed records the rows written by one seed set.
func (m *Metrics) ObserveSeed(set string, rows int) {
	m.SeedRows.WithLabelValues(set).Add(float64(rows))
}
