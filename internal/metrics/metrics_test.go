package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/farxc/pgben-schema/internal/migrate"
)

func TestObserveMigration(t *testing.T) {
	m := New(prometheus.NewRegistry())
	unit := migrate.Func(20240101000000, "Extensoes", nil, nil)

	m.ObserveMigration(migrate.DirectionUp, unit, 20*time.Millisecond, nil)
	m.ObserveMigration(migrate.DirectionUp, unit, 5*time.Millisecond, nil)
	m.ObserveMigration(migrate.DirectionDown, unit, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MigrationsApplied.WithLabelValues("up")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MigrationsApplied.WithLabelValues("down")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MigrationsFailed.WithLabelValues("down")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.MigrationDuration))
}

func TestObserveSeed(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSeed("roles", 6)
	m.ObserveSeed("roles", 6)
	m.ObserveSeed("permissions", 40)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.SeedRows.WithLabelValues("roles")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.SeedRows.WithLabelValues("permissions")))
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
