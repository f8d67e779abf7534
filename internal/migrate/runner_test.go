package migrate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/pgben-schema/internal/store"
)

type fakeBook struct {
	exists  bool
	records []store.MigrationRecord
	err     error
}

func (f *fakeBook) Exists(context.Context) (bool, error) { return f.exists, f.err }
func (f *fakeBook) EnsureTable(context.Context) error    { return f.err }

func (f *fakeBook) Applied(context.Context) ([]store.MigrationRecord, error) {
	return f.records, f.err
}

func (f *fakeBook) Insert(context.Context, sqlx.QueryerContext, *store.MigrationRecord) error {
	return errors.New("not supported")
}

func (f *fakeBook) Delete(context.Context, sqlx.ExecerContext, string) error {
	return errors.New("not supported")
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(
		Func(20240101000000, "Extensoes", noop, noop),
		Func(20240101000100, "EstruturaOrganizacional", noop, noop),
		Func(20240101000200, "Cidadao", noop, noop),
	))
	return reg
}

func TestStatusWithoutBookkeepingTable(t *testing.T) {
	r := New(nil, testRegistry(t), WithBookkeeper(&fakeBook{exists: false}))

	statuses, err := r.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	for _, st := range statuses {
		assert.False(t, st.Applied)
		assert.Nil(t, st.ExecutedAt)
	}
}

func TestStatusJoinsRegistryAndRecords(t *testing.T) {
	executed := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	book := &fakeBook{exists: true, records: []store.MigrationRecord{
		{ID: 1, Timestamp: 20240101000000, Name: "Extensoes20240101000000", ExecutedAt: executed},
		{ID: 2, Timestamp: 20231201000000, Name: "Antiga20231201000000", ExecutedAt: executed},
	}}
	r := New(nil, testRegistry(t), WithBookkeeper(book))

	statuses, err := r.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 4)

	assert.True(t, statuses[0].Applied)
	require.NotNil(t, statuses[0].ExecutedAt)
	assert.Equal(t, executed, *statuses[0].ExecutedAt)
	assert.False(t, statuses[1].Applied)
	assert.False(t, statuses[2].Applied)

	orphan := statuses[3]
	assert.True(t, orphan.Orphan)
	assert.True(t, orphan.Applied)
	assert.Equal(t, "Antiga20231201000000", orphan.Key)

	pending, err := r.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "EstruturaOrganizacional", pending[0].Name)
	assert.Equal(t, "Cidadao", pending[1].Name)
}

func TestStatusPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	r := New(nil, testRegistry(t), WithBookkeeper(&fakeBook{err: boom}))

	_, err := r.Status(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDownRejectsNonPositiveSteps(t *testing.T) {
	r := New(nil, testRegistry(t), WithBookkeeper(&fakeBook{}))

	_, err := r.Down(context.Background(), 0)
	assert.Error(t, err)
}

func TestMigrationErrorUnwraps(t *testing.T) {
	cause := errors.New("relation \"cidadao\" does not exist")
	err := fmt.Errorf("apply: %w", &MigrationError{Version: 20240101000300, Name: "ContextoFamiliar", Direction: DirectionUp, Err: cause})

	var merr *MigrationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, int64(20240101000300), merr.Version)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "20240101000300 ContextoFamiliar (up)")
}

func TestDefaultLockKeyIsStable(t *testing.T) {
	assert.NotZero(t, DefaultLockKey)
	r := New(nil, testRegistry(t))
	assert.Equal(t, DefaultLockKey, r.lockKey)
	assert.Equal(t, int64(42), New(nil, testRegistry(t), WithLockKey(42)).lockKey)
}
