package migrate

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *sqlx.Tx) error { return nil }

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		name    string
		version int64
		wantErr bool
	}{
		{"valid", 20240101000000, false},
		{"end of day", 20241231235959, false},
		{"too short", 2024010100, true},
		{"too long", 202401010000000, true},
		{"month 13", 20241301000000, true},
		{"minute 61", 20240101006100, true},
		{"negative", -20240101000000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVersion(tt.version)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMigration)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegistryOrdersByVersion(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(
		Func(20240101000200, "Cidadao", noop, noop),
		Func(20240101000000, "Extensoes", noop, noop),
	))
	require.NoError(t, reg.Register(Func(20240101000100, "EstruturaOrganizacional", noop, noop)))

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, int64(20240101000000), all[0].Version())
	assert.Equal(t, int64(20240101000100), all[1].Version())
	assert.Equal(t, int64(20240101000200), all[2].Version())
	assert.Equal(t, 3, reg.Len())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Func(20240101000000, "Extensoes", noop, noop)))

	err := reg.Register(Func(20240101000000, "Outra", noop, noop))
	assert.ErrorIs(t, err, ErrDuplicateVersion)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryRejectedBatchLeavesNoUnits(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Func(20240101000100, "Base", noop, noop)))

	err := reg.Register(
		Func(20240301000000, "Later", noop, noop),
		Func(20240101000000, "Earlier", noop, noop),
		Func(20240101000000, "Dup", noop, noop),
	)
	assert.ErrorIs(t, err, ErrDuplicateVersion)
	assert.Equal(t, 1, reg.Len())

	err = reg.Register(
		Func(20240301000000, "Later", noop, noop),
		Func(20240101000000, "Earlier", noop, noop),
		Func(123, "Curta", noop, noop),
	)
	assert.ErrorIs(t, err, ErrInvalidMigration)
	require.Len(t, reg.All(), 1)
	assert.Equal(t, "Base", reg.All()[0].Name())

	require.NoError(t, reg.Register(
		Func(20240301000000, "Later", noop, noop),
		Func(20240101000000, "Earlier", noop, noop),
	))
	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, "Earlier", all[0].Name())
	assert.Equal(t, "Base", all[1].Name())
	assert.Equal(t, "Later", all[2].Name())
}

func TestRegistryRejectsInvalidUnits(t *testing.T) {
	reg := NewRegistry()

	assert.ErrorIs(t, reg.Register(nil), ErrInvalidMigration)
	assert.ErrorIs(t, reg.Register(Func(123, "Curta", noop, noop)), ErrInvalidMigration)
	assert.ErrorIs(t, reg.Register(Func(20240101000000, "nome com espaco", noop, noop)), ErrInvalidMigration)
	assert.ErrorIs(t, reg.Register(Func(20240101000000, "", noop, noop)), ErrInvalidMigration)
	assert.Zero(t, reg.Len())
}

func TestRegistryLookupByKey(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Func(20240101000300, "ContextoFamiliar", noop, noop))

	m, ok := reg.Lookup("ContextoFamiliar20240101000300")
	require.True(t, ok)
	assert.Equal(t, "ContextoFamiliar", m.Name())

	_, ok = reg.Lookup("ContextoFamiliar")
	assert.False(t, ok)
}

func TestMustRegisterPanics(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Func(20240101000000, "Extensoes", noop, noop))

	assert.Panics(t, func() {
		reg.MustRegister(Func(20240101000000, "Extensoes", noop, noop))
	})
}

func TestFuncNilStepsAreNoops(t *testing.T) {
	m := Func(20240101000000, "Vazia", nil, nil)
	assert.NoError(t, m.Up(context.Background(), nil))
	assert.NoError(t, m.Down(context.Background(), nil))
	assert.Equal(t, "Vazia20240101000000", Key(m))
}
