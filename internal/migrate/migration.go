// Package migrate applies and reverts versioned schema units against PostgreSQL
// and keeps the 'migrations' bookkeeping table in step with them.
package migrate

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// Migration is one reversible unit of schema change.
//
// Version is a YYYYMMDDhhmmss timestamp and orders the units. Up and Down run
// inside a transaction owned by the Runner and must not commit it.
type Migration interface {
	Version() int64
	Name() string
	Up(ctx context.Context, tx *sqlx.Tx) error
	Down(ctx context.Context, tx *sqlx.Tx) error
}

// TxFunc is the signature of an Up or Down step.
type TxFunc func(ctx context.Context, tx *sqlx.Tx) error

type funcMigration struct {
	version int64
	name    string
	up      TxFunc
	down    TxFunc
}

// Func builds a Migration from a pair of functions. A nil step is a no-op.
func Func(version int64, name string, up, down TxFunc) Migration {
	return &funcMigration{version: version, name: name, up: up, down: down}
}

func (m *funcMigration) Version() int64 { return m.version }
func (m *funcMigration) Name() string   { return m.name }

func (m *funcMigration) Up(ctx context.Context, tx *sqlx.Tx) error {
	if m.up == nil {
		return nil
	}
	return m.up(ctx, tx)
}

func (m *funcMigration) Down(ctx context.Context, tx *sqlx.Tx) error {
	if m.down == nil {
		return nil
	}
	return m.down(ctx, tx)
}

// Key is the unique name stored in the bookkeeping table: the unit name
// followed by its version, e.g. "Cidadao20240101000200".
func Key(m Migration) string {
	return m.Name() + strconv.FormatInt(m.Version(), 10)
}
