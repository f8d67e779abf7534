// Package schema holds the PGBen migration units. Each unit registers itself
// from init, so importing the package is enough to obtain the full set.
package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
	"github.com/farxc/pgben-schema/internal/migrate"
)

var registry = migrate.NewRegistry()

func register(m migrate.Migration) {
	registry.MustRegister(m)
}

// Registry returns the PGBen units in version order.
func Registry() *migrate.Registry {
	return registry
}

type enum struct {
	name   string
	labels []string
}

func createEnums(ctx context.Context, tx *sqlx.Tx, enums ...enum) error {
	for _, e := range enums {
		if err := ddl.CreateEnum(ctx, tx, e.name, e.labels...); err != nil {
			return err
		}
	}
	return nil
}

func dropEnums(ctx context.Context, tx *sqlx.Tx, enums ...enum) error {
	names := make([]string, 0, len(enums))
	for i := len(enums) - 1; i >= 0; i-- {
		names = append(names, enums[i].name)
	}
	return ddl.DropEnum(ctx, tx, names...)
}
