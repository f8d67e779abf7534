package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var unidadeScopedTables = []string{"cidadao", "solicitacao"}

func unidadePolicy(table string) ddl.Policy {
	pred := unidadeSetting + ` IS NULL OR unidade_id = ` + unidadeSetting + `::uuid`
	return ddl.Policy{
		Name:      table + "_unidade",
		Table:     table,
		Using:     pred,
		WithCheck: pred,
	}
}

// RlsUnidade restricts citizens and requests to the unit named by the
// app.unidade_id session setting.
type RlsUnidade struct{}

func init() {
	register(&RlsUnidade{})
}

func (m *RlsUnidade) Version() int64 { return 20240101002200 }
func (m *RlsUnidade) Name() string   { return "RlsUnidade" }

func (m *RlsUnidade) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.EnableRLS(ctx, tx, unidadeScopedTables...); err != nil {
		return err
	}
	for _, table := range unidadeScopedTables {
		if err := ddl.CreatePolicy(ctx, tx, unidadePolicy(table)); err != nil {
			return err
		}
	}
	return nil
}

func (m *RlsUnidade) Down(ctx context.Context, tx *sqlx.Tx) error {
	for _, table := range unidadeScopedTables {
		if err := ddl.DropPolicy(ctx, tx, table+"_unidade", table); err != nil {
			return err
		}
	}
	return ddl.DisableRLS(ctx, tx, unidadeScopedTables...)
}
