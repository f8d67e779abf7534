package schema

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ExclusividadePorSolicitacao derives the beneficiary role from granted
// requests instead of papel_cidadao.
type ExclusividadePorSolicitacao struct{}

func init() {
	register(&ExclusividadePorSolicitacao{})
}

func (m *ExclusividadePorSolicitacao) Version() int64 { return 20240101001700 }
func (m *ExclusividadePorSolicitacao) Name() string   { return "ExclusividadePorSolicitacao" }

func (m *ExclusividadePorSolicitacao) Up(ctx context.Context, tx *sqlx.Tx) error {
	return installExclusividade(ctx, tx, exclusividadePorSolicitacao)
}

func (m *ExclusividadePorSolicitacao) Down(ctx context.Context, tx *sqlx.Tx) error {
	return installExclusividade(ctx, tx, exclusividadePorPapel)
}
