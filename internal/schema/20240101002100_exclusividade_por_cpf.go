package schema

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ExclusividadePorCpf makes the exclusivity rule a CPF lookup against active
// citizens and retires papel_cidadao.
type ExclusividadePorCpf struct{}

func init() {
	register(&ExclusividadePorCpf{})
}

func (m *ExclusividadePorCpf) Version() int64 { return 20240101002100 }
func (m *ExclusividadePorCpf) Name() string   { return "ExclusividadePorCpf" }

func (m *ExclusividadePorCpf) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := installExclusividade(ctx, tx, exclusividadePorCpf); err != nil {
		return err
	}
	return dropPapelCidadao(ctx, tx)
}

func (m *ExclusividadePorCpf) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := createPapelCidadao(ctx, tx); err != nil {
		return err
	}
	return installExclusividade(ctx, tx, exclusividadePorSolicitacao)
}
