package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

const aguardandoRenovacao = "aguardando_renovacao"

// statusSolicitacaoUsages lists every column typed status_solicitacao; the
// revert re-casts them when it rebuilds the type.
var statusSolicitacaoUsages = []ddl.Column{
	{Table: "solicitacao", Column: "status", Default: "rascunho"},
	{Table: "historico_status_solicitacao", Column: "status_anterior"},
	{Table: "historico_status_solicitacao", Column: "status_novo"},
}

// RenovacaoSolicitacao links a renewal request to the one it renews.
type RenovacaoSolicitacao struct{}

func init() {
	register(&RenovacaoSolicitacao{})
}

func (m *RenovacaoSolicitacao) Version() int64 { return 20240101002000 }
func (m *RenovacaoSolicitacao) Name() string   { return "RenovacaoSolicitacao" }

func (m *RenovacaoSolicitacao) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.AddEnumValue(ctx, tx, statusSolicitacao.name, aguardandoRenovacao); err != nil {
		return err
	}
	return ddl.Exec(ctx, tx,
		`ALTER TABLE solicitacao
			ADD COLUMN IF NOT EXISTS solicitacao_original_id UUID,
			ADD COLUMN IF NOT EXISTS tipo_solicitacao VARCHAR(20) NOT NULL DEFAULT 'original',
			ADD COLUMN IF NOT EXISTS contador_renovacoes INTEGER NOT NULL DEFAULT 0,
			ADD COLUMN IF NOT EXISTS data_ultima_renovacao TIMESTAMPTZ`,
		`ALTER TABLE solicitacao
			ADD CONSTRAINT fk_solicitacao_original FOREIGN KEY (solicitacao_original_id) REFERENCES solicitacao (id) ON DELETE RESTRICT,
			ADD CONSTRAINT chk_solicitacao_tipo CHECK (tipo_solicitacao IN ('original', 'renovacao')),
			ADD CONSTRAINT chk_solicitacao_renovacao_original CHECK (tipo_solicitacao = 'original' OR solicitacao_original_id IS NOT NULL),
			ADD CONSTRAINT chk_solicitacao_contador_renovacoes CHECK (contador_renovacoes >= 0)`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacao_original_id ON solicitacao (solicitacao_original_id)`,
	)
}

// Down moves requests awaiting renewal back to pendente before rebuilding
// status_solicitacao without the label.
func (m *RenovacaoSolicitacao) Down(ctx context.Context, tx *sqlx.Tx) error {
	err := ddl.Exec(ctx, tx,
		`DROP INDEX IF EXISTS idx_solicitacao_original_id`,
		`ALTER TABLE solicitacao
			DROP CONSTRAINT IF EXISTS chk_solicitacao_contador_renovacoes,
			DROP CONSTRAINT IF EXISTS chk_solicitacao_renovacao_original,
			DROP CONSTRAINT IF EXISTS chk_solicitacao_tipo,
			DROP CONSTRAINT IF EXISTS fk_solicitacao_original`,
		`ALTER TABLE solicitacao
			DROP COLUMN IF EXISTS data_ultima_renovacao,
			DROP COLUMN IF EXISTS contador_renovacoes,
			DROP COLUMN IF EXISTS tipo_solicitacao,
			DROP COLUMN IF EXISTS solicitacao_original_id`,
	)
	if err != nil {
		return err
	}
	return ddl.RemoveEnumValue(ctx, tx, statusSolicitacao.name, aguardandoRenovacao, "pendente", statusSolicitacaoUsages...)
}
