package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var statusSolicitacao = enum{"status_solicitacao", []string{
	"rascunho", "aberta", "pendente", "em_analise", "aguardando_documentos", "aprovada",
	"indeferida", "liberada", "em_processamento", "concluido", "arquivado", "cancelada",
}}

type Solicitacao struct{}

func init() {
	register(&Solicitacao{})
}

func (m *Solicitacao) Version() int64 { return 20240101000700 }
func (m *Solicitacao) Name() string   { return "Solicitacao" }

func (m *Solicitacao) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, statusSolicitacao); err != nil {
		return err
	}

	// Indexes on solicitacao.status carry no enum-literal predicate: reverting
	// RenovacaoSolicitacao re-casts the column.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS solicitacao (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			protocolo VARCHAR(50) NOT NULL,
			beneficiario_id UUID NOT NULL,
			solicitante_id UUID,
			tipo_beneficio_id UUID NOT NULL,
			unidade_id UUID NOT NULL,
			tecnico_id UUID NOT NULL,
			aprovador_id UUID,
			liberador_id UUID,
			status status_solicitacao NOT NULL DEFAULT 'rascunho',
			parecer_semtas TEXT,
			data_abertura TIMESTAMPTZ NOT NULL DEFAULT now(),
			data_aprovacao TIMESTAMPTZ,
			data_liberacao TIMESTAMPTZ,
			valor NUMERIC(10,2),
			dados_complementares JSONB,
			observacoes TEXT,
			prazo_analise TIMESTAMPTZ,
			prazo_documentos TIMESTAMPTZ,
			prazo_processamento TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			removed_at TIMESTAMPTZ,
			CONSTRAINT fk_solicitacao_beneficiario FOREIGN KEY (beneficiario_id) REFERENCES cidadao (id) ON DELETE RESTRICT,
			CONSTRAINT fk_solicitacao_solicitante FOREIGN KEY (solicitante_id) REFERENCES cidadao (id) ON DELETE SET NULL,
			CONSTRAINT fk_solicitacao_tipo_beneficio FOREIGN KEY (tipo_beneficio_id) REFERENCES tipo_beneficio (id) ON DELETE RESTRICT,
			CONSTRAINT fk_solicitacao_unidade FOREIGN KEY (unidade_id) REFERENCES unidade (id) ON DELETE RESTRICT,
			CONSTRAINT fk_solicitacao_tecnico FOREIGN KEY (tecnico_id) REFERENCES usuario (id) ON DELETE RESTRICT,
			CONSTRAINT fk_solicitacao_aprovador FOREIGN KEY (aprovador_id) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT fk_solicitacao_liberador FOREIGN KEY (liberador_id) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT chk_solicitacao_valor CHECK (valor IS NULL OR valor >= 0),
			CONSTRAINT chk_solicitacao_data_aprovacao CHECK (data_aprovacao IS NULL OR data_aprovacao >= data_abertura)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_solicitacao_protocolo ON solicitacao (protocolo) WHERE removed_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacao_beneficiario_id ON solicitacao (beneficiario_id)`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacao_solicitante_id ON solicitacao (solicitante_id)`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacao_tipo_beneficio_id ON solicitacao (tipo_beneficio_id)`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacao_unidade_status ON solicitacao (unidade_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacao_tecnico_id ON solicitacao (tecnico_id)`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacao_aprovador_id ON solicitacao (aprovador_id)`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacao_liberador_id ON solicitacao (liberador_id)`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacao_dados_complementares ON solicitacao USING gin (dados_complementares)`,

		`CREATE TABLE IF NOT EXISTS historico_status_solicitacao (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			solicitacao_id UUID NOT NULL,
			status_anterior status_solicitacao,
			status_novo status_solicitacao NOT NULL,
			usuario_id UUID,
			observacao TEXT,
			dados_alterados JSONB,
			ip_usuario VARCHAR(45),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_historico_status_solicitacao_solicitacao FOREIGN KEY (solicitacao_id) REFERENCES solicitacao (id) ON DELETE CASCADE,
			CONSTRAINT fk_historico_status_solicitacao_usuario FOREIGN KEY (usuario_id) REFERENCES usuario (id) ON DELETE SET NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_historico_status_solicitacao_solicitacao ON historico_status_solicitacao (solicitacao_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_historico_status_solicitacao_usuario ON historico_status_solicitacao (usuario_id)`,

		`CREATE TABLE IF NOT EXISTS avaliacao_solicitacao (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			solicitacao_id UUID NOT NULL,
			avaliador_id UUID NOT NULL,
			tipo_avaliacao VARCHAR(50) NOT NULL,
			parecer TEXT NOT NULL,
			aprovado BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_avaliacao_solicitacao_solicitacao FOREIGN KEY (solicitacao_id) REFERENCES solicitacao (id) ON DELETE CASCADE,
			CONSTRAINT fk_avaliacao_solicitacao_avaliador FOREIGN KEY (avaliador_id) REFERENCES usuario (id) ON DELETE RESTRICT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_avaliacao_solicitacao_solicitacao ON avaliacao_solicitacao (solicitacao_id)`,
		`CREATE INDEX IF NOT EXISTS idx_avaliacao_solicitacao_avaliador ON avaliacao_solicitacao (avaliador_id)`,
	}
	for _, table := range dadosBeneficioTables {
		stmts = append(stmts, `ALTER TABLE `+table+` ADD CONSTRAINT `+dadosBeneficioFK(table)+`
			FOREIGN KEY (solicitacao_id) REFERENCES solicitacao (id) ON DELETE CASCADE`)
	}

	if err := ddl.Exec(ctx, tx, stmts...); err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "solicitacao", "avaliacao_solicitacao")
}

func (m *Solicitacao) Down(ctx context.Context, tx *sqlx.Tx) error {
	var stmts []string
	for _, table := range dadosBeneficioTables {
		stmts = append(stmts, `ALTER TABLE IF EXISTS `+table+` DROP CONSTRAINT IF EXISTS `+dadosBeneficioFK(table))
	}
	if err := ddl.Exec(ctx, tx, stmts...); err != nil {
		return err
	}
	if err := ddl.DropTables(ctx, tx, "avaliacao_solicitacao", "historico_status_solicitacao", "solicitacao"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, statusSolicitacao)
}

func dadosBeneficioFK(table string) string {
	return "fk_" + table + "_solicitacao"
}
