package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var (
	statusPendencia = enum{"status_pendencia", []string{"aberta", "resolvida", "cancelada"}}
	tipoOcorrencia  = enum{"tipo_ocorrencia", []string{"visita", "atendimento", "denuncia", "reclamacao", "informacao", "outro"}}
)

type PendenciasOcorrencias struct{}

func init() {
	register(&PendenciasOcorrencias{})
}

func (m *PendenciasOcorrencias) Version() int64 { return 20240101000800 }
func (m *PendenciasOcorrencias) Name() string   { return "PendenciasOcorrencias" }

func (m *PendenciasOcorrencias) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, statusPendencia, tipoOcorrencia); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS pendencias (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			solicitacao_id UUID NOT NULL,
			descricao TEXT NOT NULL,
			status status_pendencia NOT NULL DEFAULT 'aberta',
			registrado_por_id UUID NOT NULL,
			resolvido_por_id UUID,
			observacao_resolucao TEXT,
			prazo_resolucao DATE,
			data_resolucao TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_pendencias_solicitacao FOREIGN KEY (solicitacao_id) REFERENCES solicitacao (id) ON DELETE CASCADE,
			CONSTRAINT fk_pendencias_registrado_por FOREIGN KEY (registrado_por_id) REFERENCES usuario (id) ON DELETE RESTRICT,
			CONSTRAINT fk_pendencias_resolvido_por FOREIGN KEY (resolvido_por_id) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT chk_pendencias_resolucao CHECK (status <> 'resolvida' OR data_resolucao IS NOT NULL)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pendencias_solicitacao_status ON pendencias (solicitacao_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_pendencias_registrado_por ON pendencias (registrado_por_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pendencias_resolvido_por ON pendencias (resolvido_por_id)`,

		`CREATE TABLE IF NOT EXISTS ocorrencia (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			solicitacao_id UUID,
			cidadao_id UUID,
			tipo tipo_ocorrencia NOT NULL,
			descricao TEXT NOT NULL,
			registrado_por_id UUID NOT NULL,
			unidade_id UUID,
			data_ocorrencia TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_ocorrencia_solicitacao FOREIGN KEY (solicitacao_id) REFERENCES solicitacao (id) ON DELETE SET NULL,
			CONSTRAINT fk_ocorrencia_cidadao FOREIGN KEY (cidadao_id) REFERENCES cidadao (id) ON DELETE CASCADE,
			CONSTRAINT fk_ocorrencia_registrado_por FOREIGN KEY (registrado_por_id) REFERENCES usuario (id) ON DELETE RESTRICT,
			CONSTRAINT fk_ocorrencia_unidade FOREIGN KEY (unidade_id) REFERENCES unidade (id) ON DELETE SET NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ocorrencia_solicitacao_id ON ocorrencia (solicitacao_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ocorrencia_cidadao_id ON ocorrencia (cidadao_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ocorrencia_registrado_por ON ocorrencia (registrado_por_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ocorrencia_unidade_id ON ocorrencia (unidade_id)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "pendencias", "ocorrencia")
}

func (m *PendenciasOcorrencias) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.DropTables(ctx, tx, "ocorrencia", "pendencias"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, statusPendencia, tipoOcorrencia)
}
