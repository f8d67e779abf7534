package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var tipoDocumento = enum{"tipo_documento", []string{
	"rg", "cpf", "certidao_nascimento", "certidao_casamento", "certidao_obito",
	"comprovante_residencia", "comprovante_renda", "laudo_medico", "declaracao",
	"boletim_ocorrencia", "contrato_aluguel", "outro",
}}

type Documentos struct{}

func init() {
	register(&Documentos{})
}

func (m *Documentos) Version() int64 { return 20240101000900 }
func (m *Documentos) Name() string   { return "Documentos" }

func (m *Documentos) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, tipoDocumento); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS documento (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			cidadao_id UUID NOT NULL,
			solicitacao_id UUID,
			tipo tipo_documento NOT NULL,
			nome_arquivo VARCHAR(255) NOT NULL,
			nome_original VARCHAR(255),
			caminho VARCHAR(500) NOT NULL,
			tamanho BIGINT NOT NULL,
			mimetype VARCHAR(100) NOT NULL,
			hash_arquivo VARCHAR(64),
			descricao TEXT,
			verificado BOOLEAN NOT NULL DEFAULT false,
			data_verificacao TIMESTAMPTZ,
			verificado_por UUID,
			observacoes_verificacao TEXT,
			metadados JSONB,
			usuario_upload UUID NOT NULL,
			data_upload TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			removed_at TIMESTAMPTZ,
			CONSTRAINT fk_documento_cidadao FOREIGN KEY (cidadao_id) REFERENCES cidadao (id) ON DELETE CASCADE,
			CONSTRAINT fk_documento_solicitacao FOREIGN KEY (solicitacao_id) REFERENCES solicitacao (id) ON DELETE SET NULL,
			CONSTRAINT fk_documento_verificado_por FOREIGN KEY (verificado_por) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT fk_documento_usuario_upload FOREIGN KEY (usuario_upload) REFERENCES usuario (id) ON DELETE RESTRICT,
			CONSTRAINT chk_documento_tamanho CHECK (tamanho > 0),
			CONSTRAINT chk_documento_verificacao CHECK (NOT verificado OR data_verificacao IS NOT NULL)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documento_cidadao_id ON documento (cidadao_id) WHERE removed_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_documento_solicitacao_id ON documento (solicitacao_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documento_verificado_por ON documento (verificado_por)`,
		`CREATE INDEX IF NOT EXISTS idx_documento_usuario_upload ON documento (usuario_upload)`,
		`CREATE INDEX IF NOT EXISTS idx_documento_hash_arquivo ON documento (hash_arquivo)`,
		`CREATE INDEX IF NOT EXISTS idx_documento_metadados ON documento USING gin (metadados)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "documento")
}

func (m *Documentos) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.DropTables(ctx, tx, "documento"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, tipoDocumento)
}
