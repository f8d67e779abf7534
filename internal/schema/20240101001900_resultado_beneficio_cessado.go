package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var (
	motivoEncerramento = enum{"motivo_encerramento", []string{
		"prazo_expirado", "superacao_vulnerabilidade", "mudanca_municipio", "obito",
		"descumprimento_condicionalidades", "solicitacao_beneficiario", "outro",
	}}
	statusVulnerabilidade = enum{"status_vulnerabilidade", []string{
		"superada", "em_superacao", "mantida", "agravada",
	}}
	tipoDocumentoComprobatorio = enum{"tipo_documento_comprobatorio", []string{
		"fotografia", "declaracao", "relatorio_tecnico", "comprovante_renda", "outro",
	}}
)

// ResultadoBeneficioCessado records the closure outcome of a benefit as
// required by the SUAS/LOAS regulation.
type ResultadoBeneficioCessado struct{}

func init() {
	register(&ResultadoBeneficioCessado{})
}

func (m *ResultadoBeneficioCessado) Version() int64 { return 20240101001900 }
func (m *ResultadoBeneficioCessado) Name() string   { return "ResultadoBeneficioCessado" }

func (m *ResultadoBeneficioCessado) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, motivoEncerramento, statusVulnerabilidade, tipoDocumentoComprobatorio); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS resultado_beneficio_cessado (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			solicitacao_id UUID NOT NULL,
			tecnico_responsavel_id UUID NOT NULL,
			motivo_encerramento motivo_encerramento NOT NULL,
			status_vulnerabilidade status_vulnerabilidade NOT NULL,
			descricao_motivo TEXT NOT NULL,
			avaliacao_vulnerabilidade TEXT NOT NULL,
			observacoes TEXT,
			acompanhamento_posterior BOOLEAN NOT NULL DEFAULT false,
			data_acompanhamento DATE,
			encaminhamentos JSONB,
			data_registro TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_resultado_beneficio_cessado_solicitacao UNIQUE (solicitacao_id),
			CONSTRAINT fk_resultado_beneficio_cessado_solicitacao FOREIGN KEY (solicitacao_id) REFERENCES solicitacao (id) ON DELETE RESTRICT,
			CONSTRAINT fk_resultado_beneficio_cessado_tecnico FOREIGN KEY (tecnico_responsavel_id) REFERENCES usuario (id) ON DELETE RESTRICT,
			CONSTRAINT chk_resultado_beneficio_cessado_acompanhamento CHECK (acompanhamento_posterior OR data_acompanhamento IS NULL)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resultado_beneficio_cessado_tecnico ON resultado_beneficio_cessado (tecnico_responsavel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_resultado_beneficio_cessado_motivo ON resultado_beneficio_cessado (motivo_encerramento, status_vulnerabilidade)`,

		`CREATE TABLE IF NOT EXISTS documento_comprobatorio (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			resultado_beneficio_cessado_id UUID NOT NULL,
			tipo tipo_documento_comprobatorio NOT NULL,
			nome_arquivo VARCHAR(255) NOT NULL,
			caminho_arquivo VARCHAR(500) NOT NULL,
			tamanho BIGINT,
			mime_type VARCHAR(100),
			descricao TEXT,
			enviado_por UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_documento_comprobatorio_resultado FOREIGN KEY (resultado_beneficio_cessado_id) REFERENCES resultado_beneficio_cessado (id) ON DELETE CASCADE,
			CONSTRAINT fk_documento_comprobatorio_enviado_por FOREIGN KEY (enviado_por) REFERENCES usuario (id) ON DELETE RESTRICT,
			CONSTRAINT chk_documento_comprobatorio_tamanho CHECK (tamanho IS NULL OR tamanho > 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documento_comprobatorio_resultado ON documento_comprobatorio (resultado_beneficio_cessado_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documento_comprobatorio_enviado_por ON documento_comprobatorio (enviado_por)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "resultado_beneficio_cessado", "documento_comprobatorio")
}

func (m *ResultadoBeneficioCessado) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.DropTables(ctx, tx, "documento_comprobatorio", "resultado_beneficio_cessado"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, motivoEncerramento, statusVulnerabilidade, tipoDocumentoComprobatorio)
}
