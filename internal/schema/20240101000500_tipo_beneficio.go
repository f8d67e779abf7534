package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var (
	periodicidadeBeneficio = enum{"periodicidade_beneficio", []string{
		"unico", "mensal", "bimestral", "trimestral", "semestral", "anual",
	}}
	statusBeneficio = enum{"status_beneficio", []string{"ativo", "inativo"}}
	tipoCampo       = enum{"tipo_campo", []string{
		"string", "number", "boolean", "date", "select", "multiselect", "textarea", "file",
	}}
)

type TipoBeneficio struct{}

func init() {
	register(&TipoBeneficio{})
}

func (m *TipoBeneficio) Version() int64 { return 20240101000500 }
func (m *TipoBeneficio) Name() string   { return "TipoBeneficio" }

func (m *TipoBeneficio) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, periodicidadeBeneficio, statusBeneficio, tipoCampo); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS tipo_beneficio (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			nome VARCHAR(255) NOT NULL,
			codigo VARCHAR(100) NOT NULL,
			descricao TEXT,
			base_legal TEXT,
			periodicidade periodicidade_beneficio NOT NULL DEFAULT 'unico',
			periodo_maximo INTEGER,
			permite_renovacao BOOLEAN NOT NULL DEFAULT false,
			permite_prorrogacao BOOLEAN NOT NULL DEFAULT false,
			valor NUMERIC(10,2) NOT NULL DEFAULT 0,
			criterios_elegibilidade JSONB,
			especificacoes JSONB,
			status status_beneficio NOT NULL DEFAULT 'ativo',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			removed_at TIMESTAMPTZ,
			CONSTRAINT chk_tipo_beneficio_valor CHECK (valor >= 0),
			CONSTRAINT chk_tipo_beneficio_periodo_maximo CHECK (periodo_maximo IS NULL OR periodo_maximo > 0)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_tipo_beneficio_codigo ON tipo_beneficio (codigo) WHERE removed_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_tipo_beneficio_nome_trgm ON tipo_beneficio USING gin (nome gin_trgm_ops)`,

		`CREATE TABLE IF NOT EXISTS requisito_documento (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			tipo_beneficio_id UUID NOT NULL,
			tipo_documento VARCHAR(100) NOT NULL,
			nome VARCHAR(255) NOT NULL,
			descricao TEXT,
			obrigatorio BOOLEAN NOT NULL DEFAULT true,
			observacoes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_requisito_documento_tipo_beneficio FOREIGN KEY (tipo_beneficio_id) REFERENCES tipo_beneficio (id) ON DELETE CASCADE,
			CONSTRAINT uq_requisito_documento_tipo UNIQUE (tipo_beneficio_id, tipo_documento)
		)`,

		`CREATE TABLE IF NOT EXISTS fluxo_beneficio (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			tipo_beneficio_id UUID NOT NULL,
			ordem INTEGER NOT NULL,
			nome_etapa VARCHAR(255) NOT NULL,
			setor_id UUID,
			descricao TEXT,
			obrigatorio BOOLEAN NOT NULL DEFAULT true,
			prazo_dias INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_fluxo_beneficio_tipo_beneficio FOREIGN KEY (tipo_beneficio_id) REFERENCES tipo_beneficio (id) ON DELETE CASCADE,
			CONSTRAINT fk_fluxo_beneficio_setor FOREIGN KEY (setor_id) REFERENCES setor (id) ON DELETE SET NULL,
			CONSTRAINT uq_fluxo_beneficio_ordem UNIQUE (tipo_beneficio_id, ordem),
			CONSTRAINT chk_fluxo_beneficio_ordem CHECK (ordem > 0),
			CONSTRAINT chk_fluxo_beneficio_prazo CHECK (prazo_dias IS NULL OR prazo_dias > 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fluxo_beneficio_setor_id ON fluxo_beneficio (setor_id)`,

		`CREATE TABLE IF NOT EXISTS campo_dinamico_beneficio (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			tipo_beneficio_id UUID NOT NULL,
			label VARCHAR(255) NOT NULL,
			nome VARCHAR(100) NOT NULL,
			tipo tipo_campo NOT NULL,
			obrigatorio BOOLEAN NOT NULL DEFAULT false,
			descricao TEXT,
			validacoes JSONB,
			opcoes JSONB,
			ordem INTEGER NOT NULL DEFAULT 1,
			ativo BOOLEAN NOT NULL DEFAULT true,
			versao INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_campo_dinamico_beneficio_tipo_beneficio FOREIGN KEY (tipo_beneficio_id) REFERENCES tipo_beneficio (id) ON DELETE CASCADE,
			CONSTRAINT uq_campo_dinamico_beneficio_nome UNIQUE (tipo_beneficio_id, nome, versao),
			CONSTRAINT chk_campo_dinamico_beneficio_versao CHECK (versao > 0)
		)`,

		`CREATE TABLE IF NOT EXISTS versao_schema_beneficio (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			tipo_beneficio_id UUID NOT NULL,
			versao INTEGER NOT NULL,
			schema_json JSONB NOT NULL,
			descricao_mudancas TEXT,
			data_inicio_vigencia TIMESTAMPTZ NOT NULL DEFAULT now(),
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_versao_schema_beneficio_tipo_beneficio FOREIGN KEY (tipo_beneficio_id) REFERENCES tipo_beneficio (id) ON DELETE CASCADE,
			CONSTRAINT uq_versao_schema_beneficio_versao UNIQUE (tipo_beneficio_id, versao),
			CONSTRAINT chk_versao_schema_beneficio_versao CHECK (versao > 0)
		)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx,
		"tipo_beneficio", "requisito_documento", "fluxo_beneficio", "campo_dinamico_beneficio", "versao_schema_beneficio")
}

func (m *TipoBeneficio) Down(ctx context.Context, tx *sqlx.Tx) error {
	err := ddl.DropTables(ctx, tx,
		"versao_schema_beneficio", "campo_dinamico_beneficio", "fluxo_beneficio", "requisito_documento", "tipo_beneficio")
	if err != nil {
		return err
	}
	return dropEnums(ctx, tx, periodicidadeBeneficio, statusBeneficio, tipoCampo)
}
