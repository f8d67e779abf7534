package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var (
	parentesco = enum{"parentesco", []string{
		"conjuge", "filho", "pai", "mae", "irmao", "avo", "neto", "tio", "sobrinho", "outro",
	}}
	escolaridade = enum{"escolaridade", []string{
		"nao_alfabetizado", "infantil", "fundamental_incompleto", "fundamental_completo",
		"medio_incompleto", "medio_completo", "superior_incompleto", "superior_completo", "pos_graduacao",
	}}
	tipoMoradia = enum{"tipo_moradia", []string{
		"propria", "alugada", "cedida", "ocupacao", "situacao_rua", "abrigo", "outro",
	}}
)

type ContextoFamiliar struct{}

func init() {
	register(&ContextoFamiliar{})
}

func (m *ContextoFamiliar) Version() int64 { return 20240101000300 }
func (m *ContextoFamiliar) Name() string   { return "ContextoFamiliar" }

func (m *ContextoFamiliar) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, parentesco, escolaridade, tipoMoradia); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS composicao_familiar (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			cidadao_id UUID NOT NULL,
			nome VARCHAR(255) NOT NULL,
			cpf VARCHAR(11) NOT NULL,
			nis VARCHAR(11),
			idade INTEGER,
			data_nascimento DATE,
			parentesco parentesco NOT NULL,
			escolaridade escolaridade,
			ocupacao VARCHAR(255),
			renda NUMERIC(10,2),
			observacoes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			removed_at TIMESTAMPTZ,
			CONSTRAINT fk_composicao_familiar_cidadao FOREIGN KEY (cidadao_id) REFERENCES cidadao (id) ON DELETE CASCADE,
			CONSTRAINT chk_composicao_familiar_cpf_formato CHECK (cpf ~ '^[0-9]{11}$'),
			CONSTRAINT chk_composicao_familiar_renda CHECK (renda IS NULL OR renda >= 0),
			CONSTRAINT chk_composicao_familiar_idade CHECK (idade IS NULL OR idade BETWEEN 0 AND 130)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_composicao_familiar_cidadao_cpf
			ON composicao_familiar (cidadao_id, cpf) WHERE removed_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_composicao_familiar_cpf ON composicao_familiar (cpf)`,

		`CREATE TABLE IF NOT EXISTS situacao_moradia (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			cidadao_id UUID NOT NULL,
			tipo_moradia tipo_moradia,
			numero_comodos INTEGER,
			valor_aluguel NUMERIC(10,2),
			tempo_moradia_meses INTEGER,
			possui_banheiro BOOLEAN,
			possui_energia_eletrica BOOLEAN,
			possui_agua_encanada BOOLEAN,
			possui_coleta_lixo BOOLEAN,
			programa_habitacional JSONB,
			despesas_mensais JSONB,
			observacoes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_situacao_moradia_cidadao FOREIGN KEY (cidadao_id) REFERENCES cidadao (id) ON DELETE CASCADE,
			CONSTRAINT uq_situacao_moradia_cidadao UNIQUE (cidadao_id),
			CONSTRAINT chk_situacao_moradia_comodos CHECK (numero_comodos IS NULL OR numero_comodos > 0),
			CONSTRAINT chk_situacao_moradia_aluguel CHECK (valor_aluguel IS NULL OR valor_aluguel >= 0)
		)`,

		`CREATE TABLE IF NOT EXISTS dados_sociais (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			cidadao_id UUID NOT NULL,
			escolaridade escolaridade,
			publico_prioritario BOOLEAN NOT NULL DEFAULT false,
			renda NUMERIC(10,2),
			ocupacao VARCHAR(255),
			recebe_pbf BOOLEAN NOT NULL DEFAULT false,
			valor_pbf NUMERIC(10,2),
			recebe_bpc BOOLEAN NOT NULL DEFAULT false,
			tipo_bpc VARCHAR(50),
			valor_bpc NUMERIC(10,2),
			curso_profissionalizante VARCHAR(255),
			interesse_curso_profissionalizante BOOLEAN,
			situacao_trabalho VARCHAR(100),
			area_trabalho VARCHAR(100),
			familiar_apto_trabalho BOOLEAN,
			area_interesse_familiar VARCHAR(100),
			observacoes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_dados_sociais_cidadao FOREIGN KEY (cidadao_id) REFERENCES cidadao (id) ON DELETE CASCADE,
			CONSTRAINT uq_dados_sociais_cidadao UNIQUE (cidadao_id),
			CONSTRAINT chk_dados_sociais_pbf CHECK (recebe_pbf OR valor_pbf IS NULL),
			CONSTRAINT chk_dados_sociais_bpc CHECK (recebe_bpc OR (valor_bpc IS NULL AND tipo_bpc IS NULL))
		)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "composicao_familiar", "situacao_moradia", "dados_sociais")
}

func (m *ContextoFamiliar) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.DropTables(ctx, tx, "dados_sociais", "situacao_moradia", "composicao_familiar"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, parentesco, escolaridade, tipoMoradia)
}
