package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var (
	sexo        = enum{"sexo", []string{"masculino", "feminino", "outro"}}
	estadoCivil = enum{"estado_civil", []string{"solteiro", "casado", "divorciado", "viuvo", "uniao_estavel", "separado"}}
)

type Cidadao struct{}

func init() {
	register(&Cidadao{})
}

func (m *Cidadao) Version() int64 { return 20240101000200 }
func (m *Cidadao) Name() string   { return "Cidadao" }

func (m *Cidadao) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, sexo, estadoCivil); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS cidadao (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			nome VARCHAR(255) NOT NULL,
			nome_social VARCHAR(255),
			cpf VARCHAR(11) NOT NULL,
			rg VARCHAR(20),
			nis VARCHAR(11),
			nome_mae VARCHAR(255),
			naturalidade VARCHAR(100),
			data_nascimento DATE NOT NULL,
			sexo sexo NOT NULL,
			estado_civil estado_civil,
			telefone VARCHAR(20),
			email VARCHAR(255),
			endereco JSONB NOT NULL DEFAULT '{}'::jsonb,
			unidade_id UUID NOT NULL,
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			removed_at TIMESTAMPTZ,
			CONSTRAINT fk_cidadao_unidade FOREIGN KEY (unidade_id) REFERENCES unidade (id) ON DELETE RESTRICT,
			CONSTRAINT chk_cidadao_cpf_formato CHECK (cpf ~ '^[0-9]{11}$'),
			CONSTRAINT chk_cidadao_nis_formato CHECK (nis IS NULL OR nis ~ '^[0-9]{11}$')
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_cidadao_cpf ON cidadao (cpf) WHERE removed_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_cidadao_nis ON cidadao (nis) WHERE removed_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_cidadao_nome_trgm ON cidadao USING gin (nome gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_cidadao_endereco ON cidadao USING gin (endereco)`,
		`CREATE INDEX IF NOT EXISTS idx_cidadao_unidade_id ON cidadao (unidade_id)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "cidadao")
}

func (m *Cidadao) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.DropTables(ctx, tx, "cidadao"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, sexo, estadoCivil)
}
