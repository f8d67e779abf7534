package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var (
	tipoUnidade   = enum{"tipo_unidade", []string{"cras", "creas", "centro_pop", "semtas", "outro"}}
	statusUnidade = enum{"status_unidade", []string{"ativo", "inativo"}}
	statusUsuario = enum{"status_usuario", []string{"ativo", "inativo"}}
)

type EstruturaOrganizacional struct{}

func init() {
	register(&EstruturaOrganizacional{})
}

func (m *EstruturaOrganizacional) Version() int64 { return 20240101000100 }
func (m *EstruturaOrganizacional) Name() string   { return "EstruturaOrganizacional" }

func (m *EstruturaOrganizacional) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, tipoUnidade, statusUnidade, statusUsuario); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS unidade (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			nome VARCHAR(255) NOT NULL,
			codigo VARCHAR(50) NOT NULL,
			sigla VARCHAR(20),
			tipo tipo_unidade NOT NULL DEFAULT 'cras',
			endereco VARCHAR(500),
			telefone VARCHAR(20),
			email VARCHAR(255),
			responsavel_matricula VARCHAR(50),
			status status_unidade NOT NULL DEFAULT 'ativo',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_unidade_codigo UNIQUE (codigo)
		)`,
		`CREATE TABLE IF NOT EXISTS setor (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			unidade_id UUID NOT NULL,
			nome VARCHAR(255) NOT NULL,
			sigla VARCHAR(20),
			descricao TEXT,
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_setor_unidade FOREIGN KEY (unidade_id) REFERENCES unidade (id) ON DELETE CASCADE,
			CONSTRAINT uq_setor_unidade_nome UNIQUE (unidade_id, nome)
		)`,
		`CREATE TABLE IF NOT EXISTS usuario (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			nome VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			senha_hash VARCHAR(255) NOT NULL,
			cpf VARCHAR(11) NOT NULL,
			telefone VARCHAR(20),
			matricula VARCHAR(50) NOT NULL,
			role_id UUID,
			unidade_id UUID,
			setor_id UUID,
			status status_usuario NOT NULL DEFAULT 'ativo',
			primeiro_acesso BOOLEAN NOT NULL DEFAULT true,
			tentativas_login INTEGER NOT NULL DEFAULT 0,
			ultimo_login TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			removed_at TIMESTAMPTZ,
			CONSTRAINT fk_usuario_unidade FOREIGN KEY (unidade_id) REFERENCES unidade (id) ON DELETE SET NULL,
			CONSTRAINT fk_usuario_setor FOREIGN KEY (setor_id) REFERENCES setor (id) ON DELETE SET NULL,
			CONSTRAINT chk_usuario_tentativas_login CHECK (tentativas_login >= 0)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_usuario_email ON usuario (email) WHERE removed_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_usuario_cpf ON usuario (cpf) WHERE removed_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_usuario_matricula ON usuario (matricula) WHERE removed_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_usuario_role_id ON usuario (role_id)`,
		`CREATE INDEX IF NOT EXISTS idx_usuario_unidade_id ON usuario (unidade_id)`,
		`CREATE INDEX IF NOT EXISTS idx_usuario_setor_id ON usuario (setor_id)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "unidade", "setor", "usuario")
}

func (m *EstruturaOrganizacional) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.DropTables(ctx, tx, "usuario", "setor", "unidade"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, tipoUnidade, statusUnidade, statusUsuario)
}
