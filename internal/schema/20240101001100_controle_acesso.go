package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var tipoEscopo = enum{"tipo_escopo", []string{"GLOBAL", "UNIDADE", "PROPRIO"}}

type ControleAcesso struct{}

func init() {
	register(&ControleAcesso{})
}

func (m *ControleAcesso) Version() int64 { return 20240101001100 }
func (m *ControleAcesso) Name() string   { return "ControleAcesso" }

func (m *ControleAcesso) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, tipoEscopo); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS role (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			nome VARCHAR(100) NOT NULL,
			codigo VARCHAR(50) NOT NULL,
			descricao TEXT,
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_role_codigo UNIQUE (codigo)
		)`,
		`ALTER TABLE usuario ADD CONSTRAINT fk_usuario_role
			FOREIGN KEY (role_id) REFERENCES role (id) ON DELETE RESTRICT`,

		`CREATE TABLE IF NOT EXISTS permission (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			nome VARCHAR(100) NOT NULL,
			descricao TEXT,
			modulo VARCHAR(50) NOT NULL,
			acao VARCHAR(50) NOT NULL,
			composta BOOLEAN NOT NULL DEFAULT false,
			permissao_pai_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_permission_nome UNIQUE (nome),
			CONSTRAINT fk_permission_pai FOREIGN KEY (permissao_pai_id) REFERENCES permission (id) ON DELETE SET NULL,
			CONSTRAINT chk_permission_nome_formato CHECK (nome ~ '^[a-z0-9_]+(\.[a-z0-9_*]+)+$')
		)`,
		`CREATE INDEX IF NOT EXISTS idx_permission_pai ON permission (permissao_pai_id)`,
		`CREATE INDEX IF NOT EXISTS idx_permission_modulo ON permission (modulo)`,

		`CREATE TABLE IF NOT EXISTS permission_group (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			nome VARCHAR(100) NOT NULL,
			descricao TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_permission_group_nome UNIQUE (nome)
		)`,

		`CREATE TABLE IF NOT EXISTS permission_group_mapping (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			permission_id UUID NOT NULL,
			group_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_permission_group_mapping_permission FOREIGN KEY (permission_id) REFERENCES permission (id) ON DELETE CASCADE,
			CONSTRAINT fk_permission_group_mapping_group FOREIGN KEY (group_id) REFERENCES permission_group (id) ON DELETE CASCADE,
			CONSTRAINT uq_permission_group_mapping UNIQUE (permission_id, group_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_permission_group_mapping_group ON permission_group_mapping (group_id)`,

		`CREATE TABLE IF NOT EXISTS role_permission (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			role_id UUID NOT NULL,
			permission_id UUID NOT NULL,
			criado_por UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_role_permission_role FOREIGN KEY (role_id) REFERENCES role (id) ON DELETE CASCADE,
			CONSTRAINT fk_role_permission_permission FOREIGN KEY (permission_id) REFERENCES permission (id) ON DELETE CASCADE,
			CONSTRAINT fk_role_permission_criado_por FOREIGN KEY (criado_por) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT uq_role_permission UNIQUE (role_id, permission_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_role_permission_permission ON role_permission (permission_id)`,
		`CREATE INDEX IF NOT EXISTS idx_role_permission_criado_por ON role_permission (criado_por)`,

		// A grant that is still active cannot carry revocation data, and
		// unit-scoped grants must name the unit.
		`CREATE TABLE IF NOT EXISTS user_permission (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			usuario_id UUID NOT NULL,
			permission_id UUID NOT NULL,
			concedida BOOLEAN NOT NULL DEFAULT true,
			tipo_escopo tipo_escopo NOT NULL DEFAULT 'GLOBAL',
			escopo_id UUID,
			valido_ate TIMESTAMPTZ,
			criado_por UUID,
			revogado_em TIMESTAMPTZ,
			revogado_por UUID,
			motivo_revogacao TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_user_permission_usuario FOREIGN KEY (usuario_id) REFERENCES usuario (id) ON DELETE CASCADE,
			CONSTRAINT fk_user_permission_permission FOREIGN KEY (permission_id) REFERENCES permission (id) ON DELETE CASCADE,
			CONSTRAINT fk_user_permission_criado_por FOREIGN KEY (criado_por) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT fk_user_permission_revogado_por FOREIGN KEY (revogado_por) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT chk_user_permission_revogacao CHECK (
				NOT (concedida AND (revogado_em IS NOT NULL OR motivo_revogacao IS NOT NULL))
			),
			CONSTRAINT chk_user_permission_escopo CHECK (tipo_escopo <> 'UNIDADE' OR escopo_id IS NOT NULL)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_user_permission_escopo ON user_permission (
			usuario_id, permission_id, tipo_escopo,
			COALESCE(escopo_id, '00000000-0000-0000-0000-000000000000'::uuid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_permission_permission ON user_permission (permission_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_permission_criado_por ON user_permission (criado_por)`,
		`CREATE INDEX IF NOT EXISTS idx_user_permission_revogado_por ON user_permission (revogado_por)`,

		`CREATE TABLE IF NOT EXISTS permission_scope (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			permission_id UUID NOT NULL,
			tipo_escopo_padrao tipo_escopo NOT NULL DEFAULT 'GLOBAL',
			descricao TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_permission_scope_permission FOREIGN KEY (permission_id) REFERENCES permission (id) ON DELETE CASCADE,
			CONSTRAINT uq_permission_scope_permission UNIQUE (permission_id)
		)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "role", "permission", "permission_group", "user_permission", "permission_scope")
}

func (m *ControleAcesso) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.Exec(ctx, tx, `ALTER TABLE IF EXISTS usuario DROP CONSTRAINT IF EXISTS fk_usuario_role`); err != nil {
		return err
	}
	err := ddl.DropTables(ctx, tx,
		"permission_scope", "user_permission", "role_permission", "permission_group_mapping",
		"permission_group", "permission", "role")
	if err != nil {
		return err
	}
	return dropEnums(ctx, tx, tipoEscopo)
}
