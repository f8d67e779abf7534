package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var tipoPapel = enum{"tipo_papel", []string{"beneficiario", "requerente", "representante_legal"}}

type PapelCidadao struct{}

func init() {
	register(&PapelCidadao{})
}

func (m *PapelCidadao) Version() int64 { return 20240101000400 }
func (m *PapelCidadao) Name() string   { return "PapelCidadao" }

func (m *PapelCidadao) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createPapelCidadao(ctx, tx); err != nil {
		return err
	}
	return installExclusividade(ctx, tx, exclusividadePorPapel)
}

func (m *PapelCidadao) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := removeExclusividade(ctx, tx); err != nil {
		return err
	}
	return dropPapelCidadao(ctx, tx)
}

// createPapelCidadao is shared with the revert of ExclusividadePorCpf, which
// must rebuild the table exactly as this unit created it.
func createPapelCidadao(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, tipoPapel); err != nil {
		return err
	}
	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS papel_cidadao (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			cidadao_id UUID NOT NULL,
			tipo_papel tipo_papel NOT NULL,
			metadados JSONB,
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			removed_at TIMESTAMPTZ,
			CONSTRAINT fk_papel_cidadao_cidadao FOREIGN KEY (cidadao_id) REFERENCES cidadao (id) ON DELETE CASCADE
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_papel_cidadao_ativo
			ON papel_cidadao (cidadao_id, tipo_papel) WHERE removed_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_papel_cidadao_tipo_papel ON papel_cidadao (tipo_papel)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "papel_cidadao")
}

func dropPapelCidadao(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.DropTables(ctx, tx, "papel_cidadao"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, tipoPapel)
}
