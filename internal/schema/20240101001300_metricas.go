package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var (
	tipoMetrica = enum{"tipo_metrica", []string{"contador", "gauge", "histograma", "resumo", "percentual"}}
	nivelAlerta = enum{"nivel_alerta", []string{"info", "aviso", "critico"}}
)

type Metricas struct{}

func init() {
	register(&Metricas{})
}

func (m *Metricas) Version() int64 { return 20240101001300 }
func (m *Metricas) Name() string   { return "Metricas" }

func (m *Metricas) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, tipoMetrica, nivelAlerta); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS metricas (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			codigo VARCHAR(100) NOT NULL,
			nome VARCHAR(255) NOT NULL,
			descricao TEXT,
			tipo tipo_metrica NOT NULL,
			unidade_medida VARCHAR(50),
			categoria VARCHAR(50),
			sql_consulta TEXT,
			intervalo_coleta_segundos INTEGER NOT NULL DEFAULT 3600,
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_metricas_codigo UNIQUE (codigo),
			CONSTRAINT chk_metricas_intervalo CHECK (intervalo_coleta_segundos > 0)
		)`,

		`CREATE TABLE IF NOT EXISTS registros_metricas (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			metrica_id UUID NOT NULL,
			valor NUMERIC(20,4) NOT NULL,
			dimensoes JSONB NOT NULL DEFAULT '{}'::jsonb,
			coletado_em TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_registros_metricas_metrica FOREIGN KEY (metrica_id) REFERENCES metricas (id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_registros_metricas_metrica_coleta ON registros_metricas (metrica_id, coletado_em)`,
		`CREATE INDEX IF NOT EXISTS idx_registros_metricas_dimensoes ON registros_metricas USING gin (dimensoes)`,

		`CREATE TABLE IF NOT EXISTS alertas_metrica (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			metrica_id UUID NOT NULL,
			nivel nivel_alerta NOT NULL,
			limiar NUMERIC(20,4) NOT NULL,
			operador VARCHAR(2) NOT NULL,
			mensagem TEXT NOT NULL,
			ativo BOOLEAN NOT NULL DEFAULT true,
			ultimo_disparo TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_alertas_metrica_metrica FOREIGN KEY (metrica_id) REFERENCES metricas (id) ON DELETE CASCADE,
			CONSTRAINT chk_alertas_metrica_operador CHECK (operador IN ('>', '>=', '<', '<=', '=', '!='))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alertas_metrica_metrica ON alertas_metrica (metrica_id)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "metricas", "alertas_metrica")
}

func (m *Metricas) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.DropTables(ctx, tx, "alertas_metrica", "registros_metricas", "metricas"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, tipoMetrica, nivelAlerta)
}
