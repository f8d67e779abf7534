package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var statusSessaoWhatsapp = enum{"status_sessao_whatsapp", []string{"ativa", "finalizada", "expirada", "erro"}}

type WhatsappFlow struct{}

func init() {
	register(&WhatsappFlow{})
}

func (m *WhatsappFlow) Version() int64 { return 20240101001600 }
func (m *WhatsappFlow) Name() string   { return "WhatsappFlow" }

func (m *WhatsappFlow) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, statusSessaoWhatsapp); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS whatsapp_flow_sessions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			flow_token VARCHAR(255) NOT NULL,
			numero_telefone VARCHAR(20) NOT NULL,
			cidadao_id UUID,
			screen_atual VARCHAR(100),
			dados_sessao JSONB NOT NULL DEFAULT '{}'::jsonb,
			status status_sessao_whatsapp NOT NULL DEFAULT 'ativa',
			expira_em TIMESTAMPTZ NOT NULL,
			finalizada_em TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_whatsapp_flow_sessions_token UNIQUE (flow_token),
			CONSTRAINT fk_whatsapp_flow_sessions_cidadao FOREIGN KEY (cidadao_id) REFERENCES cidadao (id) ON DELETE SET NULL,
			CONSTRAINT chk_whatsapp_flow_sessions_expiracao CHECK (expira_em > created_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_whatsapp_flow_sessions_telefone ON whatsapp_flow_sessions (numero_telefone, status)`,
		`CREATE INDEX IF NOT EXISTS idx_whatsapp_flow_sessions_cidadao ON whatsapp_flow_sessions (cidadao_id)`,

		`CREATE TABLE IF NOT EXISTS whatsapp_flow_logs (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			session_id UUID NOT NULL,
			acao VARCHAR(100) NOT NULL,
			screen VARCHAR(100),
			dados_entrada JSONB,
			dados_saida JSONB,
			erro TEXT,
			duracao_ms INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_whatsapp_flow_logs_session FOREIGN KEY (session_id) REFERENCES whatsapp_flow_sessions (id) ON DELETE CASCADE,
			CONSTRAINT chk_whatsapp_flow_logs_duracao CHECK (duracao_ms IS NULL OR duracao_ms >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_whatsapp_flow_logs_session ON whatsapp_flow_logs (session_id, created_at)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "whatsapp_flow_sessions")
}

func (m *WhatsappFlow) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.DropTables(ctx, tx, "whatsapp_flow_logs", "whatsapp_flow_sessions"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, statusSessaoWhatsapp)
}
