package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var (
	canalNotificacao  = enum{"canal_notificacao", []string{"email", "sms", "push", "sistema", "whatsapp"}}
	statusNotificacao = enum{"status_notificacao", []string{"nao_lida", "lida", "arquivada"}}
)

// Recipients only see their own notifications once app.usuario_id is set.
var notificacaoDestinatarioPolicy = ddl.Policy{
	Name:  "notificacoes_sistema_destinatario",
	Table: "notificacoes_sistema",
	Using: `NULLIF(current_setting('app.usuario_id', true), '') IS NULL
		OR destinatario_id = NULLIF(current_setting('app.usuario_id', true), '')::uuid`,
}

type Notificacoes struct{}

func init() {
	register(&Notificacoes{})
}

func (m *Notificacoes) Version() int64 { return 20240101001400 }
func (m *Notificacoes) Name() string   { return "Notificacoes" }

func (m *Notificacoes) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, canalNotificacao, statusNotificacao); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS notification_template (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			codigo VARCHAR(100) NOT NULL,
			nome VARCHAR(255) NOT NULL,
			descricao TEXT,
			assunto VARCHAR(255) NOT NULL,
			corpo TEXT NOT NULL,
			corpo_html TEXT,
			canais_disponiveis canal_notificacao[] NOT NULL DEFAULT ARRAY['sistema']::canal_notificacao[],
			variaveis_requeridas TEXT[] NOT NULL DEFAULT '{}',
			categoria VARCHAR(50),
			prioridade VARCHAR(10) NOT NULL DEFAULT 'media',
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_notification_template_codigo UNIQUE (codigo),
			CONSTRAINT fk_notification_template_created_by FOREIGN KEY (created_by) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT chk_notification_template_prioridade CHECK (prioridade IN ('baixa', 'media', 'alta')),
			CONSTRAINT chk_notification_template_canais CHECK (cardinality(canais_disponiveis) > 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notification_template_created_by ON notification_template (created_by)`,

		`CREATE TABLE IF NOT EXISTS notificacoes_sistema (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			destinatario_id UUID NOT NULL,
			template_id UUID,
			titulo VARCHAR(255) NOT NULL,
			conteudo TEXT NOT NULL,
			canal canal_notificacao NOT NULL DEFAULT 'sistema',
			status status_notificacao NOT NULL DEFAULT 'nao_lida',
			dados_contexto JSONB,
			entidade_relacionada_id UUID,
			entidade_tipo VARCHAR(100),
			link VARCHAR(500),
			data_envio TIMESTAMPTZ,
			data_leitura TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_notificacoes_sistema_destinatario FOREIGN KEY (destinatario_id) REFERENCES usuario (id) ON DELETE CASCADE,
			CONSTRAINT fk_notificacoes_sistema_template FOREIGN KEY (template_id) REFERENCES notification_template (id) ON DELETE SET NULL,
			CONSTRAINT chk_notificacoes_sistema_leitura CHECK (status = 'nao_lida' OR data_leitura IS NOT NULL)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notificacoes_sistema_destinatario_status ON notificacoes_sistema (destinatario_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_notificacoes_sistema_template ON notificacoes_sistema (template_id)`,
	)
	if err != nil {
		return err
	}
	if err := ddl.AttachUpdatedAt(ctx, tx, "notification_template", "notificacoes_sistema"); err != nil {
		return err
	}
	if err := ddl.EnableRLS(ctx, tx, "notificacoes_sistema"); err != nil {
		return err
	}
	return ddl.CreatePolicy(ctx, tx, notificacaoDestinatarioPolicy)
}

func (m *Notificacoes) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.DropTables(ctx, tx, "notificacoes_sistema", "notification_template"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, canalNotificacao, statusNotificacao)
}
