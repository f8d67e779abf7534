package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var (
	estrategiaAprovacao = enum{"estrategia_aprovacao", []string{
		"simples", "maioria", "unanime", "hierarquica", "escalonamento",
	}}
	statusSolicitacaoAprovacao = enum{"status_solicitacao_aprovacao", []string{
		"pendente", "aprovada", "rejeitada", "cancelada", "expirada", "executada",
	}}
)

var aprovacaoTables = []string{
	"acoes_criticas", "configuracoes_aprovacao", "aprovador",
	"solicitacoes_aprovacao", "historico_aprovacao", "delegacoes_aprovacao",
}

type AprovacaoAcoesCriticas struct{}

func init() {
	register(&AprovacaoAcoesCriticas{})
}

func (m *AprovacaoAcoesCriticas) Version() int64 { return 20240101001800 }
func (m *AprovacaoAcoesCriticas) Name() string   { return "AprovacaoAcoesCriticas" }

func (m *AprovacaoAcoesCriticas) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, estrategiaAprovacao, statusSolicitacaoAprovacao); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS acoes_criticas (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			codigo VARCHAR(100) NOT NULL,
			nome VARCHAR(255) NOT NULL,
			descricao TEXT,
			modulo VARCHAR(50) NOT NULL,
			nivel_criticidade VARCHAR(20) NOT NULL DEFAULT 'media',
			requer_justificativa BOOLEAN NOT NULL DEFAULT true,
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_acoes_criticas_codigo UNIQUE (codigo),
			CONSTRAINT chk_acoes_criticas_nivel CHECK (nivel_criticidade IN ('baixa', 'media', 'alta', 'critica'))
		)`,

		`CREATE TABLE IF NOT EXISTS configuracoes_aprovacao (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			acao_critica_id UUID NOT NULL,
			estrategia estrategia_aprovacao NOT NULL DEFAULT 'simples',
			min_aprovadores INTEGER NOT NULL DEFAULT 1,
			max_aprovadores INTEGER,
			tempo_limite_horas INTEGER NOT NULL DEFAULT 72,
			permite_auto_aprovacao BOOLEAN NOT NULL DEFAULT false,
			escalonamento_automatico BOOLEAN NOT NULL DEFAULT false,
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_configuracoes_aprovacao_acao FOREIGN KEY (acao_critica_id) REFERENCES acoes_criticas (id) ON DELETE CASCADE,
			CONSTRAINT chk_configuracoes_aprovacao_min CHECK (min_aprovadores >= 1),
			CONSTRAINT chk_configuracoes_aprovacao_max CHECK (max_aprovadores IS NULL OR max_aprovadores >= min_aprovadores),
			CONSTRAINT chk_configuracoes_aprovacao_tempo CHECK (tempo_limite_horas > 0)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_configuracoes_aprovacao_acao_ativa
			ON configuracoes_aprovacao (acao_critica_id) WHERE ativo`,
		`CREATE INDEX IF NOT EXISTS idx_configuracoes_aprovacao_acao ON configuracoes_aprovacao (acao_critica_id)`,

		`CREATE TABLE IF NOT EXISTS aprovador (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			configuracao_aprovacao_id UUID NOT NULL,
			usuario_id UUID,
			role_id UUID,
			ordem INTEGER NOT NULL DEFAULT 1,
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_aprovador_configuracao FOREIGN KEY (configuracao_aprovacao_id) REFERENCES configuracoes_aprovacao (id) ON DELETE CASCADE,
			CONSTRAINT fk_aprovador_usuario FOREIGN KEY (usuario_id) REFERENCES usuario (id) ON DELETE CASCADE,
			CONSTRAINT fk_aprovador_role FOREIGN KEY (role_id) REFERENCES role (id) ON DELETE CASCADE,
			CONSTRAINT chk_aprovador_alvo CHECK ((usuario_id IS NULL) <> (role_id IS NULL)),
			CONSTRAINT chk_aprovador_ordem CHECK (ordem > 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_aprovador_configuracao ON aprovador (configuracao_aprovacao_id, ordem)`,
		`CREATE INDEX IF NOT EXISTS idx_aprovador_usuario ON aprovador (usuario_id)`,
		`CREATE INDEX IF NOT EXISTS idx_aprovador_role ON aprovador (role_id)`,

		`CREATE TABLE IF NOT EXISTS solicitacoes_aprovacao (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			codigo VARCHAR(50) NOT NULL,
			acao_critica_id UUID NOT NULL,
			configuracao_aprovacao_id UUID NOT NULL,
			solicitante_id UUID NOT NULL,
			status status_solicitacao_aprovacao NOT NULL DEFAULT 'pendente',
			justificativa TEXT,
			dados_acao JSONB NOT NULL,
			entidade_tipo VARCHAR(100),
			entidade_id UUID,
			aprovacoes_recebidas INTEGER NOT NULL DEFAULT 0,
			data_expiracao TIMESTAMPTZ NOT NULL,
			data_conclusao TIMESTAMPTZ,
			executado_em TIMESTAMPTZ,
			erro_execucao TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_solicitacoes_aprovacao_codigo UNIQUE (codigo),
			CONSTRAINT fk_solicitacoes_aprovacao_acao FOREIGN KEY (acao_critica_id) REFERENCES acoes_criticas (id) ON DELETE RESTRICT,
			CONSTRAINT fk_solicitacoes_aprovacao_configuracao FOREIGN KEY (configuracao_aprovacao_id) REFERENCES configuracoes_aprovacao (id) ON DELETE RESTRICT,
			CONSTRAINT fk_solicitacoes_aprovacao_solicitante FOREIGN KEY (solicitante_id) REFERENCES usuario (id) ON DELETE RESTRICT,
			CONSTRAINT chk_solicitacoes_aprovacao_expiracao CHECK (data_expiracao > created_at),
			CONSTRAINT chk_solicitacoes_aprovacao_recebidas CHECK (aprovacoes_recebidas >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacoes_aprovacao_acao ON solicitacoes_aprovacao (acao_critica_id)`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacoes_aprovacao_configuracao ON solicitacoes_aprovacao (configuracao_aprovacao_id)`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacoes_aprovacao_solicitante ON solicitacoes_aprovacao (solicitante_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_solicitacoes_aprovacao_entidade ON solicitacoes_aprovacao USING gin (entidade_tipo, dados_acao)`,

		`CREATE TABLE IF NOT EXISTS historico_aprovacao (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			solicitacao_aprovacao_id UUID NOT NULL,
			aprovador_id UUID NOT NULL,
			acao VARCHAR(20) NOT NULL,
			justificativa TEXT,
			ip_origem VARCHAR(45),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_historico_aprovacao_solicitacao FOREIGN KEY (solicitacao_aprovacao_id) REFERENCES solicitacoes_aprovacao (id) ON DELETE CASCADE,
			CONSTRAINT fk_historico_aprovacao_aprovador FOREIGN KEY (aprovador_id) REFERENCES usuario (id) ON DELETE RESTRICT,
			CONSTRAINT chk_historico_aprovacao_acao CHECK (acao IN ('aprovada', 'rejeitada', 'delegada', 'comentario'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_historico_aprovacao_solicitacao ON historico_aprovacao (solicitacao_aprovacao_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_historico_aprovacao_aprovador ON historico_aprovacao (aprovador_id)`,

		// Active delegations of one delegator may not overlap in time.
		`CREATE TABLE IF NOT EXISTS delegacoes_aprovacao (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			delegante_id UUID NOT NULL,
			delegado_id UUID NOT NULL,
			acao_critica_id UUID,
			data_inicio TIMESTAMPTZ NOT NULL,
			data_fim TIMESTAMPTZ NOT NULL,
			motivo TEXT,
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_delegacoes_aprovacao_delegante FOREIGN KEY (delegante_id) REFERENCES usuario (id) ON DELETE CASCADE,
			CONSTRAINT fk_delegacoes_aprovacao_delegado FOREIGN KEY (delegado_id) REFERENCES usuario (id) ON DELETE CASCADE,
			CONSTRAINT fk_delegacoes_aprovacao_acao FOREIGN KEY (acao_critica_id) REFERENCES acoes_criticas (id) ON DELETE CASCADE,
			CONSTRAINT chk_delegacoes_aprovacao_periodo CHECK (data_fim > data_inicio),
			CONSTRAINT chk_delegacoes_aprovacao_pessoas CHECK (delegante_id <> delegado_id),
			CONSTRAINT ex_delegacoes_aprovacao_sobreposicao EXCLUDE USING gist (
				delegante_id WITH =,
				tstzrange(data_inicio, data_fim) WITH &&
			) WHERE (ativo)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_delegacoes_aprovacao_delegado ON delegacoes_aprovacao (delegado_id)`,
		`CREATE INDEX IF NOT EXISTS idx_delegacoes_aprovacao_acao ON delegacoes_aprovacao (acao_critica_id)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx,
		"acoes_criticas", "configuracoes_aprovacao", "aprovador", "solicitacoes_aprovacao", "delegacoes_aprovacao")
}

func (m *AprovacaoAcoesCriticas) Down(ctx context.Context, tx *sqlx.Tx) error {
	reversed := make([]string, 0, len(aprovacaoTables))
	for i := len(aprovacaoTables) - 1; i >= 0; i-- {
		reversed = append(reversed, aprovacaoTables[i])
	}
	if err := ddl.DropTables(ctx, tx, reversed...); err != nil {
		return err
	}
	return dropEnums(ctx, tx, estrategiaAprovacao, statusSolicitacaoAprovacao)
}
