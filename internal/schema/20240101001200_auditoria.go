package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var (
	tipoOperacao = enum{"tipo_operacao", []string{
		"CREATE", "READ", "UPDATE", "DELETE", "ACCESS", "EXPORT", "LOGIN", "LOGOUT", "FAILED_LOGIN",
	}}
	statusExportacao = enum{"status_exportacao", []string{"pendente", "processando", "concluida", "falha", "cancelada"}}
)

// unidadeSetting is the session setting that scopes row-level-security
// policies to one unit. An unset or empty value disables the filter.
const unidadeSetting = `NULLIF(current_setting('app.unidade_id', true), '')`

var logsAuditoriaPolicies = []ddl.Policy{
	{
		Name:    "logs_auditoria_unidade_select",
		Table:   "logs_auditoria",
		Command: "SELECT",
		Using:   unidadeSetting + ` IS NULL OR unidade_id IS NULL OR unidade_id = ` + unidadeSetting + `::uuid`,
	},
	{
		Name:      "logs_auditoria_insert",
		Table:     "logs_auditoria",
		Command:   "INSERT",
		WithCheck: "true",
	},
}

type Auditoria struct{}

func init() {
	register(&Auditoria{})
}

func (m *Auditoria) Version() int64 { return 20240101001200 }
func (m *Auditoria) Name() string   { return "Auditoria" }

func (m *Auditoria) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, tipoOperacao, statusExportacao); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS logs_auditoria (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			tipo_operacao tipo_operacao NOT NULL,
			entidade_afetada VARCHAR(100) NOT NULL,
			entidade_id UUID,
			dados_anteriores JSONB,
			dados_novos JSONB,
			usuario_id UUID,
			unidade_id UUID,
			ip_origem VARCHAR(45),
			user_agent TEXT,
			endpoint VARCHAR(255),
			metodo_http VARCHAR(10),
			dados_sensiveis_acessados TEXT[],
			descricao TEXT,
			data_hora TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_logs_auditoria_usuario FOREIGN KEY (usuario_id) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT fk_logs_auditoria_unidade FOREIGN KEY (unidade_id) REFERENCES unidade (id) ON DELETE SET NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_auditoria_entidade ON logs_auditoria (entidade_afetada, entidade_id)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_auditoria_usuario_id ON logs_auditoria (usuario_id)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_auditoria_unidade_id ON logs_auditoria (unidade_id)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_auditoria_data_hora ON logs_auditoria (data_hora)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_auditoria_dados_anteriores ON logs_auditoria USING gin (dados_anteriores)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_auditoria_dados_novos ON logs_auditoria USING gin (entidade_afetada, dados_novos)`,

		`CREATE TABLE IF NOT EXISTS auditoria_exportacao (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			usuario_id UUID NOT NULL,
			filtros JSONB NOT NULL DEFAULT '{}'::jsonb,
			formato VARCHAR(10) NOT NULL,
			status status_exportacao NOT NULL DEFAULT 'pendente',
			progresso INTEGER NOT NULL DEFAULT 0,
			total_registros INTEGER,
			caminho_arquivo VARCHAR(500),
			tamanho_arquivo BIGINT,
			mensagem_erro TEXT,
			data_conclusao TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_auditoria_exportacao_usuario FOREIGN KEY (usuario_id) REFERENCES usuario (id) ON DELETE CASCADE,
			CONSTRAINT chk_auditoria_exportacao_progresso CHECK (progresso BETWEEN 0 AND 100),
			CONSTRAINT chk_auditoria_exportacao_formato CHECK (formato IN ('csv', 'json', 'xlsx', 'pdf'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_auditoria_exportacao_usuario_status ON auditoria_exportacao (usuario_id, status)`,
	)
	if err != nil {
		return err
	}
	if err := ddl.AttachUpdatedAt(ctx, tx, "logs_auditoria", "auditoria_exportacao"); err != nil {
		return err
	}

	if err := ddl.EnableRLS(ctx, tx, "logs_auditoria"); err != nil {
		return err
	}
	for _, p := range logsAuditoriaPolicies {
		if err := ddl.CreatePolicy(ctx, tx, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *Auditoria) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.DropTables(ctx, tx, "auditoria_exportacao", "logs_auditoria"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, tipoOperacao, statusExportacao)
}
