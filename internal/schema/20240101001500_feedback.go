package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var tipoFeedback = enum{"tipo_feedback", []string{"sugestao", "elogio", "reclamacao", "problema", "outro"}}

type Feedback struct{}

func init() {
	register(&Feedback{})
}

func (m *Feedback) Version() int64 { return 20240101001500 }
func (m *Feedback) Name() string   { return "Feedback" }

func (m *Feedback) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, tipoFeedback); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS tag (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			nome VARCHAR(50) NOT NULL,
			descricao TEXT,
			cor VARCHAR(7),
			uso_contador INTEGER NOT NULL DEFAULT 0,
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT chk_tag_cor CHECK (cor IS NULL OR cor ~ '^#[0-9A-Fa-f]{6}$'),
			CONSTRAINT chk_tag_uso_contador CHECK (uso_contador >= 0)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_tag_nome ON tag (lower(nome))`,

		`CREATE TABLE IF NOT EXISTS feedback (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			usuario_id UUID,
			tipo tipo_feedback NOT NULL,
			titulo VARCHAR(200) NOT NULL,
			descricao TEXT NOT NULL,
			pagina_origem VARCHAR(500),
			versao_sistema VARCHAR(50),
			anexos JSONB,
			prioridade INTEGER NOT NULL DEFAULT 3,
			lido BOOLEAN NOT NULL DEFAULT false,
			resolvido BOOLEAN NOT NULL DEFAULT false,
			resposta TEXT,
			respondido_por UUID,
			data_resposta TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_feedback_usuario FOREIGN KEY (usuario_id) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT fk_feedback_respondido_por FOREIGN KEY (respondido_por) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT chk_feedback_prioridade CHECK (prioridade BETWEEN 1 AND 5),
			CONSTRAINT chk_feedback_resposta CHECK (resposta IS NULL OR data_resposta IS NOT NULL)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_usuario_id ON feedback (usuario_id)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_respondido_por ON feedback (respondido_por)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_tipo_resolvido ON feedback (tipo, resolvido)`,

		`CREATE TABLE IF NOT EXISTS feedback_tag (
			feedback_id UUID NOT NULL,
			tag_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT pk_feedback_tag PRIMARY KEY (feedback_id, tag_id),
			CONSTRAINT fk_feedback_tag_feedback FOREIGN KEY (feedback_id) REFERENCES feedback (id) ON DELETE CASCADE,
			CONSTRAINT fk_feedback_tag_tag FOREIGN KEY (tag_id) REFERENCES tag (id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_tag_tag ON feedback_tag (tag_id)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "tag", "feedback")
}

func (m *Feedback) Down(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.DropTables(ctx, tx, "feedback_tag", "feedback", "tag"); err != nil {
		return err
	}
	return dropEnums(ctx, tx, tipoFeedback)
}
