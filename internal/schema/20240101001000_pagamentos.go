package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

var (
	statusPagamento = enum{"status_pagamento", []string{"agendado", "liberado", "pago", "confirmado", "cancelado"}}
	metodoPagamento = enum{"metodo_pagamento", []string{"pix", "deposito", "presencial", "doc"}}
	tipoChavePix    = enum{"tipo_chave_pix", []string{"cpf", "email", "telefone", "aleatoria"}}
	tipoConta       = enum{"tipo_conta", []string{"corrente", "poupanca", "salario"}}
)

type Pagamentos struct{}

func init() {
	register(&Pagamentos{})
}

func (m *Pagamentos) Version() int64 { return 20240101001000 }
func (m *Pagamentos) Name() string   { return "Pagamentos" }

func (m *Pagamentos) Up(ctx context.Context, tx *sqlx.Tx) error {
	if err := createEnums(ctx, tx, statusPagamento, metodoPagamento, tipoChavePix, tipoConta); err != nil {
		return err
	}

	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS info_bancaria (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			cidadao_id UUID NOT NULL,
			banco VARCHAR(3) NOT NULL,
			nome_banco VARCHAR(100),
			agencia VARCHAR(10) NOT NULL,
			conta VARCHAR(20) NOT NULL,
			tipo_conta tipo_conta NOT NULL DEFAULT 'poupanca',
			chave_pix VARCHAR(255),
			tipo_chave_pix tipo_chave_pix,
			ativo BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			removed_at TIMESTAMPTZ,
			CONSTRAINT fk_info_bancaria_cidadao FOREIGN KEY (cidadao_id) REFERENCES cidadao (id) ON DELETE CASCADE,
			CONSTRAINT chk_info_bancaria_banco CHECK (banco ~ '^[0-9]{3}$'),
			CONSTRAINT chk_info_bancaria_pix CHECK ((chave_pix IS NULL) = (tipo_chave_pix IS NULL))
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_info_bancaria_cidadao_ativa
			ON info_bancaria (cidadao_id) WHERE ativo AND removed_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_info_bancaria_cidadao_id ON info_bancaria (cidadao_id)`,

		`CREATE TABLE IF NOT EXISTS pagamento (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			solicitacao_id UUID NOT NULL,
			info_bancaria_id UUID,
			valor NUMERIC(10,2) NOT NULL,
			data_liberacao TIMESTAMPTZ,
			data_pagamento TIMESTAMPTZ,
			status status_pagamento NOT NULL DEFAULT 'agendado',
			metodo_pagamento metodo_pagamento NOT NULL,
			liberado_por UUID,
			numero_parcela INTEGER NOT NULL DEFAULT 1,
			total_parcelas INTEGER NOT NULL DEFAULT 1,
			dados_bancarios JSONB,
			observacoes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			removed_at TIMESTAMPTZ,
			CONSTRAINT fk_pagamento_solicitacao FOREIGN KEY (solicitacao_id) REFERENCES solicitacao (id) ON DELETE RESTRICT,
			CONSTRAINT fk_pagamento_info_bancaria FOREIGN KEY (info_bancaria_id) REFERENCES info_bancaria (id) ON DELETE SET NULL,
			CONSTRAINT fk_pagamento_liberado_por FOREIGN KEY (liberado_por) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT chk_pagamento_valor CHECK (valor > 0),
			CONSTRAINT chk_pagamento_parcela CHECK (numero_parcela BETWEEN 1 AND total_parcelas)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_pagamento_parcela
			ON pagamento (solicitacao_id, numero_parcela) WHERE removed_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_pagamento_solicitacao_id ON pagamento (solicitacao_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pagamento_info_bancaria_id ON pagamento (info_bancaria_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pagamento_liberado_por ON pagamento (liberado_por)`,
		`CREATE INDEX IF NOT EXISTS idx_pagamento_status ON pagamento (status)`,

		`CREATE TABLE IF NOT EXISTS historico_pagamento (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			pagamento_id UUID NOT NULL,
			status_anterior status_pagamento,
			status_novo status_pagamento NOT NULL,
			usuario_id UUID,
			observacao TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_historico_pagamento_pagamento FOREIGN KEY (pagamento_id) REFERENCES pagamento (id) ON DELETE CASCADE,
			CONSTRAINT fk_historico_pagamento_usuario FOREIGN KEY (usuario_id) REFERENCES usuario (id) ON DELETE SET NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_historico_pagamento_pagamento ON historico_pagamento (pagamento_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_historico_pagamento_usuario ON historico_pagamento (usuario_id)`,

		`CREATE TABLE IF NOT EXISTS comprovante_pagamento (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			pagamento_id UUID NOT NULL,
			tipo_documento VARCHAR(50) NOT NULL,
			nome_arquivo VARCHAR(255) NOT NULL,
			caminho_arquivo VARCHAR(500) NOT NULL,
			tamanho BIGINT,
			mime_type VARCHAR(100),
			uploaded_por UUID NOT NULL,
			data_upload TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT fk_comprovante_pagamento_pagamento FOREIGN KEY (pagamento_id) REFERENCES pagamento (id) ON DELETE CASCADE,
			CONSTRAINT fk_comprovante_pagamento_uploaded_por FOREIGN KEY (uploaded_por) REFERENCES usuario (id) ON DELETE RESTRICT,
			CONSTRAINT chk_comprovante_pagamento_tamanho CHECK (tamanho IS NULL OR tamanho > 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comprovante_pagamento_pagamento ON comprovante_pagamento (pagamento_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comprovante_pagamento_uploaded_por ON comprovante_pagamento (uploaded_por)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, "info_bancaria", "pagamento", "comprovante_pagamento")
}

func (m *Pagamentos) Down(ctx context.Context, tx *sqlx.Tx) error {
	err := ddl.DropTables(ctx, tx, "comprovante_pagamento", "historico_pagamento", "pagamento", "info_bancaria")
	if err != nil {
		return err
	}
	return dropEnums(ctx, tx, statusPagamento, metodoPagamento, tipoChavePix, tipoConta)
}
