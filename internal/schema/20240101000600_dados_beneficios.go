package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

// dadosBeneficioTables hold benefit-specific request data. Their foreign key
// to solicitacao is added by the Solicitacao unit.
var dadosBeneficioTables = []string{"dados_natalidade", "dados_aluguel_social", "dados_funeral", "dados_cesta_basica"}

type DadosBeneficios struct{}

func init() {
	register(&DadosBeneficios{})
}

func (m *DadosBeneficios) Version() int64 { return 20240101000600 }
func (m *DadosBeneficios) Name() string   { return "DadosBeneficios" }

func (m *DadosBeneficios) Up(ctx context.Context, tx *sqlx.Tx) error {
	err := ddl.Exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS dados_natalidade (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			solicitacao_id UUID NOT NULL,
			realiza_pre_natal BOOLEAN NOT NULL,
			atendida_psf_ubs BOOLEAN NOT NULL,
			gravidez_risco BOOLEAN NOT NULL,
			data_provavel_parto DATE NOT NULL,
			gemeos_trigemeos BOOLEAN NOT NULL DEFAULT false,
			possui_filhos BOOLEAN NOT NULL,
			quantidade_filhos INTEGER,
			telefone_cadastrado_cpf VARCHAR(20),
			chave_pix VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_dados_natalidade_solicitacao UNIQUE (solicitacao_id),
			CONSTRAINT chk_dados_natalidade_filhos CHECK (quantidade_filhos IS NULL OR quantidade_filhos >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS dados_aluguel_social (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			solicitacao_id UUID NOT NULL,
			publico_prioritario VARCHAR(100) NOT NULL,
			especificacoes TEXT[],
			situacao_moradia_atual TEXT,
			possui_imovel_interditado BOOLEAN NOT NULL DEFAULT false,
			caso_judicializado_maria_penha BOOLEAN NOT NULL DEFAULT false,
			observacoes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_dados_aluguel_social_solicitacao UNIQUE (solicitacao_id),
			CONSTRAINT chk_dados_aluguel_social_especificacoes CHECK (especificacoes IS NULL OR cardinality(especificacoes) <= 2)
		)`,
		`CREATE TABLE IF NOT EXISTS dados_funeral (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			solicitacao_id UUID NOT NULL,
			nome_completo_falecido VARCHAR(255) NOT NULL,
			data_obito DATE NOT NULL,
			local_obito VARCHAR(255) NOT NULL,
			data_autorizacao DATE,
			grau_parentesco_requerente parentesco NOT NULL,
			tipo_urna_necessaria VARCHAR(50),
			numero_certidao_obito VARCHAR(50),
			cartorio_emissor VARCHAR(255),
			observacoes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_dados_funeral_solicitacao UNIQUE (solicitacao_id),
			CONSTRAINT chk_dados_funeral_autorizacao CHECK (data_autorizacao IS NULL OR data_autorizacao >= data_obito)
		)`,
		`CREATE TABLE IF NOT EXISTS dados_cesta_basica (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			solicitacao_id UUID NOT NULL,
			quantidade_cestas_solicitadas INTEGER NOT NULL DEFAULT 1,
			periodo_concessao VARCHAR(50) NOT NULL,
			origem_atendimento VARCHAR(100) NOT NULL,
			numero_pessoas_familia INTEGER NOT NULL,
			justificativa_quantidade TEXT,
			observacoes TEXT,
			tecnico_responsavel_id UUID,
			unidade_solicitante_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_dados_cesta_basica_solicitacao UNIQUE (solicitacao_id),
			CONSTRAINT fk_dados_cesta_basica_tecnico FOREIGN KEY (tecnico_responsavel_id) REFERENCES usuario (id) ON DELETE SET NULL,
			CONSTRAINT fk_dados_cesta_basica_unidade FOREIGN KEY (unidade_solicitante_id) REFERENCES unidade (id) ON DELETE SET NULL,
			CONSTRAINT chk_dados_cesta_basica_quantidade CHECK (quantidade_cestas_solicitadas BETWEEN 1 AND 12),
			CONSTRAINT chk_dados_cesta_basica_pessoas CHECK (numero_pessoas_familia > 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dados_cesta_basica_tecnico ON dados_cesta_basica (tecnico_responsavel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dados_cesta_basica_unidade ON dados_cesta_basica (unidade_solicitante_id)`,
	)
	if err != nil {
		return err
	}
	return ddl.AttachUpdatedAt(ctx, tx, dadosBeneficioTables...)
}

func (m *DadosBeneficios) Down(ctx context.Context, tx *sqlx.Tx) error {
	return ddl.DropTables(ctx, tx, dadosBeneficioTables...)
}
