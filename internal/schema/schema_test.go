package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/pgben-schema/internal/migrate"
)

func TestRegistryHoldsEveryUnitInOrder(t *testing.T) {
	units := Registry().All()
	require.Len(t, units, 23)

	want := []string{
		"Extensoes", "EstruturaOrganizacional", "Cidadao", "ContextoFamiliar", "PapelCidadao",
		"TipoBeneficio", "DadosBeneficios", "Solicitacao", "PendenciasOcorrencias", "Documentos",
		"Pagamentos", "ControleAcesso", "Auditoria", "Metricas", "Notificacoes", "Feedback",
		"WhatsappFlow", "ExclusividadePorSolicitacao", "AprovacaoAcoesCriticas",
		"ResultadoBeneficioCessado", "RenovacaoSolicitacao", "ExclusividadePorCpf", "RlsUnidade",
	}
	for i, m := range units {
		assert.Equal(t, want[i], m.Name())
		assert.NoError(t, migrate.ValidateVersion(m.Version()))
		if i > 0 {
			assert.Greater(t, m.Version(), units[i-1].Version())
		}
	}
}

func TestRegistryLookupByKey(t *testing.T) {
	m, ok := Registry().Lookup("Cidadao20240101000200")
	require.True(t, ok)
	assert.Equal(t, int64(20240101000200), m.Version())

	_, ok = Registry().Lookup("Cidadao")
	assert.False(t, ok)
}

func TestExclusividadeVersionsShareTheContract(t *testing.T) {
	bodies := map[string]string{
		"papel":       exclusividadePorPapel,
		"solicitacao": exclusividadePorSolicitacao,
		"cpf":         exclusividadePorCpf,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(body, "CREATE OR REPLACE FUNCTION verificar_exclusividade_beneficiario()"))
			assert.Contains(t, body, "SECURITY DEFINER")
			assert.Contains(t, body, "NEW.removed_at IS NOT NULL")
			assert.Contains(t, body, "ERRCODE = 'P0001'")
			assert.Contains(t, body, "NEW.cidadao_id")
		})
	}

	assert.Contains(t, exclusividadePorPapel, "papel_cidadao")
	assert.Contains(t, exclusividadePorSolicitacao, "'aprovada', 'liberada', 'em_processamento', 'concluido'")
	assert.NotContains(t, exclusividadePorCpf, "papel_cidadao")
	assert.NotContains(t, exclusividadePorCpf, "solicitacao")
}

func TestEnumLabelsAreUnique(t *testing.T) {
	enums := []enum{
		tipoUnidade, statusUnidade, statusUsuario, sexo, estadoCivil, parentesco, escolaridade,
		tipoMoradia, tipoPapel, periodicidadeBeneficio, statusBeneficio, tipoCampo, statusSolicitacao,
		statusPendencia, tipoOcorrencia, tipoDocumento, statusPagamento, metodoPagamento, tipoChavePix,
		tipoConta, tipoEscopo, tipoOperacao, statusExportacao, tipoMetrica, nivelAlerta,
		canalNotificacao, statusNotificacao, tipoFeedback, statusSessaoWhatsapp, estrategiaAprovacao,
		statusSolicitacaoAprovacao, motivoEncerramento, statusVulnerabilidade, tipoDocumentoComprobatorio,
	}
	seen := make(map[string]bool)
	for _, e := range enums {
		assert.False(t, seen[e.name], "enum %s declared twice", e.name)
		seen[e.name] = true
		labels := make(map[string]bool)
		for _, l := range e.labels {
			assert.False(t, labels[l], "label %s.%s repeated", e.name, l)
			labels[l] = true
		}
	}
}

func TestRenewalLabelIsNotInBaseEnum(t *testing.T) {
	assert.NotContains(t, statusSolicitacao.labels, "aguardando_renovacao")
	assert.Contains(t, statusSolicitacao.labels, "rascunho")
	assert.Contains(t, statusSolicitacao.labels, "pendente")
}
