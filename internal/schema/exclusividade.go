package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/pgben-schema/internal/ddl"
)

// The citizen-role exclusivity rule: a person who is an active beneficiary
// cannot be listed in another family's composition. The function body changed
// twice; the trigger attached to composicao_familiar stays the same.
const (
	exclusividadeFunction = "verificar_exclusividade_beneficiario"
	exclusividadeTrigger  = "trg_composicao_familiar_exclusividade"
)

const exclusividadeHeader = `CREATE OR REPLACE FUNCTION ` + exclusividadeFunction + `() RETURNS trigger
LANGUAGE plpgsql SECURITY DEFINER SET search_path FROM CURRENT AS $$
BEGIN
	IF NEW.removed_at IS NOT NULL THEN
		RETURN NEW;
	END IF;
`

const exclusividadeFooter = `
		RAISE EXCEPTION 'CPF % já possui papel de beneficiário ativo e não pode compor outra família', NEW.cpf
			USING ERRCODE = 'P0001';
	END IF;
	RETURN NEW;
END;
$$`

// v1: beneficiary role recorded in papel_cidadao.
const exclusividadePorPapel = exclusividadeHeader + `
	IF EXISTS (
		SELECT 1
		FROM papel_cidadao p
		JOIN cidadao c ON c.id = p.cidadao_id
		WHERE c.cpf = NEW.cpf
		  AND c.id <> NEW.cidadao_id
		  AND p.tipo_papel = 'beneficiario'
		  AND p.ativo
		  AND p.removed_at IS NULL
	) THEN` + exclusividadeFooter

// v2: beneficiary derived from requests that are granted or being paid.
const exclusividadePorSolicitacao = exclusividadeHeader + `
	IF EXISTS (
		SELECT 1
		FROM solicitacao s
		JOIN cidadao c ON c.id = s.beneficiario_id
		WHERE c.cpf = NEW.cpf
		  AND c.id <> NEW.cidadao_id
		  AND s.removed_at IS NULL
		  AND s.status IN ('aprovada', 'liberada', 'em_processamento', 'concluido')
	) THEN` + exclusividadeFooter

// v3: any active citizen registered with the same CPF.
const exclusividadePorCpf = exclusividadeHeader + `
	IF EXISTS (
		SELECT 1
		FROM cidadao c
		WHERE c.cpf = NEW.cpf
		  AND c.ativo = true
		  AND c.removed_at IS NULL
		  AND c.id <> NEW.cidadao_id
	) THEN` + exclusividadeFooter

func installExclusividade(ctx context.Context, tx *sqlx.Tx, body string) error {
	return ddl.Exec(ctx, tx,
		body,
		`DROP TRIGGER IF EXISTS `+exclusividadeTrigger+` ON composicao_familiar`,
		`CREATE TRIGGER `+exclusividadeTrigger+`
			BEFORE INSERT OR UPDATE ON composicao_familiar
			FOR EACH ROW EXECUTE FUNCTION `+exclusividadeFunction+`()`,
	)
}

func removeExclusividade(ctx context.Context, tx *sqlx.Tx) error {
	return ddl.Exec(ctx, tx,
		`DROP TRIGGER IF EXISTS `+exclusividadeTrigger+` ON composicao_familiar`,
		`DROP FUNCTION IF EXISTS `+exclusividadeFunction+`()`,
	)
}
