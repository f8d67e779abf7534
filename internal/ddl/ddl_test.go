package ddl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	statements []string
	failOn     string
}

func (r *recordingExecer) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	r.statements = append(r.statements, query)
	if r.failOn != "" && strings.Contains(query, r.failOn) {
		return nil, &pq.Error{Code: "42710", Message: "already exists"}
	}
	return nil, nil
}

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"cidadao", "_hidden", "composicao_familiar", "T1"}
	for _, name := range valid {
		assert.NoError(t, ValidateIdentifier(name), name)
	}

	invalid := []string{"", "1abc", "drop table", "a;b", "nome-social", `x"y`, strings.Repeat("a", 64)}
	for _, name := range invalid {
		assert.Error(t, ValidateIdentifier(name), name)
	}
}

func TestCreateEnumSQL(t *testing.T) {
	stmt, err := CreateEnumSQL("status_pagamento", "pendente", "liberado", "cancelado")
	require.NoError(t, err)

	assert.Contains(t, stmt, `CREATE TYPE "status_pagamento" AS ENUM ('pendente', 'liberado', 'cancelado');`)
	assert.Contains(t, stmt, "WHEN duplicate_object THEN null;")
}

func TestCreateEnumSQLQuotesLabels(t *testing.T) {
	stmt, err := CreateEnumSQL("tipo", "d'agua")
	require.NoError(t, err)
	assert.Contains(t, stmt, `'d''agua'`)
}

func TestCreateEnumSQLRejectsBadInput(t *testing.T) {
	_, err := CreateEnumSQL("bad name", "a")
	assert.Error(t, err)

	_, err = CreateEnumSQL("tipo")
	assert.Error(t, err)

	_, err = CreateEnumSQL("tipo", "a", "a")
	assert.Error(t, err)

	_, err = CreateEnumSQL("tipo", "a", "")
	assert.Error(t, err)
}

func TestAddEnumValueSQL(t *testing.T) {
	stmt, err := AddEnumValueSQL("status_solicitacao", "aguardando_renovacao")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TYPE "status_solicitacao" ADD VALUE IF NOT EXISTS 'aguardando_renovacao'`, stmt)

	_, err = AddEnumValueSQL("status_solicitacao", "")
	assert.Error(t, err)
}

func TestExecWrapsFailingStatement(t *testing.T) {
	rec := &recordingExecer{failOn: "second"}

	err := Exec(context.Background(), rec, "SELECT 'first'", "  ", "SELECT 'second'", "SELECT 'third'")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "statement 3")
	assert.True(t, IsDuplicateObject(err))
	assert.Len(t, rec.statements, 2, "blank statements are skipped and execution stops at the failure")
}

func TestAttachAndDetachUpdatedAt(t *testing.T) {
	rec := &recordingExecer{}
	ctx := context.Background()

	require.NoError(t, AttachUpdatedAt(ctx, rec, "cidadao"))
	require.NoError(t, DetachUpdatedAt(ctx, rec, "cidadao"))

	require.Len(t, rec.statements, 3)
	assert.Equal(t, `DROP TRIGGER IF EXISTS "trg_cidadao_updated_at" ON "cidadao"`, rec.statements[0])
	assert.Equal(t, `CREATE TRIGGER "trg_cidadao_updated_at" BEFORE UPDATE ON "cidadao" FOR EACH ROW EXECUTE FUNCTION atualizar_updated_at()`, rec.statements[1])
	assert.Equal(t, rec.statements[0], rec.statements[2])
}

func TestDropTablesKeepsOrder(t *testing.T) {
	rec := &recordingExecer{}
	require.NoError(t, DropTables(context.Background(), rec, "historico_pagamento", "pagamento"))

	assert.Equal(t, []string{
		`DROP TABLE IF EXISTS "historico_pagamento"`,
		`DROP TABLE IF EXISTS "pagamento"`,
	}, rec.statements)

	assert.Error(t, DropTables(context.Background(), rec, "x; DROP DATABASE"))
}

func TestPolicySQL(t *testing.T) {
	stmt, err := Policy{
		Name:      "notificacoes_destinatario",
		Table:     "notificacoes_sistema",
		Command:   "select",
		Using:     "destinatario_id::text = current_setting('app.usuario_id', true)",
		WithCheck: "true",
	}.SQL()
	require.NoError(t, err)

	assert.Equal(t, `CREATE POLICY "notificacoes_destinatario" ON "notificacoes_sistema" FOR SELECT USING (destinatario_id::text = current_setting('app.usuario_id', true)) WITH CHECK (true)`, stmt)

	_, err = Policy{Name: "p", Table: "t", Command: "MERGE", Using: "true"}.SQL()
	assert.Error(t, err)

	_, err = Policy{Name: "p", Table: "t"}.SQL()
	assert.Error(t, err)
}

func TestCreatePolicyDropsFirst(t *testing.T) {
	rec := &recordingExecer{}
	err := CreatePolicy(context.Background(), rec, Policy{Name: "p", Table: "t", Using: "true"})
	require.NoError(t, err)

	require.Len(t, rec.statements, 2)
	assert.Equal(t, `DROP POLICY IF EXISTS "p" ON "t"`, rec.statements[0])
}

func TestErrorClassification(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("wrapped: %w", &pq.Error{Code: pq.ErrorCode(code)})
	}

	assert.True(t, IsDuplicateObject(wrap("42P07")))
	assert.True(t, IsDuplicateObject(wrap("42701")))
	assert.True(t, IsUndefinedObject(wrap("42P01")))
	assert.True(t, IsRaisedException(wrap("P0001")))
	assert.True(t, IsUniqueViolation(wrap("23505")))
	assert.True(t, IsCheckViolation(wrap("23514")))

	assert.False(t, IsDuplicateObject(errors.New("already exists")))
	assert.False(t, IsUndefinedObject(nil))
}
