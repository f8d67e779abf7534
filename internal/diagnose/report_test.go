package diagnose

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/pgben-schema/internal/migrate"
	"github.com/farxc/pgben-schema/internal/store"
)

type fakeCatalog struct {
	enums       []store.EnumType
	usages      []store.EnumUsage
	tables      []store.Table
	constraints []store.Constraint
	err         error
}

func (f *fakeCatalog) Enums(context.Context) ([]store.EnumType, error) { return f.enums, f.err }
func (f *fakeCatalog) EnumUsages(context.Context) ([]store.EnumUsage, error) {
	return f.usages, nil
}
func (f *fakeCatalog) Tables(context.Context) ([]store.Table, error) { return f.tables, nil }
func (f *fakeCatalog) Constraints(context.Context) ([]store.Constraint, error) {
	return f.constraints, nil
}
func (f *fakeCatalog) Indexes(context.Context) ([]store.Index, error) { return nil, nil }
func (f *fakeCatalog) Triggers(context.Context) ([]store.Trigger, error) {
	return []store.Trigger{{Name: "trg_cidadao_updated_at", Table: "cidadao", Timing: "BEFORE", Function: "atualizar_updated_at"}}, nil
}
func (f *fakeCatalog) Functions(context.Context) ([]store.Function, error) { return nil, nil }
func (f *fakeCatalog) Policies(context.Context) ([]store.Policy, error) {
	return []store.Policy{{Table: "cidadao", Name: "cidadao_unidade", Command: "ALL"}}, nil
}
func (f *fakeCatalog) Extensions(context.Context) ([]store.Extension, error) {
	return []store.Extension{{Name: "pg_trgm", Version: "1.6"}}, nil
}

type fakeStatus struct {
	statuses []migrate.Status
	err      error
}

func (f fakeStatus) Status(context.Context) ([]migrate.Status, error) { return f.statuses, f.err }

func sampleCatalog() *fakeCatalog {
	return &fakeCatalog{
		enums: []store.EnumType{
			{Name: "sexo", Labels: []string{"masculino", "feminino", "outro"}},
			{Name: "tipo_papel", Labels: []string{"beneficiario"}},
		},
		usages: []store.EnumUsage{
			{Type: "sexo", Table: "composicao_familiar", Column: "sexo"},
			{Type: "sexo", Table: "cidadao", Column: "sexo"},
		},
		tables: []store.Table{
			{Name: "cidadao", EstimatedRows: 10, RLSEnabled: true, SoftDelete: true, HasUpdatedAt: true, UpdatedAtTrigger: true},
			{Name: "setor", HasUpdatedAt: true},
			{Name: "migrations"},
		},
		constraints: []store.Constraint{
			{Table: "cidadao", Name: "cidadao_pkey", Kind: store.ConstraintPrimaryKey, Definition: "PRIMARY KEY (id)", Indexed: true},
			{Table: "cidadao", Name: "fk_cidadao_unidade", Kind: store.ConstraintForeignKey, ReferencedTable: "unidade", OnDelete: "RESTRICT", Indexed: true},
			{Table: "setor", Name: "fk_setor_unidade", Kind: store.ConstraintForeignKey, ReferencedTable: "unidade", OnDelete: "CASCADE"},
		},
	}
}

func sampleStatus() fakeStatus {
	executed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return fakeStatus{statuses: []migrate.Status{
		{Version: 20240101000000, Name: "Extensoes", Key: "Extensoes20240101000000", Applied: true, ExecutedAt: &executed},
		{Version: 20240101000100, Name: "EstruturaOrganizacional", Key: "EstruturaOrganizacional20240101000100"},
		{Version: 20230101000000, Name: "Legacy20230101000000", Key: "Legacy20230101000000", Applied: true, Orphan: true},
	}}
}

func TestCollectJoinsEnumUsages(t *testing.T) {
	r, err := Collect(context.Background(), sampleCatalog(), sampleStatus())
	require.NoError(t, err)

	require.Len(t, r.Enums, 2)
	assert.Equal(t, []string{"cidadao.sexo", "composicao_familiar.sexo"}, r.Enums[0].Usages)
	assert.Empty(t, r.Enums[1].Usages)
	assert.Len(t, r.Migrations, 3)
	assert.Equal(t, 1, r.Pending())
}

func TestCollectPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := Collect(context.Background(), sampleCatalog(), fakeStatus{err: boom})
	assert.ErrorIs(t, err, boom)

	cat := sampleCatalog()
	cat.err = boom
	_, err = Collect(context.Background(), cat, sampleStatus())
	assert.ErrorIs(t, err, boom)
}

func TestProblems(t *testing.T) {
	r, err := Collect(context.Background(), sampleCatalog(), sampleStatus())
	require.NoError(t, err)

	got := make(map[ProblemKind][]string)
	for _, p := range r.Problems() {
		got[p.Kind] = append(got[p.Kind], p.Object)
	}
	assert.Equal(t, map[ProblemKind][]string{
		ProblemPendingMigration:    {"EstruturaOrganizacional20240101000100"},
		ProblemOrphanMigration:     {"Legacy20230101000000"},
		ProblemUnusedEnum:          {"tipo_papel"},
		ProblemMissingUpdatedAt:    {"setor"},
		ProblemUnindexedForeignKey: {"setor.fk_setor_unidade"},
	}, got)
}

func TestProblemsEmptyForHealthySchema(t *testing.T) {
	r := &Report{
		Migrations: []migrate.Status{{Version: 20240101000000, Key: "Extensoes20240101000000", Applied: true}},
		Tables:     []store.Table{{Name: "cidadao", HasUpdatedAt: true, UpdatedAtTrigger: true}},
	}
	assert.Empty(t, r.Problems())
	assert.Zero(t, r.Pending())
}

func TestWriteText(t *testing.T) {
	r, err := Collect(context.Background(), sampleCatalog(), sampleStatus())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	out := buf.String()

	for _, want := range []string{
		"== MIGRATIONS ==",
		"2024-01-02 03:04:05",
		"orphan",
		"== CONSTRAINTS: FOREIGN KEY ==",
		"-> unidade",
		"ON DELETE CASCADE",
		"masculino, feminino, outro",
		"cidadao_unidade",
		"== PROBLEMS (5) ==",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "CONSTRAINTS: CHECK")
}

func TestReportJSON(t *testing.T) {
	r, err := Collect(context.Background(), sampleCatalog(), sampleStatus())
	require.NoError(t, err)

	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"generated_at", "migrations", "enums", "tables", "constraints", "policies"} {
		assert.Contains(t, decoded, key)
	}
}
