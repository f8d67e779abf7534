//go:build integration

package schema_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"github.com/farxc/pgben-schema/internal/ddl"
	"github.com/farxc/pgben-schema/internal/migrate"
	"github.com/farxc/pgben-schema/internal/schema"
	"github.com/farxc/pgben-schema/internal/store"
	"github.com/farxc/pgben-schema/internal/testutil/containers"
)

type column struct {
	Table    string `db:"table_name"`
	Column   string `db:"column_name"`
	Type     string `db:"udt_name"`
	Nullable string `db:"is_nullable"`
	Default  string `db:"column_default"`
}

type snapshot struct {
	Extensions  []store.Extension
	Enums       []store.EnumType
	Tables      []store.Table
	Columns     []column
	Constraints []store.Constraint
	Indexes     []store.Index
	Triggers    []store.Trigger
	Functions   []store.Function
	Policies    []store.Policy
}

func takeSnapshot(ctx context.Context, db *sqlx.DB) (*snapshot, error) {
	catalog := store.NewStorage(db).Catalog
	s := &snapshot{}
	var err error
	if s.Extensions, err = catalog.Extensions(ctx); err != nil {
		return nil, err
	}
	if s.Enums, err = catalog.Enums(ctx); err != nil {
		return nil, err
	}
	if s.Tables, err = catalog.Tables(ctx); err != nil {
		return nil, err
	}
	for i := range s.Tables {
		s.Tables[i].EstimatedRows = 0
	}
	if s.Constraints, err = catalog.Constraints(ctx); err != nil {
		return nil, err
	}
	if s.Indexes, err = catalog.Indexes(ctx); err != nil {
		return nil, err
	}
	if s.Triggers, err = catalog.Triggers(ctx); err != nil {
		return nil, err
	}
	if s.Functions, err = catalog.Functions(ctx); err != nil {
		return nil, err
	}
	if s.Policies, err = catalog.Policies(ctx); err != nil {
		return nil, err
	}
	err = db.SelectContext(ctx, &s.Columns, `
		SELECT table_name, column_name, udt_name, is_nullable, COALESCE(column_default, '') AS column_default
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		ORDER BY table_name, column_name`)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func inTx(ctx context.Context, db *sqlx.DB, fn migrate.TxFunc) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type SchemaSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
}

func TestSchemaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SchemaSuite))
}

func (s *SchemaSuite) SetupSuite() {
	s.postgres = containers.GetPostgres(s.T())
}

// Every unit's Down restores exactly the catalog its Up started from.
func (s *SchemaSuite) TestEachUnitRevertsToPreviousSnapshot() {
	ctx := context.Background()
	db := s.postgres.NewDatabase(s.T())

	for _, m := range schema.Registry().All() {
		before, err := takeSnapshot(ctx, db)
		s.Require().NoError(err)

		s.Require().NoError(inTx(ctx, db, m.Up), "up %s", m.Name())
		s.Require().NoError(inTx(ctx, db, m.Down), "down %s", m.Name())

		after, err := takeSnapshot(ctx, db)
		s.Require().NoError(err)
		s.Require().Equal(before, after, "catalog differs after reverting %s", m.Name())

		s.Require().NoError(inTx(ctx, db, m.Up), "re-apply %s", m.Name())
	}
}

func (s *SchemaSuite) TestExtensoesKeepsPreinstalledExtensions() {
	ctx := context.Background()
	db := s.postgres.NewDatabase(s.T())
	_, err := db.ExecContext(ctx, `CREATE EXTENSION pgcrypto`)
	s.Require().NoError(err)

	unit, ok := schema.Registry().Lookup("Extensoes20240101000000")
	s.Require().True(ok)
	s.Require().NoError(inTx(ctx, db, unit.Up))
	s.Require().NoError(inTx(ctx, db, unit.Down))

	var installed []string
	s.Require().NoError(db.SelectContext(ctx, &installed,
		`SELECT extname FROM pg_extension WHERE extname <> 'plpgsql' ORDER BY extname`))
	s.Equal([]string{"pgcrypto"}, installed)
}

func (s *SchemaSuite) TestFullApplyAndRevert() {
	ctx := context.Background()
	db := s.postgres.NewDatabase(s.T())
	runner := migrate.New(db, schema.Registry())

	res, err := runner.Up(ctx)
	s.Require().NoError(err)
	s.Len(res.Applied, schema.Registry().Len())

	pending, err := runner.Pending(ctx)
	s.Require().NoError(err)
	s.Empty(pending)

	res, err = runner.Up(ctx)
	s.Require().NoError(err)
	s.Empty(res.Applied)

	res, err = runner.Down(ctx, schema.Registry().Len())
	s.Require().NoError(err)
	s.Len(res.Reverted, schema.Registry().Len())

	var tables int
	s.Require().NoError(db.GetContext(ctx, &tables, `
		SELECT count(*) FROM pg_tables WHERE schemaname = current_schema() AND tablename <> 'migrations'`))
	s.Zero(tables)
}

func functionDef(ctx context.Context, db *sqlx.DB, name string) (string, error) {
	var def string
	err := db.GetContext(ctx, &def, `
		SELECT pg_get_functiondef(p.oid)
		FROM pg_proc p JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = current_schema() AND p.proname = $1`, name)
	return def, err
}

// Reverting the CPF-based rule must put back the solicitacao-based body, not
// just a function with the same name.
func (s *SchemaSuite) TestRevertingCpfExclusividadeRestoresPreviousBody() {
	ctx := context.Background()
	const fn = "verificar_exclusividade_beneficiario"

	before := migrate.NewRegistry()
	for _, m := range schema.Registry().All() {
		if m.Version() < 20240101002100 {
			s.Require().NoError(before.Register(m))
		}
	}
	partial := s.postgres.NewDatabase(s.T())
	_, err := migrate.New(partial, before).Up(ctx)
	s.Require().NoError(err)
	want, err := functionDef(ctx, partial, fn)
	s.Require().NoError(err)

	db := s.migrated()
	current, err := functionDef(ctx, db, fn)
	s.Require().NoError(err)
	s.NotEqual(want, current)

	res, err := migrate.New(db, schema.Registry()).Down(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(res.Reverted, 2)
	s.Equal("ExclusividadePorCpf", res.Reverted[1].Name)

	got, err := functionDef(ctx, db, fn)
	s.Require().NoError(err)
	s.Equal(want, got)

	var papel bool
	s.Require().NoError(db.GetContext(ctx, &papel, `SELECT to_regclass('papel_cidadao') IS NOT NULL`))
	s.True(papel)
}

func (s *SchemaSuite) migrated() *sqlx.DB {
	ctx := context.Background()
	db := s.postgres.NewDatabase(s.T())
	_, err := migrate.New(db, schema.Registry()).Up(ctx)
	s.Require().NoError(err)
	return db
}

func insertUnidade(ctx context.Context, db *sqlx.DB) (string, error) {
	var id string
	err := db.GetContext(ctx, &id, `INSERT INTO unidade (nome, codigo) VALUES ('CRAS Norte', 'CRAS-N') RETURNING id`)
	return id, err
}

func insertCidadao(ctx context.Context, db *sqlx.DB, unidadeID, nome, cpf string) (string, error) {
	var id string
	err := db.GetContext(ctx, &id, `
		INSERT INTO cidadao (nome, cpf, data_nascimento, sexo, unidade_id)
		VALUES ($1, $2, '1990-05-10', 'feminino', $3) RETURNING id`, nome, cpf, unidadeID)
	return id, err
}

func insertMembro(ctx context.Context, db *sqlx.DB, cidadaoID, cpf string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO composicao_familiar (cidadao_id, nome, cpf, parentesco)
		VALUES ($1, 'Membro', $2, 'filho')`, cidadaoID, cpf)
	return err
}

func (s *SchemaSuite) TestExclusividadeRejectsActiveCitizenCpf() {
	ctx := context.Background()
	db := s.migrated()

	unidade, err := insertUnidade(ctx, db)
	s.Require().NoError(err)
	ana, err := insertCidadao(ctx, db, unidade, "Ana", "11111111111")
	s.Require().NoError(err)
	bia, err := insertCidadao(ctx, db, unidade, "Bia", "22222222222")
	s.Require().NoError(err)

	err = insertMembro(ctx, db, bia, "11111111111")
	s.Require().Error(err)
	s.True(ddl.IsRaisedException(err), "unexpected error: %v", err)

	s.NoError(insertMembro(ctx, db, bia, "33333333333"))

	// The citizen's own CPF in their own family is not a conflict.
	s.NoError(insertMembro(ctx, db, ana, "11111111111"))

	_, err = db.ExecContext(ctx, `UPDATE cidadao SET removed_at = now() WHERE id = $1`, ana)
	s.Require().NoError(err)
	s.NoError(insertMembro(ctx, db, bia, "11111111111"))
}

func (s *SchemaSuite) TestExclusividadeSkipsRemovedMembers() {
	ctx := context.Background()
	db := s.migrated()

	unidade, err := insertUnidade(ctx, db)
	s.Require().NoError(err)
	_, err = insertCidadao(ctx, db, unidade, "Ana", "11111111111")
	s.Require().NoError(err)
	bia, err := insertCidadao(ctx, db, unidade, "Bia", "22222222222")
	s.Require().NoError(err)

	_, err = db.ExecContext(ctx, `
		INSERT INTO composicao_familiar (cidadao_id, nome, cpf, parentesco, removed_at)
		VALUES ($1, 'Membro', '11111111111', 'filho', now())`, bia)
	s.NoError(err)
}

func (s *SchemaSuite) TestCpfUniqueIgnoresSoftDeleted() {
	ctx := context.Background()
	db := s.migrated()

	unidade, err := insertUnidade(ctx, db)
	s.Require().NoError(err)
	first, err := insertCidadao(ctx, db, unidade, "Ana", "44444444444")
	s.Require().NoError(err)

	_, err = insertCidadao(ctx, db, unidade, "Ana Duplicada", "44444444444")
	s.Require().Error(err)
	s.True(ddl.IsUniqueViolation(err))

	_, err = db.ExecContext(ctx, `UPDATE cidadao SET removed_at = now() WHERE id = $1`, first)
	s.Require().NoError(err)

	_, err = insertCidadao(ctx, db, unidade, "Ana Recadastrada", "44444444444")
	s.NoError(err)
}

func (s *SchemaSuite) TestRenewalLabelAvailableAfterFullApply() {
	ctx := context.Background()
	db := s.migrated()

	labels, err := store.NewStorage(db).Catalog.EnumLabels(ctx, "status_solicitacao")
	s.Require().NoError(err)
	s.Contains(labels, "aguardando_renovacao")

	labels, err = store.NewStorage(db).Catalog.EnumLabels(ctx, "tipo_papel")
	s.Require().NoError(err)
	s.Empty(labels)
}
