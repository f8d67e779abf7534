//go:build integration

package migrate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"github.com/farxc/pgben-schema/internal/ddl"
	"github.com/farxc/pgben-schema/internal/migrate"
	"github.com/farxc/pgben-schema/internal/testutil/containers"
)

func createTable(name string) migrate.TxFunc {
	return func(ctx context.Context, tx *sqlx.Tx) error {
		return ddl.Exec(ctx, tx, `CREATE TABLE `+name+` (id INTEGER PRIMARY KEY)`)
	}
}

func dropTable(name string) migrate.TxFunc {
	return func(ctx context.Context, tx *sqlx.Tx) error {
		return ddl.DropTables(ctx, tx, name)
	}
}

// failAfterCreate leaves a table behind inside the transaction and then fails,
// so a committed partial unit would be visible.
func failAfterCreate(ctx context.Context, tx *sqlx.Tx) error {
	if err := ddl.Exec(ctx, tx, `CREATE TABLE partial (id INTEGER)`); err != nil {
		return err
	}
	return ddl.Exec(ctx, tx, `SELECT 1/0`)
}

type RunnerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	db       *sqlx.DB
}

func TestRunnerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RunnerSuite))
}

func (s *RunnerSuite) SetupSuite() {
	s.postgres = containers.GetPostgres(s.T())
}

func (s *RunnerSuite) SetupTest() {
	s.db = s.postgres.NewDatabase(s.T())
}

func (s *RunnerSuite) registry(units ...migrate.Migration) *migrate.Registry {
	reg := migrate.NewRegistry()
	s.Require().NoError(reg.Register(units...))
	return reg
}

func (s *RunnerSuite) tableExists(name string) bool {
	var ok bool
	s.Require().NoError(s.db.GetContext(context.Background(), &ok, `SELECT to_regclass($1) IS NOT NULL`, name))
	return ok
}

func (s *RunnerSuite) recorded() []string {
	var names []string
	s.Require().NoError(s.db.SelectContext(context.Background(), &names, `SELECT name FROM migrations ORDER BY "timestamp"`))
	return names
}

func (s *RunnerSuite) failingRegistry() *migrate.Registry {
	return s.registry(
		migrate.Func(20240301000000, "Alpha", createTable("alpha"), dropTable("alpha")),
		migrate.Func(20240302000000, "Broken", failAfterCreate, nil),
		migrate.Func(20240303000000, "Gamma", createTable("gamma"), dropTable("gamma")),
	)
}

func (s *RunnerSuite) TestStopsAtFirstFailure() {
	ctx := context.Background()
	runner := migrate.New(s.db, s.failingRegistry())

	res, err := runner.Up(ctx)
	s.Require().Error(err)

	var merr *migrate.MigrationError
	s.Require().True(errors.As(err, &merr))
	s.Equal(int64(20240302000000), merr.Version)
	s.Equal(migrate.DirectionUp, merr.Direction)

	s.Len(res.Applied, 1)
	s.Len(res.Failed, 1)
	s.Len(res.Skipped, 1)

	s.True(s.tableExists("alpha"))
	s.False(s.tableExists("partial"))
	s.False(s.tableExists("gamma"))
	s.Equal([]string{"Alpha20240301000000"}, s.recorded())
}

func (s *RunnerSuite) TestContinueOnErrorAttemptsEveryUnit() {
	ctx := context.Background()
	runner := migrate.New(s.db, s.failingRegistry(), migrate.WithContinueOnError(true))

	res, err := runner.Up(ctx)
	s.Require().Error(err)
	s.Len(res.Applied, 2)
	s.Len(res.Failed, 1)
	s.Empty(res.Skipped)

	s.True(s.tableExists("gamma"))
	s.False(s.tableExists("partial"))
	s.Equal([]string{"Alpha20240301000000", "Gamma20240303000000"}, s.recorded())
}

func (s *RunnerSuite) TestDownAndRedo() {
	ctx := context.Background()
	reg := s.registry(
		migrate.Func(20240301000000, "Alpha", createTable("alpha"), dropTable("alpha")),
		migrate.Func(20240302000000, "Beta", createTable("beta"), dropTable("beta")),
	)
	runner := migrate.New(s.db, reg)

	_, err := runner.Up(ctx)
	s.Require().NoError(err)

	res, err := runner.Redo(ctx)
	s.Require().NoError(err)
	s.Len(res.Reverted, 1)
	s.Len(res.Applied, 1)
	s.Equal("Beta", res.Applied[0].Name)
	s.True(s.tableExists("beta"))

	res, err = runner.Down(ctx, 5)
	s.Require().NoError(err)
	s.Len(res.Reverted, 2)
	s.Equal("Beta", res.Reverted[0].Name)
	s.False(s.tableExists("alpha"))
	s.Empty(s.recorded())

	_, err = runner.Down(ctx, 1)
	s.ErrorIs(err, migrate.ErrNothingToRevert)
}

func (s *RunnerSuite) TestRefusesUnknownAppliedRecord() {
	ctx := context.Background()
	runner := migrate.New(s.db, s.registry(
		migrate.Func(20240301000000, "Alpha", createTable("alpha"), dropTable("alpha")),
	))

	_, err := runner.Up(ctx)
	s.Require().NoError(err)

	_, err = s.db.ExecContext(ctx, `INSERT INTO migrations ("timestamp", name) VALUES (20230101000000, 'Legacy20230101000000')`)
	s.Require().NoError(err)

	_, err = runner.Up(ctx)
	s.ErrorIs(err, migrate.ErrUnknownApplied)

	statuses, err := runner.Status(ctx)
	s.Require().NoError(err)
	s.Require().Len(statuses, 2)
	s.True(statuses[1].Orphan)
}

func (s *RunnerSuite) TestStatusDoesNotCreateTable() {
	ctx := context.Background()
	runner := migrate.New(s.db, s.registry(
		migrate.Func(20240301000000, "Alpha", createTable("alpha"), dropTable("alpha")),
	))

	pending, err := runner.Pending(ctx)
	s.Require().NoError(err)
	s.Len(pending, 1)
	s.False(s.tableExists("migrations"))
}

func (s *RunnerSuite) TestLockNoWait() {
	ctx := context.Background()
	const key = 4242

	conn, err := s.db.Connx(ctx)
	s.Require().NoError(err)
	defer conn.Close()
	_, err = conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, key)
	s.Require().NoError(err)

	runner := migrate.New(s.db, s.registry(
		migrate.Func(20240301000000, "Alpha", createTable("alpha"), dropTable("alpha")),
	), migrate.WithLockKey(key), migrate.WithLockNoWait())

	_, err = runner.Up(ctx)
	s.ErrorIs(err, migrate.ErrLocked)

	_, err = conn.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, key)
	s.Require().NoError(err)

	_, err = runner.Up(ctx)
	s.NoError(err)
	s.True(s.tableExists("alpha"))
}
