//go:build integration

// Package containers starts the throwaway PostgreSQL server integration tests run against.
package containers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/farxc/pgben-schema/internal/db"
)

const image = "postgres:16-alpine"

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	Admin     *sqlx.DB
}

var (
	shared     *PostgresContainer
	sharedErr  error
	sharedOnce sync.Once
)

// GetPostgres returns the container shared by every suite of the test binary.
// Ryuk removes it when the binary exits.
func GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	sharedOnce.Do(func() {
		shared, sharedErr = start(context.Background())
	})
	if sharedErr != nil {
		t.Fatalf("failed to start postgres container: %v", sharedErr)
	}
	return shared
}

func start(ctx context.Context) (*PostgresContainer, error) {
	container, err := tcpostgres.Run(ctx, image,
		tcpostgres.WithDatabase("pgben"),
		tcpostgres.WithUsername("pgben"),
		tcpostgres.WithPassword("pgben"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("connection string: %w", err)
	}

	admin, err := db.New(db.Config{URL: dsn, MaxOpenConns: 4, MaxIdleConns: 2})
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &PostgresContainer{Container: container, DSN: dsn, Admin: admin}, nil
}

// NewDatabase creates an empty database in the shared container and drops it
// when the test ends. The pool allows the two connections the runner needs.
func (p *PostgresContainer) NewDatabase(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	name := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := p.Admin.ExecContext(ctx, "CREATE DATABASE "+name); err != nil {
		t.Fatalf("failed to create database %s: %v", name, err)
	}

	u, err := url.Parse(p.DSN)
	if err != nil {
		t.Fatalf("failed to parse dsn: %v", err)
	}
	u.Path = "/" + name

	conn, err := db.New(db.Config{URL: u.String(), MaxOpenConns: 4, MaxIdleConns: 2})
	if err != nil {
		t.Fatalf("failed to connect to %s: %v", name, err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		_, _ = p.Admin.ExecContext(context.Background(), "DROP DATABASE IF EXISTS "+name+" WITH (FORCE)")
	})
	return conn
}
