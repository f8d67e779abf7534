package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// MigrationsTable is the bookkeeping table shared with the legacy runner.
const MigrationsTable = "migrations"

// ErrRecordNotFound is returned by Delete when no row matches.
var ErrRecordNotFound = errors.New("migration record not found")

type MigrationStore struct {
	db *sqlx.DB
}

// Exists reports whether the bookkeeping table is present in the current schema.
func (ms *MigrationStore) Exists(ctx context.Context) (bool, error) {
	var exists bool
	if err := ms.db.GetContext(ctx, &exists, `SELECT to_regclass('migrations') IS NOT NULL`); err != nil {
		return false, fmt.Errorf("check %s table: %w", MigrationsTable, err)
	}
	return exists, nil
}

func (ms *MigrationStore) EnsureTable(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS migrations (
		id SERIAL PRIMARY KEY,
		"timestamp" BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		executed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uq_migrations_name UNIQUE (name)
	)`

	if _, err := ms.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure %s table: %w", MigrationsTable, err)
	}
	return nil
}

func (ms *MigrationStore) Applied(ctx context.Context) ([]MigrationRecord, error) {
	query := `SELECT id, "timestamp", name, executed_at
		FROM migrations
		ORDER BY "timestamp", id`

	var records []MigrationRecord
	if err := ms.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return records, nil
}

// Insert records a unit inside the caller's transaction and fills ID and ExecutedAt.
func (ms *MigrationStore) Insert(ctx context.Context, tx sqlx.QueryerContext, record *MigrationRecord) error {
	query := `INSERT INTO migrations ("timestamp", name)
		VALUES ($1, $2)
		RETURNING id, executed_at`

	row := tx.QueryRowxContext(ctx, query, record.Timestamp, record.Name)
	if err := row.Scan(&record.ID, &record.ExecutedAt); err != nil {
		return fmt.Errorf("record migration %s: %w", record.Name, err)
	}
	return nil
}

// Delete removes a unit's record inside the caller's transaction.
func (ms *MigrationStore) Delete(ctx context.Context, tx sqlx.ExecerContext, name string) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM migrations WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete migration record %s: %w", name, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete migration record %s: %w", name, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, name)
	}
	return nil
}
