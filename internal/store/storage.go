package store

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Storage struct {
	Migrations interface {
		Exists(ctx context.Context) (bool, error)
		EnsureTable(ctx context.Context) error
		Applied(ctx context.Context) ([]MigrationRecord, error)
		Insert(ctx context.Context, tx sqlx.QueryerContext, record *MigrationRecord) error
		Delete(ctx context.Context, tx sqlx.ExecerContext, name string) error
	}

	Catalog interface {
		Enums(ctx context.Context) ([]EnumType, error)
		EnumUsages(ctx context.Context) ([]EnumUsage, error)
		EnumLabels(ctx context.Context, typeName string) ([]string, error)
		Tables(ctx context.Context) ([]Table, error)
		Constraints(ctx context.Context) ([]Constraint, error)
		Indexes(ctx context.Context) ([]Index, error)
		Triggers(ctx context.Context) ([]Trigger, error)
		Functions(ctx context.Context) ([]Function, error)
		Policies(ctx context.Context) ([]Policy, error)
		Extensions(ctx context.Context) ([]Extension, error)
	}
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		Migrations: &MigrationStore{db: db},
		Catalog:    &CatalogStore{db: db},
	}
}
