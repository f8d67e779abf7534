package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CatalogStore reads schema state from pg_catalog for the current schema.
// Objects owned by extensions are left out.
type CatalogStore struct {
	db *sqlx.DB
}

func (cs *CatalogStore) Enums(ctx context.Context) ([]EnumType, error) {
	query := `
	SELECT
		t.typname AS name,
		array_agg(e.enumlabel ORDER BY e.enumsortorder) AS labels
	FROM pg_type t
	JOIN pg_enum e ON e.enumtypid = t.oid
	JOIN pg_namespace n ON n.oid = t.typnamespace
	WHERE n.nspname = current_schema()
	GROUP BY t.typname
	ORDER BY t.typname`

	var enums []EnumType
	if err := cs.db.SelectContext(ctx, &enums, query); err != nil {
		return nil, fmt.Errorf("failed to query enum types: %w", err)
	}
	return enums, nil
}

func (cs *CatalogStore) EnumUsages(ctx context.Context) ([]EnumUsage, error) {
	query := `
	SELECT
		c.udt_name AS type_name,
		c.table_name,
		c.column_name
	FROM information_schema.columns c
	JOIN pg_type t ON t.typname = c.udt_name AND t.typtype = 'e'
	JOIN pg_namespace n ON n.oid = t.typnamespace AND n.nspname = c.udt_schema
	WHERE c.table_schema = current_schema()
	ORDER BY c.udt_name, c.table_name, c.column_name`

	var usages []EnumUsage
	if err := cs.db.SelectContext(ctx, &usages, query); err != nil {
		return nil, fmt.Errorf("failed to query enum usages: %w", err)
	}
	return usages, nil
}

func (cs *CatalogStore) EnumLabels(ctx context.Context, typeName string) ([]string, error) {
	query := `
	SELECT e.enumlabel
	FROM pg_type t
	JOIN pg_enum e ON e.enumtypid = t.oid
	JOIN pg_namespace n ON n.oid = t.typnamespace
	WHERE n.nspname = current_schema() AND t.typname = $1
	ORDER BY e.enumsortorder`

	var labels []string
	if err := cs.db.SelectContext(ctx, &labels, query, typeName); err != nil {
		return nil, fmt.Errorf("failed to query labels of %s: %w", typeName, err)
	}
	return labels, nil
}

func (cs *CatalogStore) Tables(ctx context.Context) ([]Table, error) {
	query := `
	SELECT
		c.relname AS name,
		GREATEST(c.reltuples, 0)::bigint AS estimated_rows,
		c.relrowsecurity AS rls_enabled,
		EXISTS (
			SELECT 1 FROM pg_attribute a
			WHERE a.attrelid = c.oid AND a.attname = 'removed_at' AND NOT a.attisdropped
		) AS soft_delete,
		EXISTS (
			SELECT 1 FROM pg_attribute a
			WHERE a.attrelid = c.oid AND a.attname = 'updated_at' AND NOT a.attisdropped
		) AS has_updated_at,
		EXISTS (
			SELECT 1 FROM pg_trigger tg
			JOIN pg_proc p ON p.oid = tg.tgfoid
			WHERE tg.tgrelid = c.oid AND NOT tg.tgisinternal AND p.proname = 'atualizar_updated_at'
		) AS updated_at_trigger
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relkind IN ('r', 'p')
		AND n.nspname = current_schema()
		AND NOT EXISTS (
			SELECT 1 FROM pg_depend d
			WHERE d.classid = 'pg_class'::regclass AND d.objid = c.oid AND d.deptype = 'e'
		)
	ORDER BY c.relname`

	var tables []Table
	if err := cs.db.SelectContext(ctx, &tables, query); err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	return tables, nil
}

func (cs *CatalogStore) Constraints(ctx context.Context) ([]Constraint, error) {
	query := `
	SELECT
		cl.relname AS table_name,
		con.conname AS name,
		con.contype::text AS kind,
		pg_get_constraintdef(con.oid) AS definition,
		COALESCE(ref.relname, '') AS referenced_table,
		CASE WHEN con.contype = 'f' THEN
			CASE con.confdeltype
				WHEN 'a' THEN 'NO ACTION'
				WHEN 'r' THEN 'RESTRICT'
				WHEN 'c' THEN 'CASCADE'
				WHEN 'n' THEN 'SET NULL'
				WHEN 'd' THEN 'SET DEFAULT'
			END
		ELSE '' END AS on_delete,
		CASE WHEN con.contype = 'f' THEN EXISTS (
			SELECT 1 FROM pg_index i
			WHERE i.indrelid = con.conrelid
				AND (string_to_array(i.indkey::text, ' ')::int2[])[1:array_length(con.conkey, 1)] = con.conkey
		) ELSE true END AS indexed
	FROM pg_constraint con
	JOIN pg_class cl ON cl.oid = con.conrelid
	JOIN pg_namespace n ON n.oid = cl.relnamespace
	LEFT JOIN pg_class ref ON ref.oid = con.confrelid
	WHERE n.nspname = current_schema()
	ORDER BY cl.relname, con.conname`

	var constraints []Constraint
	if err := cs.db.SelectContext(ctx, &constraints, query); err != nil {
		return nil, fmt.Errorf("failed to query constraints: %w", err)
	}
	return constraints, nil
}

func (cs *CatalogStore) Indexes(ctx context.Context) ([]Index, error) {
	query := `
	SELECT
		tablename AS table_name,
		indexname AS name,
		indexdef AS definition
	FROM pg_indexes
	WHERE schemaname = current_schema()
	ORDER BY tablename, indexname`

	var indexes []Index
	if err := cs.db.SelectContext(ctx, &indexes, query); err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	return indexes, nil
}

func (cs *CatalogStore) Triggers(ctx context.Context) ([]Trigger, error) {
	query := `
	SELECT
		t.tgname AS name,
		c.relname AS table_name,
		CASE
			WHEN t.tgtype & 2 > 0 THEN 'BEFORE'
			WHEN t.tgtype & 64 > 0 THEN 'INSTEAD OF'
			ELSE 'AFTER'
		END AS timing,
		p.proname AS function_name
	FROM pg_trigger t
	JOIN pg_class c ON t.tgrelid = c.oid
	JOIN pg_namespace n ON c.relnamespace = n.oid
	JOIN pg_proc p ON p.oid = t.tgfoid
	WHERE NOT t.tgisinternal
		AND n.nspname = current_schema()
	ORDER BY c.relname, t.tgname`

	var triggers []Trigger
	if err := cs.db.SelectContext(ctx, &triggers, query); err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}
	return triggers, nil
}

func (cs *CatalogStore) Functions(ctx context.Context) ([]Function, error) {
	query := `
	SELECT
		p.proname AS name,
		pg_get_function_arguments(p.oid) AS arguments,
		md5(p.prosrc) AS digest
	FROM pg_proc p
	JOIN pg_namespace n ON n.oid = p.pronamespace
	WHERE n.nspname = current_schema()
		AND NOT EXISTS (
			SELECT 1 FROM pg_depend d
			WHERE d.classid = 'pg_proc'::regclass AND d.objid = p.oid AND d.deptype = 'e'
		)
	ORDER BY p.proname, arguments`

	var functions []Function
	if err := cs.db.SelectContext(ctx, &functions, query); err != nil {
		return nil, fmt.Errorf("failed to query functions: %w", err)
	}
	return functions, nil
}

func (cs *CatalogStore) Policies(ctx context.Context) ([]Policy, error) {
	query := `
	SELECT
		tablename AS table_name,
		policyname AS name,
		cmd AS command
	FROM pg_policies
	WHERE schemaname = current_schema()
	ORDER BY tablename, policyname`

	var policies []Policy
	if err := cs.db.SelectContext(ctx, &policies, query); err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	return policies, nil
}

func (cs *CatalogStore) Extensions(ctx context.Context) ([]Extension, error) {
	query := `
	SELECT
		extname AS name,
		extversion AS version
	FROM pg_extension
	ORDER BY extname`

	var extensions []Extension
	if err := cs.db.SelectContext(ctx, &extensions, query); err != nil {
		return nil, fmt.Errorf("failed to query extensions: %w", err)
	}
	return extensions, nil
}
