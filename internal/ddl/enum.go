package ddl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Column names a table column that stores an enum value.
// Default, when set, is the label restored as column default after a re-cast.
type Column struct {
	Table   string
	Column  string
	Default string
}

func quoteLabels(labels []string) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = pq.QuoteLiteral(l)
	}
	return strings.Join(quoted, ", ")
}

// CreateEnumSQL renders an idempotent CREATE TYPE ... AS ENUM block.
func CreateEnumSQL(name string, labels ...string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", err
	}
	if len(labels) == 0 {
		return "", fmt.Errorf("enum %s needs at least one label", name)
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l == "" {
			return "", fmt.Errorf("enum %s has an empty label", name)
		}
		if seen[l] {
			return "", fmt.Errorf("enum %s repeats label %q", name, l)
		}
		seen[l] = true
	}
	return fmt.Sprintf(`DO $$ BEGIN
    CREATE TYPE %s AS ENUM (%s);
EXCEPTION
    WHEN duplicate_object THEN null;
END $$;`, pq.QuoteIdentifier(name), quoteLabels(labels)), nil
}

// CreateEnum creates the enum type unless it already exists.
func CreateEnum(ctx context.Context, tx sqlx.ExecerContext, name string, labels ...string) error {
	stmt, err := CreateEnumSQL(name, labels...)
	if err != nil {
		return err
	}
	return Exec(ctx, tx, stmt)
}

// DropEnum drops enum types if they exist.
func DropEnum(ctx context.Context, tx sqlx.ExecerContext, names ...string) error {
	for _, name := range names {
		q, err := Ident(name)
		if err != nil {
			return err
		}
		if err := Exec(ctx, tx, "DROP TYPE IF EXISTS "+q); err != nil {
			return err
		}
	}
	return nil
}

// AddEnumValueSQL renders ALTER TYPE ... ADD VALUE IF NOT EXISTS.
func AddEnumValueSQL(name, label string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", err
	}
	if label == "" {
		return "", errors.New("enum label cannot be empty")
	}
	return fmt.Sprintf("ALTER TYPE %s ADD VALUE IF NOT EXISTS %s", pq.QuoteIdentifier(name), pq.QuoteLiteral(label)), nil
}

// AddEnumValue appends a label to an existing enum type.
// The new label cannot be used by the same transaction.
func AddEnumValue(ctx context.Context, tx sqlx.ExecerContext, name, label string) error {
	stmt, err := AddEnumValueSQL(name, label)
	if err != nil {
		return err
	}
	return Exec(ctx, tx, stmt)
}

// EnumLabels returns the labels of an enum type in declaration order.
func EnumLabels(ctx context.Context, q sqlx.QueryerContext, name string) ([]string, error) {
	var labels []string
	err := sqlx.SelectContext(ctx, q, &labels, `
		SELECT e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON e.enumtypid = t.oid
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE t.typname = $1 AND n.nspname = current_schema()
		ORDER BY e.enumsortorder`, name)
	if err != nil {
		return nil, fmt.Errorf("read labels of %s: %w", name, err)
	}
	return labels, nil
}

// RemoveEnumValue reverts AddEnumValue. PostgreSQL cannot drop an enum label,
// so rows holding label are moved to fallback, the type is recreated without
// the label and every usage column is re-cast to the new type.
func RemoveEnumValue(ctx context.Context, tx sqlx.ExtContext, name, label, fallback string, usages ...Column) error {
	if err := ValidateIdentifier(name); err != nil {
		return err
	}
	labels, err := EnumLabels(ctx, tx, name)
	if err != nil {
		return err
	}

	remaining := make([]string, 0, len(labels))
	found := false
	for _, l := range labels {
		if l == label {
			found = true
			continue
		}
		remaining = append(remaining, l)
	}
	if !found {
		return nil
	}
	if fallback == label || !contains(remaining, fallback) {
		return fmt.Errorf("fallback %q is not a remaining label of %s", fallback, name)
	}

	oldName := name + "_old"
	if err := ValidateIdentifier(oldName); err != nil {
		return err
	}
	typ := pq.QuoteIdentifier(name)
	oldTyp := pq.QuoteIdentifier(oldName)

	var stmts []string
	for _, u := range usages {
		if err := validateAll(u.Table, u.Column); err != nil {
			return err
		}
		t, c := pq.QuoteIdentifier(u.Table), pq.QuoteIdentifier(u.Column)
		stmts = append(stmts,
			fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s", t, c, pq.QuoteLiteral(fallback), c, pq.QuoteLiteral(label)),
			fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", t, c),
		)
	}
	stmts = append(stmts,
		fmt.Sprintf("ALTER TYPE %s RENAME TO %s", typ, oldTyp),
		fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", typ, quoteLabels(remaining)),
	)
	for _, u := range usages {
		t, c := pq.QuoteIdentifier(u.Table), pq.QuoteIdentifier(u.Column)
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::text::%s", t, c, typ, c, typ))
		if u.Default != "" {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s::%s", t, c, pq.QuoteLiteral(u.Default), typ))
		}
	}
	stmts = append(stmts, "DROP TYPE "+oldTyp)

	return Exec(ctx, tx, stmts...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
