// Package ddl renders and executes idempotent PostgreSQL DDL for migration units.
//
// Every identifier interpolated into a statement is checked by ValidateIdentifier
// and quoted with pq.QuoteIdentifier; literals go through pq.QuoteLiteral.
package ddl

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// maxIdentifierLen is NAMEDATALEN-1 on a stock PostgreSQL build.
const maxIdentifierLen = 63

// ValidateIdentifier ensures an identifier contains only safe characters for SQL.
func ValidateIdentifier(name string) error {
	if name == "" {
		return errors.New("identifier cannot be empty")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("identifier %q exceeds %d bytes", name, maxIdentifierLen)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("identifier must start with a letter or underscore and contain only letters, numbers, and underscores (got: %s)", name)
	}
	return nil
}

func validateAll(names ...string) error {
	for _, n := range names {
		if err := ValidateIdentifier(n); err != nil {
			return err
		}
	}
	return nil
}

// Ident validates and quotes an identifier.
func Ident(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", err
	}
	return pq.QuoteIdentifier(name), nil
}

// Exec runs statements in order and stops at the first failure.
func Exec(ctx context.Context, tx sqlx.ExecerContext, statements ...string) error {
	for i, stmt := range statements {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d (%s): %w", i+1, summarize(stmt), err)
		}
	}
	return nil
}

// summarize returns the first non-blank line of a statement, trimmed for error messages.
func summarize(stmt string) string {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if len(line) > 80 {
			return line[:77] + "..."
		}
		return line
	}
	return ""
}

// SQLSTATE codes used to classify driver errors.
const (
	codeDuplicateObject = "42710"
	codeDuplicateTable  = "42P07"
	codeDuplicateColumn = "42701"
	codeUndefinedObject = "42704"
	codeUndefinedTable  = "42P01"
	codeRaiseException  = "P0001"
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsDuplicateObject reports whether err is an "already exists" error for a type, table or column.
func IsDuplicateObject(err error) bool {
	switch pqCode(err) {
	case codeDuplicateObject, codeDuplicateTable, codeDuplicateColumn:
		return true
	}
	return false
}

// IsUndefinedObject reports whether err says the referenced object does not exist.
func IsUndefinedObject(err error) bool {
	switch pqCode(err) {
	case codeUndefinedObject, codeUndefinedTable:
		return true
	}
	return false
}

// IsRaisedException reports whether err came from a PL/pgSQL RAISE EXCEPTION.
func IsRaisedException(err error) bool {
	return pqCode(err) == codeRaiseException
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return pqCode(err) == codeUniqueViolation
}

// IsCheckViolation reports whether err is a CHECK constraint violation.
func IsCheckViolation(err error) bool {
	return pqCode(err) == codeCheckViolation
}
