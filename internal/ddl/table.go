package ddl

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// UpdatedAtFunction is the trigger function installed by the first unit.
const UpdatedAtFunction = "atualizar_updated_at"

// UpdatedAtTrigger returns the trigger name that maintains updated_at on table.
func UpdatedAtTrigger(table string) string {
	return "trg_" + table + "_updated_at"
}

// AttachUpdatedAt installs a BEFORE UPDATE trigger keeping updated_at current on each table.
func AttachUpdatedAt(ctx context.Context, tx sqlx.ExecerContext, tables ...string) error {
	for _, table := range tables {
		if err := validateAll(table, UpdatedAtTrigger(table)); err != nil {
			return err
		}
		t := pq.QuoteIdentifier(table)
		trg := pq.QuoteIdentifier(UpdatedAtTrigger(table))
		err := Exec(ctx, tx,
			fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s", trg, t),
			fmt.Sprintf("CREATE TRIGGER %s BEFORE UPDATE ON %s FOR EACH ROW EXECUTE FUNCTION %s()", trg, t, UpdatedAtFunction),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// DetachUpdatedAt removes the updated_at triggers installed by AttachUpdatedAt.
func DetachUpdatedAt(ctx context.Context, tx sqlx.ExecerContext, tables ...string) error {
	for _, table := range tables {
		if err := validateAll(table, UpdatedAtTrigger(table)); err != nil {
			return err
		}
		stmt := fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s", pq.QuoteIdentifier(UpdatedAtTrigger(table)), pq.QuoteIdentifier(table))
		if err := Exec(ctx, tx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// DropTables drops tables in the given order with IF EXISTS.
// Callers list dependents before the tables they reference.
func DropTables(ctx context.Context, tx sqlx.ExecerContext, tables ...string) error {
	for _, table := range tables {
		q, err := Ident(table)
		if err != nil {
			return err
		}
		if err := Exec(ctx, tx, "DROP TABLE IF EXISTS "+q); err != nil {
			return err
		}
	}
	return nil
}

// Policy describes a row-level-security policy.
type Policy struct {
	Name      string
	Table     string
	Command   string // ALL, SELECT, INSERT, UPDATE or DELETE; empty means ALL
	Using     string
	WithCheck string
}

// SQL renders CREATE POLICY for p.
func (p Policy) SQL() (string, error) {
	if err := validateAll(p.Name, p.Table); err != nil {
		return "", err
	}
	cmd := strings.ToUpper(strings.TrimSpace(p.Command))
	if cmd == "" {
		cmd = "ALL"
	}
	switch cmd {
	case "ALL", "SELECT", "INSERT", "UPDATE", "DELETE":
	default:
		return "", fmt.Errorf("policy %s: unsupported command %q", p.Name, p.Command)
	}
	if p.Using == "" && p.WithCheck == "" {
		return "", fmt.Errorf("policy %s needs USING or WITH CHECK", p.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE POLICY %s ON %s FOR %s", pq.QuoteIdentifier(p.Name), pq.QuoteIdentifier(p.Table), cmd)
	if p.Using != "" {
		fmt.Fprintf(&b, " USING (%s)", p.Using)
	}
	if p.WithCheck != "" {
		fmt.Fprintf(&b, " WITH CHECK (%s)", p.WithCheck)
	}
	return b.String(), nil
}

// EnableRLS turns on row-level security for each table.
func EnableRLS(ctx context.Context, tx sqlx.ExecerContext, tables ...string) error {
	return alterRLS(ctx, tx, "ENABLE", tables)
}

// DisableRLS turns off row-level security for each table.
func DisableRLS(ctx context.Context, tx sqlx.ExecerContext, tables ...string) error {
	return alterRLS(ctx, tx, "DISABLE", tables)
}

func alterRLS(ctx context.Context, tx sqlx.ExecerContext, verb string, tables []string) error {
	for _, table := range tables {
		q, err := Ident(table)
		if err != nil {
			return err
		}
		if err := Exec(ctx, tx, fmt.Sprintf("ALTER TABLE %s %s ROW LEVEL SECURITY", q, verb)); err != nil {
			return err
		}
	}
	return nil
}

// CreatePolicy drops any policy of the same name and creates p.
func CreatePolicy(ctx context.Context, tx sqlx.ExecerContext, p Policy) error {
	stmt, err := p.SQL()
	if err != nil {
		return err
	}
	if err := DropPolicy(ctx, tx, p.Name, p.Table); err != nil {
		return err
	}
	return Exec(ctx, tx, stmt)
}

// DropPolicy drops the named policy if it exists.
func DropPolicy(ctx context.Context, tx sqlx.ExecerContext, name, table string) error {
	if err := validateAll(name, table); err != nil {
		return err
	}
	return Exec(ctx, tx, fmt.Sprintf("DROP POLICY IF EXISTS %s ON %s", pq.QuoteIdentifier(name), pq.QuoteIdentifier(table)))
}
