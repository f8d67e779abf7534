package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/farxc/pgben-schema/internal/ddl"
)

// Extensions required by later units. pg_trgm backs name search, btree_gin
// mixed GIN indexes and btree_gist the delegation exclusion constraint.
var extensions = []string{"uuid-ossp", "pgcrypto", "pg_trgm", "btree_gin", "btree_gist"}

// extensionMarker is the comment set on extensions this unit created. Down
// drops only those, leaving extensions a DBA installed beforehand.
const extensionMarker = "installed by pgben-schema"

type Extensoes struct{}

func init() {
	register(&Extensoes{})
}

func (m *Extensoes) Version() int64 { return 20240101000000 }
func (m *Extensoes) Name() string   { return "Extensoes" }

func (m *Extensoes) Up(ctx context.Context, tx *sqlx.Tx) error {
	var stmts []string
	for _, ext := range extensions {
		stmts = append(stmts, fmt.Sprintf(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_extension WHERE extname = %[1]s) THEN
				CREATE EXTENSION %[2]s;
				COMMENT ON EXTENSION %[2]s IS %[3]s;
			END IF;
		END $$`, pq.QuoteLiteral(ext), pq.QuoteIdentifier(ext), pq.QuoteLiteral(extensionMarker)))
	}
	stmts = append(stmts, `
		CREATE OR REPLACE FUNCTION `+ddl.UpdatedAtFunction+`() RETURNS trigger
		LANGUAGE plpgsql AS $$
		BEGIN
			NEW.updated_at = now();
			RETURN NEW;
		END;
		$$`)
	return ddl.Exec(ctx, tx, stmts...)
}

func (m *Extensoes) Down(ctx context.Context, tx *sqlx.Tx) error {
	stmts := []string{`DROP FUNCTION IF EXISTS ` + ddl.UpdatedAtFunction + `()`}
	for i := len(extensions) - 1; i >= 0; i-- {
		stmts = append(stmts, fmt.Sprintf(`
		DO $$
		BEGIN
			IF obj_description((SELECT oid FROM pg_extension WHERE extname = %[1]s), 'pg_extension') = %[3]s THEN
				DROP EXTENSION %[2]s;
			END IF;
		END $$`, pq.QuoteLiteral(extensions[i]), pq.QuoteIdentifier(extensions[i]), pq.QuoteLiteral(extensionMarker)))
	}
	return ddl.Exec(ctx, tx, stmts...)
}
