package store

import (
	"time"

	"github.com/lib/pq"
)

// MigrationRecord represents a row of the 'migrations' bookkeeping table.
type MigrationRecord struct {
	ID         int64     `db:"id" json:"id"`
	Timestamp  int64     `db:"timestamp" json:"timestamp"`
	Name       string    `db:"name" json:"name"`
	ExecutedAt time.Time `db:"executed_at" json:"executed_at"`
}

// EnumType is a user-defined enum with its labels in sort order.
type EnumType struct {
	Name   string         `db:"name" json:"name"`
	Labels pq.StringArray `db:"labels" json:"labels"`
}

// EnumUsage is a table column typed with an enum.
type EnumUsage struct {
	Type   string `db:"type_name" json:"type"`
	Table  string `db:"table_name" json:"table"`
	Column string `db:"column_name" json:"column"`
}

type Table struct {
	Name             string `db:"name" json:"name"`
	EstimatedRows    int64  `db:"estimated_rows" json:"estimated_rows"`
	RLSEnabled       bool   `db:"rls_enabled" json:"rls_enabled"`
	SoftDelete       bool   `db:"soft_delete" json:"soft_delete"`
	HasUpdatedAt     bool   `db:"has_updated_at" json:"has_updated_at"`
	UpdatedAtTrigger bool   `db:"updated_at_trigger" json:"updated_at_trigger"`
}

// ConstraintKind mirrors pg_constraint.contype.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "p"
	ConstraintForeignKey ConstraintKind = "f"
	ConstraintUnique     ConstraintKind = "u"
	ConstraintCheck      ConstraintKind = "c"
	ConstraintExclusion  ConstraintKind = "x"
	ConstraintTrigger    ConstraintKind = "t"
)

var constraintKindNames = map[ConstraintKind]string{
	ConstraintPrimaryKey: "PRIMARY KEY",
	ConstraintForeignKey: "FOREIGN KEY",
	ConstraintUnique:     "UNIQUE",
	ConstraintCheck:      "CHECK",
	ConstraintExclusion:  "EXCLUDE",
	ConstraintTrigger:    "TRIGGER",
}

func (k ConstraintKind) String() string {
	if name, ok := constraintKindNames[k]; ok {
		return name
	}
	return string(k)
}

type Constraint struct {
	Table           string         `db:"table_name" json:"table"`
	Name            string         `db:"name" json:"name"`
	Kind            ConstraintKind `db:"kind" json:"kind"`
	Definition      string         `db:"definition" json:"definition"`
	ReferencedTable string         `db:"referenced_table" json:"referenced_table,omitempty"`
	OnDelete        string         `db:"on_delete" json:"on_delete,omitempty"`
	Indexed         bool           `db:"indexed" json:"indexed"`
}

type Index struct {
	Table      string `db:"table_name" json:"table"`
	Name       string `db:"name" json:"name"`
	Definition string `db:"definition" json:"definition"`
}

type Trigger struct {
	Name     string `db:"name" json:"name"`
	Table    string `db:"table_name" json:"table"`
	Timing   string `db:"timing" json:"timing"`
	Function string `db:"function_name" json:"function"`
}

// Function is a routine in the current schema. Digest is the md5 of its
// source, so two versions of the same function compare unequal.
type Function struct {
	Name      string `db:"name" json:"name"`
	Arguments string `db:"arguments" json:"arguments"`
	Digest    string `db:"digest" json:"digest"`
}

type Policy struct {
	Table   string `db:"table_name" json:"table"`
	Name    string `db:"name" json:"name"`
	Command string `db:"command" json:"command"`
}

type Extension struct {
	Name    string `db:"name" json:"name"`
	Version string `db:"version" json:"version"`
}
