// Package diagnose inspects a PGBen database and reports its schema state.
package diagnose

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/farxc/pgben-schema/internal/migrate"
	"github.com/farxc/pgben-schema/internal/store"
)

// Catalog is the subset of store.Storage.Catalog the report reads.
type Catalog interface {
	Enums(ctx context.Context) ([]store.EnumType, error)
	EnumUsages(ctx context.Context) ([]store.EnumUsage, error)
	Tables(ctx context.Context) ([]store.Table, error)
	Constraints(ctx context.Context) ([]store.Constraint, error)
	Indexes(ctx context.Context) ([]store.Index, error)
	Triggers(ctx context.Context) ([]store.Trigger, error)
	Functions(ctx context.Context) ([]store.Function, error)
	Policies(ctx context.Context) ([]store.Policy, error)
	Extensions(ctx context.Context) ([]store.Extension, error)
}

// StatusLister reports migration status. *migrate.Runner satisfies it.
type StatusLister interface {
	Status(ctx context.Context) ([]migrate.Status, error)
}

type Enum struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
	Usages []string `json:"usages"`
}

type Report struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Migrations  []migrate.Status   `json:"migrations"`
	Extensions  []store.Extension  `json:"extensions"`
	Enums       []Enum             `json:"enums"`
	Tables      []store.Table      `json:"tables"`
	Constraints []store.Constraint `json:"constraints"`
	Indexes     []store.Index      `json:"indexes"`
	Triggers    []store.Trigger    `json:"triggers"`
	Functions   []store.Function   `json:"functions"`
	Policies    []store.Policy     `json:"policies"`
}

// Collect reads the catalog and the migration status into a Report.
func Collect(ctx context.Context, catalog Catalog, status StatusLister) (*Report, error) {
	r := &Report{GeneratedAt: time.Now().UTC()}
	var err error

	if r.Migrations, err = status.Status(ctx); err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	if r.Extensions, err = catalog.Extensions(ctx); err != nil {
		return nil, err
	}

	enums, err := catalog.Enums(ctx)
	if err != nil {
		return nil, err
	}
	usages, err := catalog.EnumUsages(ctx)
	if err != nil {
		return nil, err
	}
	byType := make(map[string][]string)
	for _, u := range usages {
		byType[u.Type] = append(byType[u.Type], u.Table+"."+u.Column)
	}
	r.Enums = make([]Enum, 0, len(enums))
	for _, e := range enums {
		cols := byType[e.Name]
		sort.Strings(cols)
		r.Enums = append(r.Enums, Enum{Name: e.Name, Labels: []string(e.Labels), Usages: cols})
	}

	if r.Tables, err = catalog.Tables(ctx); err != nil {
		return nil, err
	}
	if r.Constraints, err = catalog.Constraints(ctx); err != nil {
		return nil, err
	}
	if r.Indexes, err = catalog.Indexes(ctx); err != nil {
		return nil, err
	}
	if r.Triggers, err = catalog.Triggers(ctx); err != nil {
		return nil, err
	}
	if r.Functions, err = catalog.Functions(ctx); err != nil {
		return nil, err
	}
	if r.Policies, err = catalog.Policies(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// ProblemKind classifies a finding.
type ProblemKind string

const (
	ProblemPendingMigration    ProblemKind = "pending_migration"
	ProblemOrphanMigration     ProblemKind = "orphan_migration"
	ProblemUnusedEnum          ProblemKind = "unused_enum"
	ProblemMissingUpdatedAt    ProblemKind = "missing_updated_at_trigger"
	ProblemUnindexedForeignKey ProblemKind = "unindexed_foreign_key"
)

type Problem struct {
	Kind   ProblemKind `json:"kind"`
	Object string      `json:"object"`
	Detail string      `json:"detail"`
}

// Problems lists findings in a stable order.
func (r *Report) Problems() []Problem {
	var out []Problem

	for _, m := range r.Migrations {
		switch {
		case m.Orphan:
			out = append(out, Problem{ProblemOrphanMigration, m.Key, "recorded as applied but unknown to this build"})
		case !m.Applied:
			out = append(out, Problem{ProblemPendingMigration, m.Key, "not applied"})
		}
	}

	for _, e := range r.Enums {
		if len(e.Usages) == 0 {
			out = append(out, Problem{ProblemUnusedEnum, e.Name, "no column uses this type"})
		}
	}

	for _, t := range r.Tables {
		if t.HasUpdatedAt && !t.UpdatedAtTrigger {
			out = append(out, Problem{ProblemMissingUpdatedAt, t.Name, "updated_at is not maintained by a trigger"})
		}
	}

	for _, c := range r.Constraints {
		if c.Kind == store.ConstraintForeignKey && !c.Indexed {
			out = append(out, Problem{ProblemUnindexedForeignKey, c.Table + "." + c.Name, "no index starts with the referencing columns"})
		}
	}
	return out
}

// Pending counts units not yet applied.
func (r *Report) Pending() int {
	n := 0
	for _, m := range r.Migrations {
		if !m.Applied && !m.Orphan {
			n++
		}
	}
	return n
}
