// Package seed writes the reference rows PGBen needs after the schema is
// in place: permissions, roles and their grants, benefit types, critical
// actions and notification templates.
package seed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/farxc/pgben-schema/internal/logger"
	"github.com/farxc/pgben-schema/internal/migrate"
	"github.com/farxc/pgben-schema/internal/store"
)

const component = "Seeder"

const tracerName = "github.com/farxc/pgben-schema/internal/seed"

var (
	// ErrPendingMigrations indicates the schema is behind the registry.
	ErrPendingMigrations = errors.New("migrations pending")

	// ErrUnknownSet indicates a seed set name that does not exist.
	ErrUnknownSet = errors.New("unknown seed set")

	// ErrUnknownEnumLabel indicates a seed value the database enum does not define.
	ErrUnknownEnumLabel = errors.New("enum label not defined in database")

	// ErrInvalidRow indicates a malformed seed file row.
	ErrInvalidRow = errors.New("invalid seed row")
)

// PendingLister reports units not yet applied. *migrate.Runner satisfies it.
type PendingLister interface {
	Pending(ctx context.Context) ([]migrate.Status, error)
}

// LabelSource reads the labels of an enum type, empty when the type is missing.
type LabelSource interface {
	EnumLabels(ctx context.Context, typeName string) ([]string, error)
}

type Observer interface {
	ObserveSeed(set string, rows int)
}

type nopObserver struct{}

func (nopObserver) ObserveSeed(string, int) {}

// Result is the outcome of one seed set.
type Result struct {
	Set  string `json:"set"`
	Rows int    `json:"rows"`
}

type Seeder struct {
	db       *sqlx.DB
	pending  PendingLister
	labels   LabelSource
	logger   *logger.Logger
	observer Observer
	tracer   trace.Tracer
}

type Option func(*Seeder)

func WithLogger(l *logger.Logger) Option {
	return func(s *Seeder) { s.logger = logger.OrDiscard(l) }
}

func WithObserver(o Observer) Option {
	return func(s *Seeder) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Seeder) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithLabelSource replaces the catalog used to validate enum labels.
func WithLabelSource(src LabelSource) Option {
	return func(s *Seeder) {
		if src != nil {
			s.labels = src
		}
	}
}

func New(db *sqlx.DB, pending PendingLister, opts ...Option) *Seeder {
	s := &Seeder{
		db:       db,
		pending:  pending,
		logger:   logger.Discard(),
		observer: nopObserver{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.labels == nil && db != nil {
		s.labels = store.NewStorage(db).Catalog
	}
	return s
}

// ValidateEnums checks every wanted label against the database before any
// row is written. A type with no labels is reported as missing.
func ValidateEnums(ctx context.Context, src LabelSource, wanted map[string][]string) error {
	types := make([]string, 0, len(wanted))
	for t := range wanted {
		types = append(types, t)
	}
	sort.Strings(types)

	var problems []string
	for _, t := range types {
		defined, err := src.EnumLabels(ctx, t)
		if err != nil {
			return err
		}
		if len(defined) == 0 {
			problems = append(problems, fmt.Sprintf("type %s does not exist", t))
			continue
		}
		for _, label := range wanted[t] {
			if !containsString(defined, label) {
				problems = append(problems, fmt.Sprintf("%s.%s", t, label))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownEnumLabel, strings.Join(problems, ", "))
	}
	return nil
}

// selectSets resolves names to sets, keeping the canonical order. No names
// means every set.
func selectSets(names []string) ([]Set, error) {
	if len(names) == 0 {
		return Sets(), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := Lookup(n); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSet, n)
		}
		want[n] = true
	}
	var out []Set
	for _, s := range sets {
		if want[s.Name] {
			out = append(out, s)
		}
	}
	return out, nil
}

// Run applies the named sets, or all of them. It refuses to run while
// migrations are pending and validates every set before writing any.
func (s *Seeder) Run(ctx context.Context, names ...string) ([]Result, error) {
	selected, err := selectSets(names)
	if err != nil {
		return nil, err
	}

	pending, err := s.pending.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("check pending migrations: %w", err)
	}
	if len(pending) > 0 {
		return nil, fmt.Errorf("%w: %d unit(s), first %s", ErrPendingMigrations, len(pending), pending[0].Key)
	}

	plans := make([]*plan, len(selected))
	wanted := make(map[string][]string)
	for i, set := range selected {
		p, err := set.build()
		if err != nil {
			return nil, fmt.Errorf("seed set %s: %w", set.Name, err)
		}
		plans[i] = p
		for t, labels := range p.enums {
			for _, l := range labels {
				if !containsString(wanted[t], l) {
					wanted[t] = append(wanted[t], l)
				}
			}
		}
	}
	if err := ValidateEnums(ctx, s.labels, wanted); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(selected))
	for i, set := range selected {
		n, err := s.apply(ctx, set, plans[i])
		if err != nil {
			return results, fmt.Errorf("seed set %s: %w", set.Name, err)
		}
		results = append(results, Result{Set: set.Name, Rows: n})
	}
	return results, nil
}

func (s *Seeder) apply(ctx context.Context, set Set, p *plan) (n int, err error) {
	ctx, span := s.tracer.Start(ctx, "seed."+set.Name, trace.WithAttributes(
		attribute.String("seed.file", set.File),
		attribute.Int("seed.statements", len(p.rows)),
	))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, row := range p.rows {
		res, err := tx.ExecContext(ctx, row.query, row.args...)
		if err != nil {
			return 0, err
		}
		affected, _ := res.RowsAffected()
		n += int(affected)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.observer.ObserveSeed(set.Name, n)
	s.logger.Info(component, "Seed set applied: set=%s rows=%d elapsed=%s", set.Name, n, time.Since(start))
	return n, nil
}
