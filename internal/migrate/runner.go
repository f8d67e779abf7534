package migrate

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/farxc/pgben-schema/internal/logger"
	"github.com/farxc/pgben-schema/internal/store"
)

const component = "Migrator"

const tracerName = "github.com/farxc/pgben-schema/internal/migrate"

// DefaultLockKey is the pg_advisory_lock key shared by every runner of this schema.
var DefaultLockKey = func() int64 {
	h := fnv.New64a()
	h.Write([]byte("pgben-schema:migrations"))
	return int64(h.Sum64())
}()

// Bookkeeper persists which units are applied.
type Bookkeeper interface {
	Exists(ctx context.Context) (bool, error)
	EnsureTable(ctx context.Context) error
	Applied(ctx context.Context) ([]store.MigrationRecord, error)
	Insert(ctx context.Context, tx sqlx.QueryerContext, record *store.MigrationRecord) error
	Delete(ctx context.Context, tx sqlx.ExecerContext, name string) error
}

// Observer is notified after every unit execution, successful or not.
type Observer interface {
	ObserveMigration(direction Direction, m Migration, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveMigration(Direction, Migration, time.Duration, error) {}

// Status describes one unit, or an orphan record, as seen by the bookkeeping table.
type Status struct {
	Version    int64      `json:"version"`
	Name       string     `json:"name"`
	Key        string     `json:"key"`
	Applied    bool       `json:"applied"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
	Orphan     bool       `json:"orphan,omitempty"`
}

// Result summarises one Up, Down or Redo call.
type Result struct {
	Applied  []Status
	Reverted []Status
	Skipped  []Status
	Failed   []*MigrationError
}

// Runner applies and reverts the units of a Registry.
//
// The advisory lock is held on a dedicated connection while each unit runs in
// its own transaction, so the pool must allow at least two open connections.
type Runner struct {
	db              *sqlx.DB
	registry        *Registry
	book            Bookkeeper
	logger          *logger.Logger
	observer        Observer
	tracer          trace.Tracer
	lockKey         int64
	lockNoWait      bool
	continueOnError bool
}

type Option func(*Runner)

func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.logger = logger.OrDiscard(l) }
}

func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

func WithLockKey(key int64) Option {
	return func(r *Runner) { r.lockKey = key }
}

// WithLockNoWait makes Up, Down and Redo fail with ErrLocked instead of
// waiting for another runner to finish.
func WithLockNoWait() Option {
	return func(r *Runner) { r.lockNoWait = true }
}

// WithBookkeeper replaces the default 'migrations' table store.
func WithBookkeeper(b Bookkeeper) Option {
	return func(r *Runner) {
		if b != nil {
			r.book = b
		}
	}
}

// WithContinueOnError restores the legacy behaviour of attempting every pending
// unit even after one failed. Failures are still collected and returned.
func WithContinueOnError(enabled bool) Option {
	return func(r *Runner) { r.continueOnError = enabled }
}

func New(db *sqlx.DB, registry *Registry, opts ...Option) *Runner {
	r := &Runner{
		db:       db,
		registry: registry,
		book:     store.NewStorage(db).Migrations,
		logger:   logger.Discard(),
		observer: nopObserver{},
		tracer:   otel.Tracer(tracerName),
		lockKey:  DefaultLockKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) lock(ctx context.Context) (func(), error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}

	if r.lockNoWait {
		var ok bool
		if err := conn.QueryRowxContext(ctx, "SELECT pg_try_advisory_lock($1)", r.lockKey).Scan(&ok); err != nil {
			conn.Close()
			return nil, fmt.Errorf("try migration lock: %w", err)
		}
		if !ok {
			conn.Close()
			return nil, ErrLocked
		}
	} else {
		r.logger.Debug(component, "Waiting for migration lock: key=%d", r.lockKey)
		if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", r.lockKey); err != nil {
			conn.Close()
			return nil, fmt.Errorf("take migration lock: %w", err)
		}
	}

	return func() {
		if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", r.lockKey); err != nil {
			r.logger.Warn(component, "Failed to release migration lock: key=%d error=%v", r.lockKey, err)
		}
		conn.Close()
	}, nil
}

// applied loads the bookkeeping rows keyed by name and fails on orphans.
func (r *Runner) applied(ctx context.Context) (map[string]store.MigrationRecord, error) {
	if err := r.book.EnsureTable(ctx); err != nil {
		return nil, err
	}
	records, err := r.book.Applied(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]store.MigrationRecord, len(records))
	var orphans []string
	for _, rec := range records {
		byName[rec.Name] = rec
		if _, ok := r.registry.Lookup(rec.Name); !ok {
			orphans = append(orphans, rec.Name)
		}
	}
	if len(orphans) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownApplied, strings.Join(orphans, ", "))
	}
	return byName, nil
}

// Up applies every pending unit in ascending version order.
func (r *Runner) Up(ctx context.Context) (*Result, error) {
	release, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	applied, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, m := range r.registry.All() {
		if _, ok := applied[Key(m)]; !ok {
			pending = append(pending, m)
		}
	}
	r.logger.Info(component, "Pending migrations: count=%d applied=%d", len(pending), len(applied))

	res := &Result{}
	var errs []error
	for i, m := range pending {
		st, merr := r.run(ctx, m, DirectionUp)
		if merr != nil {
			res.Failed = append(res.Failed, merr)
			r.logger.Error(component, "Migration failed: version=%d name=%s error=%v", m.Version(), m.Name(), merr.Err)
			if !r.continueOnError {
				for _, rest := range pending[i+1:] {
					res.Skipped = append(res.Skipped, statusOf(rest, nil))
				}
				if len(res.Skipped) > 0 {
					r.logger.Warn(component, "Stopped after failure: skipped=%d", len(res.Skipped))
				}
				return res, merr
			}
			errs = append(errs, merr)
			r.logger.Warn(component, "Continuing after failure: version=%d", m.Version())
			continue
		}
		res.Applied = append(res.Applied, st)
		r.logger.Info(component, "Migration applied: version=%d name=%s", m.Version(), m.Name())
	}

	return res, errors.Join(errs...)
}

// Down reverts the last steps applied units, newest first, and stops at the first failure.
func (r *Runner) Down(ctx context.Context, steps int) (*Result, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d", steps)
	}

	release, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return r.down(ctx, steps)
}

func (r *Runner) down(ctx context.Context, steps int) (*Result, error) {
	if err := r.book.EnsureTable(ctx); err != nil {
		return nil, err
	}
	records, err := r.book.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNothingToRevert
	}
	if steps > len(records) {
		r.logger.Warn(component, "Requested more steps than applied units: steps=%d applied=%d", steps, len(records))
		steps = len(records)
	}

	res := &Result{}
	for i := len(records) - 1; i >= len(records)-steps; i-- {
		rec := records[i]
		m, ok := r.registry.Lookup(rec.Name)
		if !ok {
			return res, fmt.Errorf("%w: %s", ErrUnknownApplied, rec.Name)
		}
		st, merr := r.run(ctx, m, DirectionDown)
		if merr != nil {
			res.Failed = append(res.Failed, merr)
			r.logger.Error(component, "Revert failed: version=%d name=%s error=%v", m.Version(), m.Name(), merr.Err)
			return res, merr
		}
		res.Reverted = append(res.Reverted, st)
		r.logger.Info(component, "Migration reverted: version=%d name=%s", m.Version(), m.Name())
	}
	return res, nil
}

// Redo reverts the most recent unit and applies it again.
func (r *Runner) Redo(ctx context.Context) (*Result, error) {
	release, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := r.down(ctx, 1)
	if err != nil {
		return res, err
	}
	for _, st := range res.Reverted {
		m, _ := r.registry.Lookup(st.Key)
		applied, merr := r.run(ctx, m, DirectionUp)
		if merr != nil {
			res.Failed = append(res.Failed, merr)
			return res, merr
		}
		res.Applied = append(res.Applied, applied)
	}
	return res, nil
}

// Status lists every registered unit followed by orphan records. It does not
// create the bookkeeping table.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	exists, err := r.book.Exists(ctx)
	if err != nil {
		return nil, err
	}
	var records []store.MigrationRecord
	if exists {
		if records, err = r.book.Applied(ctx); err != nil {
			return nil, err
		}
	}

	byName := make(map[string]*store.MigrationRecord, len(records))
	for i := range records {
		byName[records[i].Name] = &records[i]
	}

	units := r.registry.All()
	out := make([]Status, 0, len(units))
	for _, m := range units {
		out = append(out, statusOf(m, byName[Key(m)]))
	}
	for i := range records {
		if _, ok := r.registry.Lookup(records[i].Name); ok {
			continue
		}
		executed := records[i].ExecutedAt
		out = append(out, Status{
			Version:    records[i].Timestamp,
			Name:       records[i].Name,
			Key:        records[i].Name,
			Applied:    true,
			ExecutedAt: &executed,
			Orphan:     true,
		})
	}
	return out, nil
}

// Pending lists registered units not yet applied, in order.
func (r *Runner) Pending(ctx context.Context) ([]Status, error) {
	all, err := r.Status(ctx)
	if err != nil {
		return nil, err
	}
	var pending []Status
	for _, st := range all {
		if !st.Applied {
			pending = append(pending, st)
		}
	}
	return pending, nil
}

func statusOf(m Migration, rec *store.MigrationRecord) Status {
	st := Status{Version: m.Version(), Name: m.Name(), Key: Key(m)}
	if rec != nil {
		executed := rec.ExecutedAt
		st.Applied = true
		st.ExecutedAt = &executed
	}
	return st
}

// run executes one unit and its bookkeeping change in a single transaction.
func (r *Runner) run(ctx context.Context, m Migration, dir Direction) (st Status, merr *MigrationError) {
	ctx, span := r.tracer.Start(ctx, "migration."+string(dir), trace.WithAttributes(
		attribute.Int64("migration.version", m.Version()),
		attribute.String("migration.name", m.Name()),
	))
	defer span.End()

	start := time.Now()
	r.logger.Debug(component, "Running migration: version=%d name=%s direction=%s", m.Version(), m.Name(), dir)

	err := r.exec(ctx, m, dir, &st)

	elapsed := time.Since(start)
	r.observer.ObserveMigration(dir, m, elapsed, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return st, &MigrationError{Version: m.Version(), Name: m.Name(), Direction: dir, Err: err}
	}
	r.logger.Debug(component, "Migration finished: version=%d direction=%s elapsed=%s", m.Version(), dir, elapsed)
	return st, nil
}

func (r *Runner) exec(ctx context.Context, m Migration, dir Direction, st *Status) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	switch dir {
	case DirectionUp:
		if err = m.Up(ctx, tx); err != nil {
			return err
		}
		rec := &store.MigrationRecord{Timestamp: m.Version(), Name: Key(m)}
		if err = r.book.Insert(ctx, tx, rec); err != nil {
			return err
		}
		*st = statusOf(m, rec)
	case DirectionDown:
		if err = m.Down(ctx, tx); err != nil {
			return err
		}
		if err = r.book.Delete(ctx, tx, Key(m)); err != nil {
			return err
		}
		*st = statusOf(m, nil)
	default:
		return fmt.Errorf("unknown direction %q", dir)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
