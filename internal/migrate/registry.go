package migrate

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/farxc/pgben-schema/internal/ddl"
)

const versionLayout = "20060102150405"

// Registry holds migration units keyed by version.
type Registry struct {
	mu       sync.RWMutex
	byVer    map[int64]Migration
	byName   map[string]Migration
	versions []int64
}

func NewRegistry() *Registry {
	return &Registry{
		byVer:  make(map[int64]Migration),
		byName: make(map[string]Migration),
	}
}

// ValidateVersion checks that v is a real YYYYMMDDhhmmss timestamp.
func ValidateVersion(v int64) error {
	s := strconv.FormatInt(v, 10)
	if len(s) != len(versionLayout) {
		return fmt.Errorf("%w: version %d is not a 14-digit timestamp", ErrInvalidMigration, v)
	}
	if _, err := time.Parse(versionLayout, s); err != nil {
		return fmt.Errorf("%w: version %d: %v", ErrInvalidMigration, v, err)
	}
	return nil
}

// Register adds units. It rejects invalid versions or names and duplicates of
// either, within the batch or against registered units. A rejected batch
// leaves the registry unchanged.
func (r *Registry) Register(units ...Migration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byVer := make(map[int64]Migration, len(units))
	byName := make(map[string]struct{}, len(units))
	for _, m := range units {
		if m == nil {
			return fmt.Errorf("%w: nil unit", ErrInvalidMigration)
		}
		if err := ValidateVersion(m.Version()); err != nil {
			return err
		}
		if err := ddl.ValidateIdentifier(m.Name()); err != nil {
			return fmt.Errorf("%w: name of %d: %v", ErrInvalidMigration, m.Version(), err)
		}
		existing, ok := r.byVer[m.Version()]
		if !ok {
			existing, ok = byVer[m.Version()]
		}
		if ok {
			return fmt.Errorf("%w: %d used by %s and %s", ErrDuplicateVersion, m.Version(), existing.Name(), m.Name())
		}
		_, ok = r.byName[Key(m)]
		if _, inBatch := byName[Key(m)]; ok || inBatch {
			return fmt.Errorf("%w: name %s", ErrDuplicateVersion, Key(m))
		}
		byVer[m.Version()] = m
		byName[Key(m)] = struct{}{}
	}

	for _, m := range units {
		r.byVer[m.Version()] = m
		r.byName[Key(m)] = m
		r.versions = append(r.versions, m.Version())
	}
	sort.Slice(r.versions, func(i, j int) bool { return r.versions[i] < r.versions[j] })
	return nil
}

// MustRegister is Register for init-time registration; it panics on error.
func (r *Registry) MustRegister(units ...Migration) {
	if err := r.Register(units...); err != nil {
		panic(err)
	}
}

// All returns the units in ascending version order.
func (r *Registry) All() []Migration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Migration, 0, len(r.versions))
	for _, v := range r.versions {
		out = append(out, r.byVer[v])
	}
	return out
}

// Lookup finds a unit by its bookkeeping key.
func (r *Registry) Lookup(key string) (Migration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[key]
	return m, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.versions)
}
