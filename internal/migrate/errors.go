package migrate

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateVersion indicates two units share a version or a name.
	ErrDuplicateVersion = errors.New("duplicate migration version")

	// ErrInvalidMigration indicates a unit with a malformed version or name.
	ErrInvalidMigration = errors.New("invalid migration")

	// ErrUnknownApplied indicates the bookkeeping table holds a unit the registry does not know.
	// The runner refuses to continue because the schema history diverged from the code.
	ErrUnknownApplied = errors.New("applied migration not in registry")

	// ErrLocked indicates another runner holds the migration lock.
	ErrLocked = errors.New("migration lock held by another runner")

	// ErrNothingToRevert indicates Down found no applied unit.
	ErrNothingToRevert = errors.New("no applied migration to revert")
)

// Direction is the way a unit is executed.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// MigrationError reports a unit that failed and was rolled back.
type MigrationError struct {
	Version   int64
	Name      string
	Direction Direction
	Err       error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d %s (%s) failed: %v", e.Version, e.Name, e.Direction, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}
