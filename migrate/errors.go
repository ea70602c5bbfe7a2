package migrate

import "errors"

var (
	// ErrUnknownVersion is returned when a version has no loaded migration.
	ErrUnknownVersion = errors.New("canopy: unknown migration version")

	// ErrDuplicateVersion is returned when two migrations share a version.
	ErrDuplicateVersion = errors.New("canopy: duplicate migration version")

	// ErrAlreadyApplied is returned when applying a version the ledger already records.
	ErrAlreadyApplied = errors.New("canopy: migration already applied")

	// ErrNotApplied is returned when reverting a version the ledger does not record.
	ErrNotApplied = errors.New("canopy: migration not applied")

	// ErrIrreversible is returned when reverting a migration without a down body.
	ErrIrreversible = errors.New("canopy: migration has no down body")

	// ErrInvalidFilename is returned for migration files not named <version>_<name>.(up|down).cql.
	ErrInvalidFilename = errors.New("canopy: invalid migration filename")
)
