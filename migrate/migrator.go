package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jacentio/canopy/record"
)

// Config holds configuration for a Migrator.
type Config struct {
	// Logger receives one entry per applied or reverted migration. Default: no-op.
	Logger *zap.Logger
}

func (c *Config) validate() {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Migrator applies and reverts migrations and keeps the ledger in step. The
// ledger is written after a body succeeds, so a failed body leaves its version
// pending.
type Migrator struct {
	conn       record.Connector
	ledger     Ledger
	migrations []Migration
	index      map[int64]int
	logger     *zap.Logger
}

// New returns a Migrator running bodies through conn. Migrations are ordered by
// version; duplicate versions are rejected.
func New(conn record.Connector, ledger Ledger, migrations []Migration, config Config) (*Migrator, error) {
	config.validate()
	sorted, err := sortMigrations(migrations)
	if err != nil {
		return nil, err
	}
	index := make(map[int64]int, len(sorted))
	for i, m := range sorted {
		index[m.Version] = i
	}
	return &Migrator{
		conn:       conn,
		ledger:     ledger,
		migrations: sorted,
		index:      index,
		logger:     config.Logger,
	}, nil
}

// Migrations returns the loaded migrations in version order.
func (m *Migrator) Migrations() []Migration {
	return append([]Migration(nil), m.migrations...)
}

// Versions returns the loaded versions, ascending.
func (m *Migrator) Versions() []int64 {
	out := make([]int64, len(m.migrations))
	for i, mig := range m.migrations {
		out[i] = mig.Version
	}
	return out
}

// Pending returns the loaded migrations the ledger has not recorded, ascending.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	versions, err := Pending(ctx, m.ledger, m.Versions())
	if err != nil {
		return nil, err
	}
	out := make([]Migration, len(versions))
	for i, v := range versions {
		out[i] = m.migrations[m.index[v]]
	}
	return out, nil
}

// Up runs the up body of version and records it.
func (m *Migrator) Up(ctx context.Context, version int64) error {
	mig, err := m.lookup(version)
	if err != nil {
		return err
	}
	applied, err := m.isApplied(ctx, version)
	if err != nil {
		return err
	}
	if applied {
		return fmt.Errorf("%w: %s", ErrAlreadyApplied, mig)
	}
	return m.apply(ctx, mig)
}

// Down runs the down body of version and removes it from the ledger.
func (m *Migrator) Down(ctx context.Context, version int64) error {
	mig, err := m.lookup(version)
	if err != nil {
		return err
	}
	if mig.Down == nil {
		return fmt.Errorf("%w: %s", ErrIrreversible, mig)
	}
	applied, err := m.isApplied(ctx, version)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("%w: %s", ErrNotApplied, mig)
	}

	if err := m.run(ctx, mig.Down); err != nil {
		m.logger.Error("migration revert failed", zap.Int64("version", mig.Version), zap.String("name", mig.Name), zap.Error(err))
		return fmt.Errorf("revert %s: %w", mig, err)
	}
	if err := m.ledger.Remove(ctx, mig.Version); err != nil {
		return fmt.Errorf("remove %s from ledger: %w", mig, err)
	}
	m.logger.Info("migration reverted", zap.Int64("version", mig.Version), zap.String("name", mig.Name))
	return nil
}

// Migrate applies every pending migration in ascending order and returns the
// applied versions. It stops at the first failure.
func (m *Migrator) Migrate(ctx context.Context) ([]int64, error) {
	todo, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}
	var done []int64
	for _, mig := range todo {
		if err := m.apply(ctx, mig); err != nil {
			return done, err
		}
		done = append(done, mig.Version)
	}
	return done, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	if err := m.run(ctx, mig.Up); err != nil {
		m.logger.Error("migration failed", zap.Int64("version", mig.Version), zap.String("name", mig.Name), zap.Error(err))
		return fmt.Errorf("apply %s: %w", mig, err)
	}
	if err := m.ledger.Record(ctx, mig.Version); err != nil {
		return fmt.Errorf("record %s in ledger: %w", mig, err)
	}
	m.logger.Info("migration applied", zap.Int64("version", mig.Version), zap.String("name", mig.Name))
	return nil
}

func (m *Migrator) run(ctx context.Context, body Func) error {
	return m.conn.With(ctx, func(s record.Session) error {
		return body(ctx, s)
	})
}

func (m *Migrator) lookup(version int64) (Migration, error) {
	i, ok := m.index[version]
	if !ok {
		return Migration{}, fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}
	return m.migrations[i], nil
}

func (m *Migrator) isApplied(ctx context.Context, version int64) (bool, error) {
	applied, err := m.ledger.Applied(ctx)
	if err != nil {
		return false, err
	}
	for _, v := range applied {
		if v == version {
			return true, nil
		}
	}
	return false, nil
}
