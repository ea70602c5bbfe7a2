package migrate

import (
	"context"
	"fmt"
	"sort"

	"github.com/jacentio/canopy/record"
)

// Ledger is the persisted log of applied migration versions.
type Ledger interface {
	// CreateTable creates the ledger's storage.
	CreateTable(ctx context.Context, ifNotExists bool) error

	// Applied returns the recorded versions, ascending.
	Applied(ctx context.Context) ([]int64, error)

	// Record adds a version.
	Record(ctx context.Context, version int64) error

	// Remove deletes a version.
	Remove(ctx context.Context, version int64) error
}

// Pending returns the versions of all that l has not recorded, ascending.
func Pending(ctx context.Context, l Ledger, all []int64) ([]int64, error) {
	applied, err := l.Applied(ctx)
	if err != nil {
		return nil, err
	}
	return pending(all, applied), nil
}

// DefaultTable is the ledger table name.
const DefaultTable = "schema_migrations"

// CQLLedger stores applied versions in a table of the migrated keyspace, one row
// per version.
type CQLLedger struct {
	model *record.Model
}

// NewCQLLedger returns a ledger stored in table (DefaultTable when empty).
func NewCQLLedger(conn record.Connector, table string, config record.Config) (*CQLLedger, error) {
	if table == "" {
		table = DefaultTable
	}
	schema, err := record.NewSchema(table,
		record.Column{Name: "version", Type: record.TypeText, PartitionKey: true},
	)
	if err != nil {
		return nil, err
	}
	return &CQLLedger{model: record.NewModel(schema, conn, config)}, nil
}

// CreateTable creates the ledger table.
func (l *CQLLedger) CreateTable(ctx context.Context, ifNotExists bool) error {
	table, err := record.QuoteIdentifier(l.model.TableName())
	if err != nil {
		return err
	}
	stmt := "CREATE TABLE "
	if ifNotExists {
		stmt += "IF NOT EXISTS "
	}
	stmt += table + " (version TEXT PRIMARY KEY)"
	_, err = l.model.Execute(ctx, stmt, record.ExecOptions{})
	return err
}

func (l *CQLLedger) Applied(ctx context.Context) ([]int64, error) {
	var versions []int64
	err := l.model.FindEach(ctx, 0, func(r *record.Record) error {
		v, err := ParseVersion(r.Text("version"))
		if err != nil {
			return err
		}
		versions = append(versions, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read applied versions: %w", err)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

func (l *CQLLedger) Record(ctx context.Context, version int64) error {
	_, err := l.model.CreateStrict(ctx, record.Attributes{"version": FormatVersion(version)})
	return err
}

func (l *CQLLedger) Remove(ctx context.Context, version int64) error {
	_, err := l.model.Where(map[string]any{"version": FormatVersion(version)}).DeleteAll(ctx)
	return err
}
