package record

import (
	"fmt"
)

// Column declares one column of a model.
type Column struct {
	Name          string
	Type          ColumnType
	PartitionKey  bool
	ClusteringKey bool
}

// Key reports whether the column is part of the primary key.
func (c Column) Key() bool {
	return c.PartitionKey || c.ClusteringKey
}

// Schema is the immutable column registry of a table. Build it once with NewSchema.
type Schema struct {
	table      string
	columns    []Column
	index      map[string]int
	partition  []Column
	clustering []Column
}

// NewSchema validates the declarations and returns the schema of table.
// Partition-key columns, in declaration order, form the partition key; clustering-key
// columns, in declaration order, form the clustering key.
func NewSchema(table string, columns ...Column) (*Schema, error) {
	if _, err := QuoteIdentifier(table); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("canopy: table %q declares no columns", table)
	}

	s := &Schema{
		table:   table,
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, col := range columns {
		if _, err := QuoteIdentifier(col.Name); err != nil {
			return nil, err
		}
		if !col.Type.Valid() {
			return nil, fmt.Errorf("%w: column %q has type %v", ErrUnknownType, col.Name, col.Type)
		}
		if _, dup := s.index[col.Name]; dup {
			return nil, fmt.Errorf("canopy: column %q declared twice on %q", col.Name, table)
		}
		s.index[col.Name] = len(s.columns)
		s.columns = append(s.columns, col)

		if col.PartitionKey {
			s.partition = append(s.partition, col)
		} else if col.ClusteringKey {
			s.clustering = append(s.clustering, col)
		}
	}
	if len(s.partition) == 0 {
		return nil, fmt.Errorf("canopy: table %q declares no partition key", table)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. Intended for package-level model declarations.
func MustSchema(table string, columns ...Column) *Schema {
	s, err := NewSchema(table, columns...)
	if err != nil {
		panic(err)
	}
	return s
}

// Table returns the table name.
func (s *Schema) Table() string {
	return s.table
}

// WithTable returns a copy of the schema bound to another table.
func (s *Schema) WithTable(table string) (*Schema, error) {
	return NewSchema(table, s.columns...)
}

// Columns returns all columns in declaration order.
func (s *Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

// Column looks up a column by name.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// PartitionKeyColumns returns the partition key columns in declaration order.
func (s *Schema) PartitionKeyColumns() []Column {
	return append([]Column(nil), s.partition...)
}

// ClusteringKeyColumns returns the clustering key columns in declaration order.
func (s *Schema) ClusteringKeyColumns() []Column {
	return append([]Column(nil), s.clustering...)
}

// KeyColumns returns the primary key: partition key columns followed by clustering key columns.
func (s *Schema) KeyColumns() []Column {
	keys := make([]Column, 0, len(s.partition)+len(s.clustering))
	keys = append(keys, s.partition...)
	return append(keys, s.clustering...)
}

// ColumnNames returns the names of all columns in declaration order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, col := range s.columns {
		names[i] = col.Name
	}
	return names
}
