package record

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Batch is one page of results. Records is set for relations without a
// projection, Rows for relations with one.
type Batch struct {
	Records []*Record
	Rows    []Row
}

// Len returns the number of results in the batch.
func (b Batch) Len() int {
	if b.Records != nil {
		return len(b.Records)
	}
	return len(b.Rows)
}

func (rel Relation) batchSize(n int) int {
	if n <= 0 {
		return rel.model.config.PageSize
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return n
}

// FindInBatches executes the relation and calls fn once per non-empty page of at
// most batchSize results, walking pages in store order. batchSize <= 0 uses the
// model's PageSize. Pages are fetched one at a time as fn returns.
func (rel Relation) FindInBatches(ctx context.Context, batchSize int, fn func(Batch) error) error {
	stmt, err := rel.CQL()
	if err != nil {
		return err
	}
	projected := len(rel.selects) > 0

	return rel.model.eachPage(ctx, stmt, rel.batchSize(batchSize), func(rows []Row) error {
		if len(rows) == 0 {
			return nil
		}
		if projected {
			return fn(Batch{Rows: rows})
		}
		records := make([]*Record, len(rows))
		for i, row := range rows {
			r, err := rel.model.load(row)
			if err != nil {
				return err
			}
			records[i] = r
		}
		return fn(Batch{Records: records})
	})
}

// FindEach calls fn for every record of the relation, fetching batchSize rows per
// page. It fails with ErrProjection on relations with a projection; use
// FindEachRow for those.
func (rel Relation) FindEach(ctx context.Context, batchSize int, fn func(*Record) error) error {
	if len(rel.selects) > 0 {
		return ErrProjection
	}
	return rel.FindInBatches(ctx, batchSize, func(b Batch) error {
		for _, r := range b.Records {
			if err := fn(r); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindEachRow calls fn for every raw row of the relation.
func (rel Relation) FindEachRow(ctx context.Context, batchSize int, fn func(Row) error) error {
	stmt, err := rel.CQL()
	if err != nil {
		return err
	}
	return rel.model.eachPage(ctx, stmt, rel.batchSize(batchSize), func(rows []Row) error {
		for _, row := range rows {
			if err := fn(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// Records loads every record of the relation.
func (rel Relation) Records(ctx context.Context) ([]*Record, error) {
	var out []*Record
	err := rel.FindEach(ctx, 0, func(r *Record) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

// Rows loads every raw row of the relation.
func (rel Relation) Rows(ctx context.Context) ([]Row, error) {
	var out []Row
	err := rel.FindEachRow(ctx, 0, func(row Row) error {
		out = append(out, row)
		return nil
	})
	return out, err
}

// Take loads at most n records.
func (rel Relation) Take(ctx context.Context, n int) ([]*Record, error) {
	if n <= 0 {
		return nil, nil
	}
	return rel.Limit(n).Records(ctx)
}

// First returns the first record of the relation, or ErrNotFound.
func (rel Relation) First(ctx context.Context) (*Record, error) {
	records, err := rel.Take(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// Count returns the number of rows matching the relation's predicates. Ordering,
// limit and projection do not apply.
func (rel Relation) Count(ctx context.Context) (int64, error) {
	if rel.err != nil {
		return 0, rel.err
	}
	from, err := rel.fromWhere()
	if err != nil {
		return 0, err
	}
	page, err := rel.model.Execute(ctx, "SELECT COUNT(*)"+from, ExecOptions{})
	if err != nil {
		return 0, err
	}
	if page == nil || len(page.Rows()) == 0 {
		return 0, fmt.Errorf("canopy: count returned no rows")
	}
	for _, v := range page.Rows()[0] {
		if n, ok := integerValue(v); ok {
			return n, nil
		}
	}
	return 0, fmt.Errorf("canopy: count returned no integer column")
}

// DeleteAll deletes every row matching the relation by primary key, sending one
// batch of DELETE statements per page. It returns the number of rows deleted.
func (rel Relation) DeleteAll(ctx context.Context) (int, error) {
	deleted := 0
	err := rel.eachKeyPage(ctx, func(stmts []string) error {
		if err := rel.model.ExecuteBatch(ctx, stmts, ExecOptions{}); err != nil {
			return err
		}
		deleted += len(stmts)
		return nil
	})
	return deleted, err
}

// DeleteInBatches deletes every row matching the relation with one keyed DELETE
// per row. It returns the number of rows deleted.
func (rel Relation) DeleteInBatches(ctx context.Context) (int, error) {
	deleted := 0
	err := rel.eachKeyPage(ctx, func(stmts []string) error {
		for _, stmt := range stmts {
			if err := rel.model.exec(ctx, stmt); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// eachKeyPage walks the primary keys matching the relation and calls fn with the
// keyed DELETE statements of each page.
func (rel Relation) eachKeyPage(ctx context.Context, fn func([]string) error) error {
	schema := rel.model.schema
	keys := rel.clone()
	keys.selects = nil
	for _, col := range schema.KeyColumns() {
		keys.selects = append(keys.selects, col.Name)
	}
	keys.distinct = false

	return keys.FindInBatches(ctx, 0, func(b Batch) error {
		stmts := make([]string, 0, len(b.Rows))
		for _, row := range b.Rows {
			values := make(map[string]any, len(row))
			for _, col := range schema.KeyColumns() {
				v, err := castColumn(col, row[col.Name])
				if err != nil {
					return err
				}
				values[col.Name] = v
			}
			stmt, err := deleteByKey(schema, values)
			if err != nil {
				return err
			}
			stmts = append(stmts, stmt)
		}
		return fn(stmts)
	})
}

// UpdateAll sets columns on every row matching the relation's predicates in a
// single UPDATE. The predicates must address rows the way the store requires for
// updates, usually the full primary key.
func (rel Relation) UpdateAll(ctx context.Context, values map[string]any) error {
	if rel.err != nil {
		return rel.err
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, len(names))
	for i, name := range names {
		column, err := QuoteIdentifier(name)
		if err != nil {
			return err
		}
		lit, err := rel.literal(name, values[name])
		if err != nil {
			return err
		}
		sets[i] = column + " = " + lit
	}
	return rel.updateAll(ctx, strings.Join(sets, ", "))
}

// UpdateAllCQL is like UpdateAll with a raw SET fragment; :name placeholders are
// replaced by the quoted args[name].
func (rel Relation) UpdateAllCQL(ctx context.Context, assignments string, args map[string]any) error {
	if rel.err != nil {
		return rel.err
	}
	return rel.updateAll(ctx, Statement(assignments, args))
}

func (rel Relation) updateAll(ctx context.Context, assignments string) error {
	table, err := QuoteIdentifier(rel.model.schema.Table())
	if err != nil {
		return err
	}
	return rel.model.exec(ctx, "UPDATE "+table+" SET "+assignments+rel.whereClause())
}
