package record

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Direction is an ORDER BY direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

type ordering struct {
	column string
	dir    Direction
}

// Relation is a lazily compiled query over a model's table. Every builder method
// returns a new Relation and leaves the receiver untouched, so relations can be
// shared and extended freely.
//
// Builder failures (an unknown identifier, a value that does not cast, a range that
// cannot be expanded) are kept on the relation and returned by the first method
// that compiles or executes it.
type Relation struct {
	model    *Model
	wheres   []string
	whereCQL []string
	orders   []ordering
	limit    int
	distinct bool
	selects  []string
	err      error
}

// Model returns the relation's model.
func (rel Relation) Model() *Model {
	return rel.model
}

// Err returns the first builder error, if any.
func (rel Relation) Err() error {
	return rel.err
}

func (rel Relation) clone() Relation {
	rel.wheres = append([]string(nil), rel.wheres...)
	rel.whereCQL = append([]string(nil), rel.whereCQL...)
	rel.orders = append([]ordering(nil), rel.orders...)
	rel.selects = append([]string(nil), rel.selects...)
	return rel
}

// Where adds equality predicates, one per entry, joined with AND. A value may be
// a scalar (col = v), a slice, array or set map (col IN (...)) or a Range (col IN
// over the expanded range). Entries of one call are added in column-name order.
// Values for declared columns are cast through the column type before quoting.
func (rel Relation) Where(conds map[string]any) Relation {
	out := rel.clone()
	if out.err != nil {
		return out
	}

	names := make([]string, 0, len(conds))
	for name := range conds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pred, err := rel.predicate(name, conds[name])
		if err != nil {
			out.err = err
			return out
		}
		out.wheres = append(out.wheres, pred)
	}
	return out
}

// WhereCQL adds a raw predicate fragment. Each :name placeholder is replaced by
// the quoted args[name]; the fragment itself is used as written.
func (rel Relation) WhereCQL(fragment string, args map[string]any) Relation {
	out := rel.clone()
	out.whereCQL = append(out.whereCQL, Statement(fragment, args))
	return out
}

// Order adds an ORDER BY column. Ordering by a column again replaces its direction
// and keeps its position.
func (rel Relation) Order(column string, dir Direction) Relation {
	out := rel.clone()
	for i, o := range out.orders {
		if o.column == column {
			out.orders[i].dir = dir
			return out
		}
	}
	out.orders = append(out.orders, ordering{column: column, dir: dir})
	return out
}

// Limit caps the number of rows. n <= 0 removes the limit.
func (rel Relation) Limit(n int) Relation {
	out := rel.clone()
	if n < 0 {
		n = 0
	}
	out.limit = n
	return out
}

// Distinct selects distinct rows.
func (rel Relation) Distinct() Relation {
	out := rel.clone()
	out.distinct = true
	return out
}

// Select adds columns to the projection. A relation with a projection yields raw
// rows instead of records.
func (rel Relation) Select(columns ...string) Relation {
	out := rel.clone()
	out.selects = append(out.selects, columns...)
	return out
}

// CQL compiles the SELECT statement:
//
//	SELECT [DISTINCT ]<projection|*> FROM <table>[ WHERE <predicates>][ ORDER BY <columns>][ LIMIT <n>]
func (rel Relation) CQL() (string, error) {
	if rel.err != nil {
		return "", rel.err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if rel.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(rel.selects) > 0 {
		projection, err := quoteIdentifiers(rel.selects)
		if err != nil {
			return "", err
		}
		b.WriteString(projection)
	} else {
		b.WriteString("*")
	}

	from, err := rel.fromWhere()
	if err != nil {
		return "", err
	}
	b.WriteString(from)

	if len(rel.orders) > 0 {
		parts := make([]string, len(rel.orders))
		for i, o := range rel.orders {
			name, err := QuoteIdentifier(o.column)
			if err != nil {
				return "", err
			}
			parts[i] = name + " " + o.dir.String()
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if rel.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(rel.limit))
	}
	return b.String(), nil
}

// fromWhere renders " FROM <table>[ WHERE <predicates>]".
func (rel Relation) fromWhere() (string, error) {
	table, err := QuoteIdentifier(rel.model.schema.Table())
	if err != nil {
		return "", err
	}
	return " FROM " + table + rel.whereClause(), nil
}

// whereClause renders " WHERE ..." or "" when the relation has no predicates.
// Structured predicates come first, then raw fragments, each in insertion order.
func (rel Relation) whereClause() string {
	if len(rel.wheres) == 0 && len(rel.whereCQL) == 0 {
		return ""
	}
	preds := make([]string, 0, len(rel.wheres)+len(rel.whereCQL))
	preds = append(preds, rel.wheres...)
	preds = append(preds, rel.whereCQL...)
	return " WHERE " + strings.Join(preds, " AND ")
}

func (rel Relation) predicate(name string, value any) (string, error) {
	column, err := QuoteIdentifier(name)
	if err != nil {
		return "", err
	}

	value = deref(value)
	values, multi, err := expand(value)
	if err != nil {
		return "", err
	}
	if !multi {
		lit, err := rel.literal(name, value)
		if err != nil {
			return "", err
		}
		return column + " = " + lit, nil
	}

	lits := make([]string, len(values))
	for i, v := range values {
		if lits[i], err = rel.literal(name, v); err != nil {
			return "", err
		}
	}
	return column + " IN (" + strings.Join(lits, ", ") + ")", nil
}

// literal casts v through the declared column type, when there is one, and quotes it.
func (rel Relation) literal(name string, v any) (string, error) {
	if col, ok := rel.model.schema.Column(name); ok {
		cast, err := castColumn(col, v)
		if err != nil {
			return "", err
		}
		v = cast
	}
	return Quote(v), nil
}

// expand reports whether v is a multi-value predicate and returns its members.
// Byte slices and 16-byte arrays are scalars (blobs and UUIDs).
func expand(v any) ([]any, bool, error) {
	if rg, ok := v.(Range); ok {
		values, err := rg.values()
		return values, true, err
	}
	if v == nil {
		return nil, false, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false, nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true, nil

	case reflect.Map:
		// A set: keys in a stable order.
		keys := rv.MapKeys()
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k.Interface()
		}
		sort.Slice(out, func(i, j int) bool {
			return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
		})
		return out, true, nil
	}
	return nil, false, nil
}
