package record

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Attributes maps column names to values.
type Attributes map[string]any

// Change is one entry of a record's change log.
type Change struct {
	Old any
	New any
}

// Record is one row of a model's table. A Record is not safe for concurrent use.
type Record struct {
	model *Model
	attrs map[string]any

	// originals holds the value of each changed column at the start of the
	// current clean epoch.
	originals map[string]any

	persisted bool
	destroyed bool
	errors    ValidationErrors
}

// Model returns the model the record belongs to.
func (r *Record) Model() *Model {
	return r.model
}

// Persisted reports whether the record has been written or loaded from the store.
func (r *Record) Persisted() bool {
	return r.persisted
}

// NewRecord reports whether the record has not been written yet.
func (r *Record) NewRecord() bool {
	return !r.persisted
}

// Destroyed reports whether the record was removed through Destroy.
func (r *Record) Destroyed() bool {
	return r.destroyed
}

// Errors returns the failures of the last validation run.
func (r *Record) Errors() ValidationErrors {
	return r.errors
}

// Set casts v through the column's type and assigns it.
func (r *Record) Set(name string, v any) error {
	col, ok := r.model.schema.Column(name)
	if !ok {
		return fmt.Errorf("%w: %q on %q", ErrUnknownColumn, name, r.model.schema.Table())
	}
	cast, err := castColumn(col, v)
	if err != nil {
		return err
	}

	old := r.attrs[name]
	if valuesEqual(old, cast) {
		return nil
	}
	if col.Key() && r.persisted {
		return fmt.Errorf("%w: %q", ErrImmutableKey, name)
	}

	original, tracked := r.originals[name]
	if !tracked {
		original = old
		r.originals[name] = old
	}
	r.attrs[name] = cast
	if valuesEqual(original, cast) {
		delete(r.originals, name)
	}
	return nil
}

// Assign sets every attribute in attrs, in column-name order. It stops at the
// first failure; attributes assigned before it keep their new values.
func (r *Record) Assign(attrs Attributes) error {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := r.Set(name, attrs[name]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the current value of a column, or nil for unknown columns.
func (r *Record) Get(name string) any {
	return r.attrs[name]
}

// Text returns a text column's value, or "" when unset.
func (r *Record) Text(name string) string {
	s, _ := r.attrs[name].(string)
	return s
}

// Bool returns a boolean column's value.
func (r *Record) Bool(name string) bool {
	b, _ := r.attrs[name].(bool)
	return b
}

// Int returns an int column's value.
func (r *Record) Int(name string) int32 {
	n, _ := r.attrs[name].(int32)
	return n
}

// Bigint returns a bigint column's value.
func (r *Record) Bigint(name string) int64 {
	n, _ := r.attrs[name].(int64)
	return n
}

// Decimal returns a decimal column's value.
func (r *Record) Decimal(name string) decimal.Decimal {
	d, _ := r.attrs[name].(decimal.Decimal)
	return d
}

// Time returns a timestamp column's value.
func (r *Record) Time(name string) time.Time {
	t, _ := r.attrs[name].(time.Time)
	return t
}

// Date returns a date column's value.
func (r *Record) Date(name string) Date {
	d, _ := r.attrs[name].(Date)
	return d
}

// UUID returns a uuid or timeuuid column's value.
func (r *Record) UUID(name string) uuid.UUID {
	u, _ := r.attrs[name].(uuid.UUID)
	return u
}

// Attributes returns a copy of every column's current value, unset columns included.
func (r *Record) Attributes() Attributes {
	out := make(Attributes, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

// Changes returns the columns changed since the record was last clean.
func (r *Record) Changes() map[string]Change {
	out := make(map[string]Change, len(r.originals))
	for name, old := range r.originals {
		out[name] = Change{Old: old, New: r.attrs[name]}
	}
	return out
}

// Changed reports whether a column changed since the record was last clean.
func (r *Record) Changed(name string) bool {
	_, ok := r.originals[name]
	return ok
}

// KeyValues returns the primary key tuple: partition key then clustering key.
func (r *Record) KeyValues() []any {
	keys := r.model.schema.KeyColumns()
	out := make([]any, len(keys))
	for i, col := range keys {
		out[i] = r.attrs[col.Name]
	}
	return out
}

// Equal reports whether both records address the same row: same table and an
// equal, fully populated key tuple. Non-key attributes are not compared.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return false
	}
	if r.model.schema.Table() != other.model.schema.Table() {
		return false
	}
	a, b := r.KeyValues(), other.KeyValues()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == nil || b[i] == nil || !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Valid runs the validations for the current context and reports whether none failed.
// Hooks are not run.
func (r *Record) Valid() bool {
	on := OnUpdate
	if !r.persisted {
		on = OnCreate
	}
	r.errors = nil
	for _, v := range r.model.validations {
		if v.on.applies(on) {
			v.fn(r, &r.errors)
		}
	}
	return r.errors.Empty()
}

// Validate is like Valid but returns a *RecordInvalidError on failure.
func (r *Record) Validate() error {
	if !r.Valid() {
		return &RecordInvalidError{Errors: r.errors}
	}
	return nil
}

// Save runs the save pipeline. It returns false with a nil error when validation
// fails; store and hook errors are returned as is.
func (r *Record) Save(ctx context.Context) (bool, error) {
	err := r.save(ctx)
	var invalid *RecordInvalidError
	if errors.As(err, &invalid) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveStrict runs the save pipeline and returns a *RecordInvalidError when
// validation fails.
func (r *Record) SaveStrict(ctx context.Context) error {
	return r.save(ctx)
}

// Update assigns attrs and saves.
func (r *Record) Update(ctx context.Context, attrs Attributes) (bool, error) {
	if err := r.Assign(attrs); err != nil {
		return false, err
	}
	return r.Save(ctx)
}

// UpdateStrict assigns attrs and saves, returning a *RecordInvalidError when
// validation fails.
func (r *Record) UpdateStrict(ctx context.Context, attrs Attributes) error {
	if err := r.Assign(attrs); err != nil {
		return err
	}
	return r.SaveStrict(ctx)
}

func (r *Record) save(ctx context.Context) error {
	if r.destroyed {
		return ErrRecordDestroyed
	}
	hooks := &r.model.hooks

	if err := hooks.run(ctx, BeforeValidation, r); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if err := hooks.run(ctx, AfterValidation, r); err != nil {
		return err
	}
	if err := hooks.run(ctx, BeforeSave, r); err != nil {
		return err
	}

	if !r.persisted {
		if err := r.create(ctx); err != nil {
			return err
		}
	} else {
		if err := r.update(ctx); err != nil {
			return err
		}
	}

	if err := hooks.run(ctx, AfterSave, r); err != nil {
		return err
	}
	r.originals = make(map[string]any)
	return nil
}

func (r *Record) create(ctx context.Context) error {
	if err := r.model.hooks.run(ctx, BeforeCreate, r); err != nil {
		return err
	}
	stmt, err := r.insertStatement()
	if err != nil {
		return err
	}
	if err := r.model.exec(ctx, stmt); err != nil {
		return err
	}
	r.persisted = true
	return r.model.hooks.run(ctx, AfterCreate, r)
}

func (r *Record) update(ctx context.Context) error {
	if err := r.model.hooks.run(ctx, BeforeUpdate, r); err != nil {
		return err
	}
	stmt, err := r.updateStatement()
	if err != nil {
		return err
	}
	if stmt != "" {
		if err := r.model.exec(ctx, stmt); err != nil {
			return err
		}
	}
	return r.model.hooks.run(ctx, AfterUpdate, r)
}

// Delete removes the record's row by primary key. No hooks run and the record's
// flags are left as they are.
func (r *Record) Delete(ctx context.Context) error {
	stmt, err := r.deleteStatement()
	if err != nil {
		return err
	}
	return r.model.exec(ctx, stmt)
}

// Destroy runs the destroy hooks around Delete and marks the record destroyed.
func (r *Record) Destroy(ctx context.Context) error {
	if r.destroyed {
		return ErrRecordDestroyed
	}
	if !r.persisted {
		return ErrRecordNotPersisted
	}
	if err := r.model.hooks.run(ctx, BeforeDestroy, r); err != nil {
		return err
	}
	if err := r.Delete(ctx); err != nil {
		return err
	}
	r.destroyed = true
	return r.model.hooks.run(ctx, AfterDestroy, r)
}

// insertStatement covers every declared column; unset columns are written as NULL.
func (r *Record) insertStatement() (string, error) {
	if _, err := r.keyPredicate(); err != nil {
		return "", err
	}
	s := r.model.schema
	table, err := QuoteIdentifier(s.Table())
	if err != nil {
		return "", err
	}
	columns, err := quoteIdentifiers(s.ColumnNames())
	if err != nil {
		return "", err
	}
	values := make([]string, len(s.columns))
	for i, col := range s.columns {
		values[i] = Quote(r.attrs[col.Name])
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, strings.Join(values, ", ")), nil
}

// updateStatement sets the changed non-key columns. It returns "" when nothing changed.
func (r *Record) updateStatement() (string, error) {
	s := r.model.schema
	var sets []string
	for _, col := range s.columns {
		if col.Key() || !r.Changed(col.Name) {
			continue
		}
		name, err := QuoteIdentifier(col.Name)
		if err != nil {
			return "", err
		}
		sets = append(sets, name+" = "+Quote(r.attrs[col.Name]))
	}
	if len(sets) == 0 {
		return "", nil
	}
	where, err := r.keyPredicate()
	if err != nil {
		return "", err
	}
	table, err := QuoteIdentifier(s.Table())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where), nil
}

func (r *Record) deleteStatement() (string, error) {
	return deleteByKey(r.model.schema, r.attrs)
}

func (r *Record) keyPredicate() (string, error) {
	return keyPredicate(r.model.schema, r.attrs)
}

// keyPredicate renders `"k1" = v1 AND "k2" = v2` over the full primary key.
func keyPredicate(s *Schema, values map[string]any) (string, error) {
	keys := s.KeyColumns()
	parts := make([]string, len(keys))
	for i, col := range keys {
		v := values[col.Name]
		if v == nil {
			return "", fmt.Errorf("%w: %q on %q", ErrMissingKey, col.Name, s.Table())
		}
		name, err := QuoteIdentifier(col.Name)
		if err != nil {
			return "", err
		}
		parts[i] = name + " = " + Quote(v)
	}
	return strings.Join(parts, " AND "), nil
}

func deleteByKey(s *Schema, values map[string]any) (string, error) {
	where, err := keyPredicate(s, values)
	if err != nil {
		return "", err
	}
	table, err := QuoteIdentifier(s.Table())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", table, where), nil
}
