package record

import (
	"context"

	"go.uber.org/zap"
)

// Model binds a schema to a connector together with its hooks and validations.
// Declare hooks and validations once during initialization; a Model is then safe
// to share between goroutines.
type Model struct {
	schema      *Schema
	conn        Connector
	config      Config
	hooks       hookChain
	validations []validation
}

// NewModel creates a Model for schema executing through conn.
func NewModel(schema *Schema, conn Connector, config Config) *Model {
	config.validate()
	return &Model{
		schema: schema,
		conn:   conn,
		config: config,
	}
}

// Derive returns a copy of the model with its own hook and validation lists.
// Registrations on the copy do not affect m. An empty table keeps m's table.
func (m *Model) Derive(table string) (*Model, error) {
	schema := m.schema
	if table != "" && table != m.schema.Table() {
		var err error
		if schema, err = m.schema.WithTable(table); err != nil {
			return nil, err
		}
	}
	return &Model{
		schema:      schema,
		conn:        m.conn,
		config:      m.config,
		hooks:       m.hooks.clone(),
		validations: append([]validation(nil), m.validations...),
	}, nil
}

// On registers a hook for phase. Hooks of a phase run in registration order.
func (m *Model) On(phase Phase, hook Hook) *Model {
	m.hooks.add(phase, hook)
	return m
}

// Validates registers a validator applying in the given context.
func (m *Model) Validates(on ValidationContext, v Validator) *Model {
	m.validations = append(m.validations, validation{on: on, fn: v})
	return m
}

// ValidatesPresenceOf requires the columns to be non-blank in the given context.
func (m *Model) ValidatesPresenceOf(on ValidationContext, columns ...string) *Model {
	return m.Validates(on, Presence(columns...))
}

// Schema returns the model's schema.
func (m *Model) Schema() *Schema {
	return m.schema
}

// TableName returns the table name.
func (m *Model) TableName() string {
	return m.schema.Table()
}

// KeyColumns returns the primary key columns.
func (m *Model) KeyColumns() []Column {
	return m.schema.KeyColumns()
}

// Config returns the model configuration.
func (m *Model) Config() Config {
	return m.config
}

// New builds an unsaved record with attrs assigned.
func (m *Model) New(attrs Attributes) (*Record, error) {
	r := m.blank()
	if err := r.Assign(attrs); err != nil {
		return nil, err
	}
	return r, nil
}

// Create builds a record and saves it. When validation fails the unsaved record is
// returned with its Errors populated and a nil error; check Persisted.
func (m *Model) Create(ctx context.Context, attrs Attributes) (*Record, error) {
	r, err := m.New(attrs)
	if err != nil {
		return nil, err
	}
	if _, err := r.Save(ctx); err != nil {
		return r, err
	}
	return r, nil
}

// CreateStrict is like Create but returns a *RecordInvalidError when validation fails.
func (m *Model) CreateStrict(ctx context.Context, attrs Attributes) (*Record, error) {
	r, err := m.New(attrs)
	if err != nil {
		return nil, err
	}
	if err := r.SaveStrict(ctx); err != nil {
		return r, err
	}
	return r, nil
}

// blank returns a new record with every declared column unset.
func (m *Model) blank() *Record {
	attrs := make(map[string]any, len(m.schema.columns))
	for _, col := range m.schema.columns {
		attrs[col.Name] = nil
	}
	return &Record{
		model:     m,
		attrs:     attrs,
		originals: make(map[string]any),
	}
}

// load builds a persisted record from a result row. Columns the schema does not
// declare are ignored.
func (m *Model) load(row Row) (*Record, error) {
	r := m.blank()
	for name, raw := range row {
		col, ok := m.schema.Column(name)
		if !ok {
			continue
		}
		v, err := castColumn(col, raw)
		if err != nil {
			return nil, err
		}
		r.attrs[name] = v
	}
	r.persisted = true
	return r, nil
}

// Execute runs a raw statement and returns its first page. Zero option fields fall
// back to the model configuration.
func (m *Model) Execute(ctx context.Context, stmt string, opts ExecOptions) (Page, error) {
	opts = m.options(opts)
	var page Page
	err := m.conn.With(ctx, func(s Session) error {
		var err error
		page, err = m.execute(ctx, s, stmt, opts)
		return err
	})
	return page, err
}

// ExecuteBatch runs statements as one batch.
func (m *Model) ExecuteBatch(ctx context.Context, stmts []string, opts ExecOptions) error {
	if len(stmts) == 0 {
		return nil
	}
	opts = m.options(opts)
	return m.conn.With(ctx, func(s Session) error {
		m.config.Logger.Debug("executing batch",
			zap.String("table", m.schema.Table()),
			zap.Int("statements", len(stmts)),
		)
		if err := s.ExecuteBatch(ctx, stmts, opts); err != nil {
			m.config.Logger.Error("batch failed", zap.String("table", m.schema.Table()), zap.Error(err))
			return err
		}
		return nil
	})
}

// TruncateTable removes every row of the table.
func (m *Model) TruncateTable(ctx context.Context) error {
	table, err := QuoteIdentifier(m.schema.Table())
	if err != nil {
		return err
	}
	_, err = m.Execute(ctx, "TRUNCATE TABLE "+table, ExecOptions{})
	return err
}

// Statement substitutes quoted args into template. See the package-level Statement.
func (m *Model) Statement(template string, args map[string]any) string {
	return Statement(template, args)
}

func (m *Model) options(opts ExecOptions) ExecOptions {
	if opts.PageSize <= 0 {
		opts.PageSize = m.config.PageSize
	}
	if opts.Consistency == "" {
		opts.Consistency = m.config.Consistency
	}
	return opts
}

// execute logs and runs stmt on an already checked-out session.
func (m *Model) execute(ctx context.Context, s Session, stmt string, opts ExecOptions) (Page, error) {
	m.config.Logger.Debug("executing statement", zap.String("cql", stmt), zap.Int("page_size", opts.PageSize))
	page, err := s.Execute(ctx, stmt, opts)
	if err != nil {
		m.config.Logger.Error("statement failed", zap.String("cql", stmt), zap.Error(err))
		return nil, err
	}
	return page, nil
}

// exec runs a statement whose result is not needed.
func (m *Model) exec(ctx context.Context, stmt string) error {
	_, err := m.Execute(ctx, stmt, ExecOptions{})
	return err
}

// eachPage runs stmt and walks its pages in order, calling fn for each page until
// the store reports no further page. Every round trip holds a checkout; fn runs
// between checkouts so it may issue statements of its own.
func (m *Model) eachPage(ctx context.Context, stmt string, pageSize int, fn func([]Row) error) error {
	page, err := m.Execute(ctx, stmt, ExecOptions{PageSize: pageSize})
	if err != nil {
		return err
	}
	for page != nil {
		if err := fn(page.Rows()); err != nil {
			return err
		}
		current := page
		err := m.conn.With(ctx, func(Session) error {
			next, err := current.NextPage(ctx)
			page = next
			return err
		})
		if err != nil {
			m.config.Logger.Error("page fetch failed", zap.String("cql", stmt), zap.Error(err))
			return err
		}
	}
	return nil
}

// --- Relation entry points ---

// All returns a relation over every row of the table.
func (m *Model) All() Relation {
	return Relation{model: m}
}

// Where is shorthand for m.All().Where(conds).
func (m *Model) Where(conds map[string]any) Relation {
	return m.All().Where(conds)
}

// WhereCQL is shorthand for m.All().WhereCQL(fragment, args).
func (m *Model) WhereCQL(fragment string, args map[string]any) Relation {
	return m.All().WhereCQL(fragment, args)
}

// Order is shorthand for m.All().Order(column, dir).
func (m *Model) Order(column string, dir Direction) Relation {
	return m.All().Order(column, dir)
}

// Limit is shorthand for m.All().Limit(n).
func (m *Model) Limit(n int) Relation {
	return m.All().Limit(n)
}

// Distinct is shorthand for m.All().Distinct().
func (m *Model) Distinct() Relation {
	return m.All().Distinct()
}

// Select is shorthand for m.All().Select(columns...).
func (m *Model) Select(columns ...string) Relation {
	return m.All().Select(columns...)
}

// Count returns the number of rows in the table.
func (m *Model) Count(ctx context.Context) (int64, error) {
	return m.All().Count(ctx)
}

// FindEach is shorthand for m.All().FindEach.
func (m *Model) FindEach(ctx context.Context, batchSize int, fn func(*Record) error) error {
	return m.All().FindEach(ctx, batchSize, fn)
}

// FindInBatches is shorthand for m.All().FindInBatches.
func (m *Model) FindInBatches(ctx context.Context, batchSize int, fn func(Batch) error) error {
	return m.All().FindInBatches(ctx, batchSize, fn)
}

// DeleteAll deletes every row of the table by key, one batch per page.
func (m *Model) DeleteAll(ctx context.Context) (int, error) {
	return m.All().DeleteAll(ctx)
}

// DeleteInBatches deletes every row of the table with one keyed DELETE per row.
func (m *Model) DeleteInBatches(ctx context.Context) (int, error) {
	return m.All().DeleteInBatches(ctx)
}
