package gocqldriver

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/inf.v0"

	"github.com/jacentio/canopy/record"
)

// Config holds configuration for a Session.
type Config struct {
	// BatchType is used by ExecuteBatch. Default: gocql.LoggedBatch.
	BatchType gocql.BatchType

	// Logger receives statement debug logs. Default: no-op.
	Logger *zap.Logger
}

func (c *Config) validate() {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Session implements record.Session on a *gocql.Session. It is safe for
// concurrent use, so record.Direct is usually the right Connector for it.
type Session struct {
	session   *gocql.Session
	batchType gocql.BatchType
	logger    *zap.Logger
}

// New wraps s.
func New(s *gocql.Session, config Config) *Session {
	config.validate()
	return &Session{
		session:   s,
		batchType: config.BatchType,
		logger:    config.Logger,
	}
}

// Close closes the underlying gocql session. A record.Pool calls it when the
// pool is closed.
func (s *Session) Close() {
	s.session.Close()
}

// Execute runs stmt and returns its first page.
func (s *Session) Execute(ctx context.Context, stmt string, opts record.ExecOptions) (record.Page, error) {
	consistency, err := parseConsistency(opts.Consistency)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("execute", zap.String("cql", stmt), zap.Int("page_size", opts.PageSize))

	p := &page{session: s.session, stmt: stmt, pageSize: opts.PageSize, consistency: consistency}
	if err := p.fetch(ctx, nil); err != nil {
		return nil, err
	}
	return p, nil
}

// ExecuteBatch runs stmts in one batch of the configured type.
func (s *Session) ExecuteBatch(ctx context.Context, stmts []string, opts record.ExecOptions) error {
	consistency, err := parseConsistency(opts.Consistency)
	if err != nil {
		return err
	}
	s.logger.Debug("execute batch", zap.Int("statements", len(stmts)))

	b := s.session.NewBatch(s.batchType).WithContext(ctx)
	if consistency != nil {
		b.SetConsistency(*consistency)
	}
	for _, stmt := range stmts {
		b.Query(stmt)
	}
	return s.session.ExecuteBatch(b)
}

// page is one fetched page. NextPage re-issues the statement with the paging
// state the driver returned.
type page struct {
	session     *gocql.Session
	stmt        string
	pageSize    int
	consistency *gocql.Consistency

	rows  []record.Row
	state []byte
}

func (p *page) Rows() []record.Row { return p.rows }

func (p *page) NextPage(ctx context.Context) (record.Page, error) {
	if len(p.state) == 0 {
		return nil, nil
	}
	next := &page{session: p.session, stmt: p.stmt, pageSize: p.pageSize, consistency: p.consistency}
	if err := next.fetch(ctx, p.state); err != nil {
		return nil, err
	}
	return next, nil
}

func (p *page) fetch(ctx context.Context, state []byte) error {
	q := p.session.Query(p.stmt).WithContext(ctx).PageState(state)
	if p.pageSize > 0 {
		q = q.PageSize(p.pageSize)
	}
	if p.consistency != nil {
		q = q.Consistency(*p.consistency)
	}

	iter := q.Iter()
	p.state = iter.PageState()
	maps, err := iter.SliceMap()
	if err != nil {
		_ = iter.Close()
		return err
	}
	if err := iter.Close(); err != nil {
		return err
	}

	p.rows = make([]record.Row, len(maps))
	for i, m := range maps {
		row := make(record.Row, len(m))
		for k, v := range m {
			row[k] = normalize(v)
		}
		p.rows[i] = row
	}
	return nil
}

// normalize converts driver values to the canonical values the record package
// uses for the same column types.
func normalize(v any) any {
	switch x := v.(type) {
	case gocql.UUID:
		return uuid.UUID(x)
	case *inf.Dec:
		if x == nil {
			return nil
		}
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return v
		}
		return d
	case int:
		return int32(x)
	}
	return v
}

func parseConsistency(s string) (*gocql.Consistency, error) {
	if s == "" {
		return nil, nil
	}
	c, err := gocql.ParseConsistencyWrapper(s)
	if err != nil {
		return nil, fmt.Errorf("canopy: consistency %q: %w", s, err)
	}
	return &c, nil
}
