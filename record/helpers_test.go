package record_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jacentio/canopy/record"
)

// fakeStore is an in-memory record.Session. It records every statement, serves
// rows for SELECT statements page by page and answers COUNT queries with count.
type fakeStore struct {
	mu      sync.Mutex
	stmts   []string
	batches [][]string
	opts    []record.ExecOptions

	rows  []record.Row
	count int64

	// failOn makes statements containing it fail with err.
	failOn string
	err    error
}

func (f *fakeStore) Execute(_ context.Context, stmt string, opts record.ExecOptions) (record.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stmts = append(f.stmts, stmt)
	f.opts = append(f.opts, opts)
	if f.err != nil && strings.Contains(stmt, f.failOn) {
		return nil, f.err
	}

	switch {
	case strings.HasPrefix(stmt, "SELECT COUNT(*)"):
		return newFakePage([]record.Row{{"count": f.count}}, 0), nil
	case strings.HasPrefix(stmt, "SELECT"):
		return newFakePage(append([]record.Row(nil), f.rows...), opts.PageSize), nil
	}
	return newFakePage(nil, 0), nil
}

func (f *fakeStore) ExecuteBatch(_ context.Context, stmts []string, opts record.ExecOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batches = append(f.batches, append([]string(nil), stmts...))
	f.opts = append(f.opts, opts)
	if f.err != nil {
		for _, stmt := range stmts {
			if strings.Contains(stmt, f.failOn) {
				return f.err
			}
		}
	}
	return nil
}

func (f *fakeStore) statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stmts...)
}

func (f *fakeStore) last() string {
	stmts := f.statements()
	if len(stmts) == 0 {
		return ""
	}
	return stmts[len(stmts)-1]
}

// reset forgets recorded statements and batches.
func (f *fakeStore) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stmts = nil
	f.batches = nil
	f.opts = nil
}

type fakePage struct {
	rows []record.Row
	rest []record.Row
	size int
}

func newFakePage(rows []record.Row, size int) *fakePage {
	if size <= 0 || size > len(rows) {
		return &fakePage{rows: rows, size: size}
	}
	return &fakePage{rows: rows[:size], rest: rows[size:], size: size}
}

func (p *fakePage) Rows() []record.Row { return p.rows }

func (p *fakePage) NextPage(context.Context) (record.Page, error) {
	if len(p.rest) == 0 {
		return nil, nil
	}
	return newFakePage(p.rest, p.size), nil
}

// unquote parses a literal produced by record.Quote back into its text, the way
// the store reads it.
func unquote(lit string) string {
	if len(lit) >= 2 && lit[0] == '\'' && lit[len(lit)-1] == '\'' {
		return strings.ReplaceAll(lit[1:len(lit)-1], "''", "'")
	}
	return lit
}

var postSchema = record.MustSchema("posts",
	record.Column{Name: "user", Type: record.TypeText, PartitionKey: true},
	record.Column{Name: "domain", Type: record.TypeText, PartitionKey: true},
	record.Column{Name: "id", Type: record.TypeTimeUUID, ClusteringKey: true},
	record.Column{Name: "message", Type: record.TypeText},
	record.Column{Name: "timestamp", Type: record.TypeTimestamp},
)

// newPostModel returns a posts model whose before_create hook fills timestamp
// and id.
func newPostModel(store *fakeStore) *record.Model {
	m := record.NewModel(postSchema, record.Direct(store), record.DefaultConfig())
	m.On(record.BeforeCreate, func(_ context.Context, r *record.Record) error {
		if r.Get("timestamp") == nil {
			if err := r.Set("timestamp", time.Now()); err != nil {
				return err
			}
		}
		if r.Get("id") == nil {
			id, err := record.NewTimeUUID(r.Time("timestamp"))
			if err != nil {
				return err
			}
			return r.Set("id", id)
		}
		return nil
	})
	return m
}

var testLogSchema = record.MustSchema("test_logs",
	record.Column{Name: "date", Type: record.TypeDate, PartitionKey: true},
	record.Column{Name: "bucket", Type: record.TypeInt, PartitionKey: true},
	record.Column{Name: "id", Type: record.TypeTimeUUID, ClusteringKey: true},
	record.Column{Name: "query", Type: record.TypeText},
	record.Column{Name: "username", Type: record.TypeText},
	record.Column{Name: "timestamp", Type: record.TypeTimestamp},
)

const testLogBuckets = 8

// newTestLogModel returns a test_logs model that requires a timestamp and derives
// id, date and bucket from it on create.
func newTestLogModel(store *fakeStore) *record.Model {
	m := record.NewModel(testLogSchema, record.Direct(store), record.DefaultConfig())
	m.ValidatesPresenceOf(record.OnAny, "timestamp")
	m.On(record.BeforeCreate, func(_ context.Context, r *record.Record) error {
		id, err := record.NewTimeUUID(r.Time("timestamp"))
		if err != nil {
			return err
		}
		if err := r.Set("id", id); err != nil {
			return err
		}
		if err := r.Set("date", r.Time("timestamp")); err != nil {
			return err
		}
		return r.Set("bucket", record.BucketFor(id, testLogBuckets))
	})
	return m
}

// rowOf returns the attributes of r as a result row.
func rowOf(r *record.Record) record.Row {
	row := record.Row{}
	for k, v := range r.Attributes() {
		row[k] = v
	}
	return row
}
