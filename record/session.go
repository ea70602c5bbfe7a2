package record

import (
	"context"
)

// Row is one result row: column name to driver value.
type Row map[string]any

// ExecOptions are passed through to the driver verbatim.
type ExecOptions struct {
	// PageSize is a hint for the number of rows per page (0 = driver default).
	PageSize int

	// Consistency is an opaque consistency level token (e.g., "LOCAL_QUORUM").
	// Empty means the driver default.
	Consistency string
}

// Page is one page of a result set.
type Page interface {
	// Rows returns the rows of this page in store order.
	Rows() []Row

	// NextPage fetches the following page. It returns nil, nil when the store
	// reports no further page.
	NextPage(ctx context.Context) (Page, error)
}

// Session executes CQL statements against the store.
type Session interface {
	// Execute runs a single statement and returns its first page.
	Execute(ctx context.Context, stmt string, opts ExecOptions) (Page, error)

	// ExecuteBatch runs statements as one batch. Atomicity is whatever the store
	// provides for the partitions involved.
	ExecuteBatch(ctx context.Context, stmts []string, opts ExecOptions) error
}

// Connector provides scoped access to a Session. The session is released when fn
// returns, including when fn fails.
type Connector interface {
	With(ctx context.Context, fn func(Session) error) error
}

// Direct adapts a single shared Session to a Connector. Use it with drivers whose
// sessions are already safe for concurrent use.
func Direct(s Session) Connector {
	return directConnector{session: s}
}

type directConnector struct {
	session Session
}

func (d directConnector) With(_ context.Context, fn func(Session) error) error {
	return fn(d.session)
}
