// Package record maps rows of a wide-column CQL store to records with typed,
// dirty-tracked attributes and a validated save lifecycle.
//
// # Models
//
// A [Model] binds a static [Schema] to a [Connector]:
//
//	var posts = record.NewModel(record.MustSchema("posts",
//	    record.Column{Name: "user", Type: record.TypeText, PartitionKey: true},
//	    record.Column{Name: "domain", Type: record.TypeText, PartitionKey: true},
//	    record.Column{Name: "id", Type: record.TypeTimeUUID, ClusteringKey: true},
//	    record.Column{Name: "message", Type: record.TypeText},
//	), pool, record.DefaultConfig())
//
// Partition-key columns, in declaration order, form the partition key and
// clustering-key columns the clustering key. Together they address one row.
//
// # Lifecycle
//
// Hooks registered with [Model.On] run around validation, save, create, update and
// destroy. Saving a new record runs:
//
//	before_validation, after_validation, before_save, before_create,
//	INSERT, after_create, after_save
//
// and saving a persisted record replaces the create phases with before_update,
// UPDATE of the changed columns, after_update. Validation failures stop the
// pipeline before any statement is sent.
//
// # Queries
//
// [Relation] values accumulate predicates, ordering, projection and a limit and
// compile to a single SELECT. Results are always fetched page by page:
//
//	err := posts.Where(map[string]any{"user": "u1", "domain": "d1"}).
//	    Order("id", record.Desc).
//	    FindEach(ctx, 100, func(r *record.Record) error { ... })
//
// Every value that reaches statement text goes through [Quote]; identifiers go
// through [QuoteIdentifier] and are rejected if they contain a double quote.
//
// # Errors
//
//   - [ErrCast] / [ErrNumericCast] - a value does not cast to the column type
//   - [ErrRecordInvalid] - validation failed (strict calls)
//   - [ErrImmutableKey] - a key column of a persisted record was reassigned
//   - [ErrInvalidIdentifier] - a table or column name contains a double quote
//   - [ErrPoolExhausted] - no session freed up within the pool timeout
//
// Errors from the store are returned unchanged.
package record
