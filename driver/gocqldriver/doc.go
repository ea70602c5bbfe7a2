// Package gocqldriver adapts a gocql session to the record.Session contract.
//
// Statements arrive as complete CQL text with literals already quoted, so the
// adapter binds no values. Paging is manual: each Execute fetches one page and
// the returned Page carries the driver's paging state to fetch the next.
//
// # Usage
//
//	cluster := gocql.NewCluster("127.0.0.1")
//	cluster.Keyspace = "app"
//	gs, err := cluster.CreateSession()
//	if err != nil {
//	    return err
//	}
//	session := gocqldriver.New(gs, gocqldriver.Config{})
//	posts := record.NewModel(schema, record.Direct(session), record.DefaultConfig())
package gocqldriver
