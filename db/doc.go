// Package db provides the statement engine for ViewDB.
//
// The Engine type is the main entry point for executing catalog statements.
// It parses SQL, applies DDL through a catalog session and returns results.
// Queries are never executed: a SELECT is only accepted as the body of a
// view, where it is compiled and frozen for an external executor.
//
// # Engine Usage
//
//	c, err := catalog.Open(persistence, identity)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine := db.NewEngine(c.NewSession(identity))
//	result, err := engine.Execute("CREATE VIEW adults AS SELECT * FROM users WHERE age >= 18")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display()
//
// # Result Types
//
// There are two result types:
//   - QueryResult: Returned by DESCRIBE, SHOW and EXPLAIN VIEW
//   - CommitResult: Returned by CREATE, ALTER, DROP and SET
//
// QueryResult contains columns, data rows, and execution metrics.
// CommitResult contains counts of affected objects and the transaction ID.
//
// # Export and Import
//
// Dump renders the catalog as a DDL script with every view in its expanded
// form. Export writes it to a local path, file:// or s3:// URL; Import reads
// a script from any of those or from http(s):// and executes it.
package db
