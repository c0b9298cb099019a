// Package ViewDB provides a Git-backed catalog that compiles SQL views.
//
// A CREATE VIEW statement is parsed, bound against the catalog and stored in
// an expanded form: every wildcard is replaced by the explicit column list it
// denoted at definition time. The catalog records which tables, columns,
// sequences and views each view reads, and refuses DDL that would break one.
// Every change is a Git commit, so the catalog history can be inspected,
// snapshotted, pushed and pulled.
//
// # Quick Start
//
//	persistence, _ := ps.NewMemoryPersistence()
//	identity := core.Identity{Name: "App", Email: "app@example.com"}
//	instance, _ := ViewDB.Open(persistence, identity)
//	engine := instance.Engine(identity)
//
//	engine.Execute("CREATE TABLE users (id INT PRIMARY KEY, name STRING, age INT)")
//	engine.Execute("CREATE VIEW adults AS SELECT * FROM users WHERE age >= 18")
//
//	result, _ := engine.Execute("SHOW VIEWS")
//	result.Display()
//
// # Supported SQL
//
// ViewDB accepts catalog DDL only:
//   - CREATE/DROP SCHEMA, SET SCHEMA
//   - CREATE/DROP TABLE, ALTER TABLE ADD/DROP/RENAME COLUMN, SET TABLE READONLY
//   - CREATE/DROP SEQUENCE
//   - CREATE [OR REPLACE]/ALTER/DROP VIEW
//   - DESCRIBE, SHOW SCHEMAS/TABLES/VIEWS/SEQUENCES, EXPLAIN VIEW
//
// View bodies may use joins, derived tables, IN and EXISTS subqueries,
// UNION/EXCEPT/INTERSECT, GROUP BY, ORDER BY and NEXT VALUE FOR. A SELECT on
// its own is rejected: compiled views are handed to an external executor.
package ViewDB
