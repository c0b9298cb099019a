// Package catalog is the schema manager of ViewDB.
//
// A Catalog holds schemas, tables, sequences and compiled views, backed by
// the Git persistence in package ps. DDL runs through a Session, which
// carries the current schema and the commit identity:
//
//	c, err := catalog.Open(persistence, identity)
//	session := c.NewSession(identity)
//	session.CreateTable("", "orders", columns)
//	v, txn, err := session.CreateView("", "big_orders", "SELECT * FROM orders WHERE total > 100", nil, false)
//
// Destructive DDL asks every view whether it references the object being
// dropped or altered and fails with core.ErrDependentObjects if one does.
// Adding a column or replacing a view recompiles the views that read it in
// dependency order; if any of them fails the change is undone.
//
// Catalog methods do not lock. Take Lock around DDL and RLock around reads.
package catalog
