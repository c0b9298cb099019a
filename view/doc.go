// Package view compiles view definitions and answers dependency questions.
//
// Compiling a view binds its statement against the catalog, orders the
// nested subqueries so that every subquery follows the ones it contains,
// replaces each wildcard with the column list it resolved to and checks that
// the view reads only from its own schema or a system schema:
//
//	v, err := view.New(session, name, "SELECT * FROM t1, t2;", nil)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(v.Statement()) // SELECT  t1.a, t1.b, t2.c, t2.d  FROM t1, t2
//
// DDL consults ReferencesTable, ReferencesColumn, ReferencesSequence and
// ReferencesView before dropping or altering catalog objects. The package
// does no locking; callers serialize compiles with the catalog lock.
package view
