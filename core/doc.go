// Package core provides the catalog types shared by every ViewDB package.
//
// # Names
//
// Every table, view and sequence owns a *QualifiedName. Names are compared by
// pointer: the catalog hands out the same pointer for the lifetime of the
// entry, including across ALTER TABLE, so a compiled view keeps pointing at
// the entry it resolved.
//
//	name := core.NewQualifiedName("PUBLIC", "users")
//	table := &core.Table{
//	    Name: name,
//	    Columns: []core.Column{
//	        {Name: "id", Type: core.IntType, PrimaryKey: true},
//	        {Name: "name", Type: core.StringType},
//	    },
//	}
//
// # Relations
//
// Tables and views both satisfy Relation. Views additionally satisfy
// ViewSource so a query referencing a view can bind the view's stored text.
//
// # Errors
//
// Failures carry an ErrorCode and are matched with errors.Is against the
// sentinels ErrParse, ErrSchemaReference, ErrColumnCountMismatch,
// ErrCyclicReference and friends:
//
//	if errors.Is(err, core.ErrCyclicReference) {
//	    ...
//	}
package core
