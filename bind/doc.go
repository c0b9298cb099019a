// Package bind resolves parsed queries against the catalog.
//
// Bind turns query text into a tree of Select, SubQuery and Expression nodes
// in which every table, view, column and sequence reference points at its
// catalog object. Referenced views are expanded by binding their stored text,
// so the tree of a view reaches every relation it depends on.
//
//	top, err := bind.Bind(resolver, "SELECT * FROM t1, t2", bind.Options{
//	    Schema:          "PUBLIC",
//	    RecordWildcards: true,
//	})
//
// With RecordWildcards set, every '*' in the text is recorded on the select
// that owns it together with the column list it expanded to. The records are
// moved out with DrainWildcards.
//
// Walk visits the expressions of a bound tree:
//
//	for expression := range bind.Walk(top.Select, bind.IsKind(bind.KindSequence)) {
//	    fmt.Println(expression.Sequence.Name)
//	}
package bind
