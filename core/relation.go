package core

type RelationKind int

const (
	TableRelation RelationKind = iota
	ViewRelation
)

func (kind RelationKind) String() string {
	if kind == ViewRelation {
		return "VIEW"
	}
	return "TABLE"
}

// Relation is anything that can appear in a FROM clause.
type Relation interface {
	RelationName() *QualifiedName
	RelationColumns() []Column
	RelationKind() RelationKind
}

// ViewSource is a Relation defined by a stored SELECT statement. The binder
// re-binds the statement whenever the view is referenced from another query.
type ViewSource interface {
	Relation
	Statement() string
	ColumnAliases() []string
	CompileSchema() string
}
