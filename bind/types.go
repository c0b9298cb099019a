package bind

import (
	"iter"
	"strings"

	"github.com/nickyhof/ViewDB/core"
	"github.com/nickyhof/ViewDB/sql"
)

type ExpressionKind int

const (
	KindColumn ExpressionKind = iota
	KindSequence
	KindValue
	KindFunction
	KindOperator
	KindSubquery
)

func (kind ExpressionKind) String() string {
	switch kind {
	case KindColumn:
		return "COLUMN"
	case KindSequence:
		return "SEQUENCE"
	case KindValue:
		return "VALUE"
	case KindFunction:
		return "FUNCTION"
	case KindOperator:
		return "OPERATOR"
	case KindSubquery:
		return "SUBQUERY"
	default:
		return "UNKNOWN"
	}
}

// Expression is a bound scalar expression.
//
// Column references carry the resolved filter and, when the filter reads a
// catalog relation, the relation's name pointer in Table. Sequence references
// carry the catalog sequence. Subquery expressions carry the bound subquery.
type Expression struct {
	Kind       ExpressionKind
	Op         string
	Args       []*Expression
	Value      string
	Type       core.ColumnType
	Distinct   bool
	ColumnName string
	Table      *core.QualifiedName
	Filter     *TableFilter
	Sequence   *core.Sequence
	SubQuery   *SubQuery
}

// IsKind returns a predicate for Walk matching expressions of the given kind.
func IsKind(kind ExpressionKind) func(*Expression) bool {
	return func(expression *Expression) bool {
		return expression.Kind == kind
	}
}

// TableFilter is one FROM entry of a bound select.
type TableFilter struct {
	// Relation is the catalog table or view read by the filter; nil for a
	// derived table.
	Relation core.Relation
	Alias    string
	// Written holds the name parts as they appeared in the query text.
	Written []string
	Columns []core.Column
	// SubQuery is the bound body of a derived table or referenced view.
	SubQuery *SubQuery
}

// ExposedName is the qualifier under which the filter's columns are visible.
func (filter *TableFilter) ExposedName() string {
	if filter.Alias != "" {
		return filter.Alias
	}
	return strings.Join(filter.Written, ".")
}

// qualify renders a column of the filter as SQL text.
func (filter *TableFilter) qualify(column string) string {
	var parts []string
	if filter.Alias != "" {
		parts = append(parts, sql.QuoteIdentifier(filter.Alias))
	} else {
		for _, part := range filter.Written {
			parts = append(parts, sql.QuoteIdentifier(part))
		}
	}
	parts = append(parts, sql.QuoteIdentifier(column))
	return strings.Join(parts, ".")
}

// Wildcard is a recorded '*' in the bound text: the offset where the wildcard
// item starts and the column list it resolved to. Expansion is empty for an
// asterisk that is not a select-list wildcard, such as COUNT(*).
type Wildcard struct {
	Offset    int
	Expansion string
}

type Wildcards []Wildcard

// Select is one bound query block. Set-operation branches are chained
// through Union.
type Select struct {
	Distinct       bool
	Columns        []*Expression
	Filters        []*TableFilter
	JoinConditions []*Expression
	Where          *Expression
	GroupBy        []*Expression
	Having         *Expression
	OrderBy        []*Expression
	Limit          int
	Offset         int
	SetOp          sql.SetOperator
	All            bool
	Union          *Select
	ResultColumns  []core.Column

	wildcards Wildcards
}

// DrainWildcards moves the recorded wildcards out of the select. A second
// call returns nothing.
func (s *Select) DrainWildcards() Wildcards {
	wildcards := s.wildcards
	s.wildcards = nil
	return wildcards
}

// PendingWildcards reports how many recorded wildcards have not been drained.
func (s *Select) PendingWildcards() int {
	return len(s.wildcards)
}

// Branches yields the select and every set-operation branch chained to it.
func (s *Select) Branches() iter.Seq[*Select] {
	return func(yield func(*Select) bool) {
		for branch := s; branch != nil; branch = branch.Union {
			if !yield(branch) {
				return
			}
		}
	}
}

// Expressions returns the top-level expressions of this block, excluding
// union branches.
func (s *Select) Expressions() []*Expression {
	var expressions []*Expression
	expressions = append(expressions, s.Columns...)
	expressions = append(expressions, s.JoinConditions...)
	if s.Where != nil {
		expressions = append(expressions, s.Where)
	}
	expressions = append(expressions, s.GroupBy...)
	if s.Having != nil {
		expressions = append(expressions, s.Having)
	}
	expressions = append(expressions, s.OrderBy...)
	return expressions
}

// Children returns the subqueries directly nested in this block: derived
// tables and referenced view bodies first, then subqueries inside
// expressions. Union branches are not included.
func (s *Select) Children() []*SubQuery {
	var children []*SubQuery
	for _, filter := range s.Filters {
		if filter.SubQuery != nil {
			children = append(children, filter.SubQuery)
		}
	}
	seen := make(map[*SubQuery]bool)
	for _, expression := range s.Expressions() {
		children = collectSubQueries(expression, children, seen)
	}
	return children
}

func collectSubQueries(expression *Expression, children []*SubQuery, seen map[*SubQuery]bool) []*SubQuery {
	if expression == nil {
		return children
	}
	if expression.SubQuery != nil && !seen[expression.SubQuery] {
		seen[expression.SubQuery] = true
		children = append(children, expression.SubQuery)
	}
	for _, arg := range expression.Args {
		children = collectSubQueries(arg, children, seen)
	}
	return children
}

// SubQuery wraps one bound select. View is set when the subquery is the body
// of a named view, and Order is its position in materialization order.
type SubQuery struct {
	Select *Select
	View   core.Relation
	Level  int
	Order  int
}
