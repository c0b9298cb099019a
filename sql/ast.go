package sql

// Expr is a parsed scalar expression.
type Expr interface {
	exprNode()
}

type LiteralKind int

const (
	StringLiteral LiteralKind = iota
	IntLiteral
	FloatLiteral
	BoolLiteral
	NullLiteral
)

type Literal struct {
	Kind  LiteralKind
	Value string
	Pos   int
}

// ColumnRef is a column reference split on '.': [column], [table, column] or
// [schema, table, column].
type ColumnRef struct {
	Parts []string
	Pos   int
}

type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

type UnaryExpr struct {
	Op      string // NOT or -
	Operand Expr
}

type IsNullExpr struct {
	Operand Expr
	Not     bool
}

type InExpr struct {
	Operand Expr
	List    []Expr
	Query   *SelectStatement
	Not     bool
}

type LikeExpr struct {
	Operand Expr
	Pattern Expr
	Not     bool
}

type BetweenExpr struct {
	Operand Expr
	Low     Expr
	High    Expr
	Not     bool
}

type ExistsExpr struct {
	Query *SelectStatement
	Pos   int
}

type SubqueryExpr struct {
	Query *SelectStatement
	Pos   int
}

// FuncCall is a function or aggregate call. Star is set for COUNT(*), with
// StarPos holding the offset of the asterisk.
type FuncCall struct {
	Name     string
	Distinct bool
	Star     bool
	StarPos  int
	Args     []Expr
	Pos      int
}

// NextValueExpr is NEXT VALUE FOR sequence.
type NextValueExpr struct {
	Schema   string
	Sequence string
	Pos      int
}

func (*Literal) exprNode()       {}
func (*ColumnRef) exprNode()     {}
func (*BinaryExpr) exprNode()    {}
func (*UnaryExpr) exprNode()     {}
func (*IsNullExpr) exprNode()    {}
func (*InExpr) exprNode()        {}
func (*LikeExpr) exprNode()      {}
func (*BetweenExpr) exprNode()   {}
func (*ExistsExpr) exprNode()    {}
func (*SubqueryExpr) exprNode()  {}
func (*FuncCall) exprNode()      {}
func (*NextValueExpr) exprNode() {}

// SelectItem is one entry of the select list. For a wildcard, Star is set,
// Qualifier holds "t" or "s.t" for a qualified wildcard and Pos is the offset
// of the first character of the item.
type SelectItem struct {
	Star      bool
	Qualifier string
	Expr      Expr
	Alias     string
	Pos       int
}

type JoinType int

const (
	NoJoin JoinType = iota
	CommaJoin
	CrossJoin
	InnerJoin
	LeftJoin
	RightJoin
	FullJoin
)

func (joinType JoinType) String() string {
	switch joinType {
	case CommaJoin:
		return ","
	case CrossJoin:
		return "CROSS JOIN"
	case InnerJoin:
		return "INNER JOIN"
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case FullJoin:
		return "FULL JOIN"
	default:
		return ""
	}
}

// TableRef is one FROM entry. Either Table or Subquery is set; Join says how
// the entry is combined with the entries before it.
type TableRef struct {
	Schema   string
	Table    string
	Subquery *SelectStatement
	Alias    string
	Join     JoinType
	On       Expr
	Pos      int
}

type SetOperator int

const (
	NoSetOp SetOperator = iota
	UnionOp
	ExceptOp
	IntersectOp
)

func (op SetOperator) String() string {
	switch op {
	case UnionOp:
		return "UNION"
	case ExceptOp:
		return "EXCEPT"
	case IntersectOp:
		return "INTERSECT"
	default:
		return ""
	}
}

type OrderByClause struct {
	Expr       Expr
	Descending bool
}
