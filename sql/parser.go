package sql

import (
	"strconv"
	"strings"

	"github.com/nickyhof/ViewDB/core"
)

type StatementType int

const (
	SelectStatementType StatementType = iota
	CreateViewStatementType
	AlterViewStatementType
	DropViewStatementType
	CreateSchemaStatementType
	DropSchemaStatementType
	SetSchemaStatementType
	CreateTableStatementType
	DropTableStatementType
	AlterTableStatementType
	SetTableReadOnlyStatementType
	CreateSequenceStatementType
	DropSequenceStatementType
	DescribeStatementType
	ShowSchemasStatementType
	ShowTablesStatementType
	ShowViewsStatementType
	ShowSequencesStatementType
	ExplainViewStatementType
)

type Statement interface {
	Type() StatementType
}

// SelectStatement is one query block. Set-operation branches are chained
// through Union; each branch records the operator joining it to the previous
// block. OrderBy, Limit and Offset of the first block apply to the whole chain.
type SelectStatement struct {
	Distinct bool
	Items    []SelectItem
	From     []TableRef
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderByClause
	Limit    int
	Offset   int
	SetOp    SetOperator
	All      bool
	Union    *SelectStatement
	Pos      int
}

type CreateViewStatement struct {
	Schema     string
	View       string
	OrReplace  bool
	Columns    []string
	Definition string
	Query      *SelectStatement
}

type AlterViewStatement struct {
	Schema     string
	View       string
	Definition string
	Query      *SelectStatement
}

type DropViewStatement struct {
	Schema   string
	View     string
	IfExists bool
}

type CreateSchemaStatement struct {
	Schema string
}

type DropSchemaStatement struct {
	Schema   string
	IfExists bool
}

type SetSchemaStatement struct {
	Schema string
}

type CreateTableStatement struct {
	Schema  string
	Table   string
	Columns []core.Column
}

type DropTableStatement struct {
	Schema   string
	Table    string
	IfExists bool
}

type AlterTableAction int

const (
	AddColumnAction AlterTableAction = iota
	DropColumnAction
	RenameColumnAction
)

type AlterTableStatement struct {
	Schema        string
	Table         string
	Action        AlterTableAction
	Column        core.Column
	NewColumnName string // for RENAME
}

type SetTableReadOnlyStatement struct {
	Schema   string
	Table    string
	ReadOnly bool
}

type CreateSequenceStatement struct {
	Schema    string
	Sequence  string
	Start     int64
	Increment int64
}

type DropSequenceStatement struct {
	Schema   string
	Sequence string
	IfExists bool
}

type DescribeStatement struct {
	Schema string
	Name   string
}

type ShowSchemasStatement struct{}

type ShowTablesStatement struct {
	Schema string
}

type ShowViewsStatement struct {
	Schema string
}

type ShowSequencesStatement struct {
	Schema string
}

type ExplainViewStatement struct {
	Schema string
	View   string
}

func (s *SelectStatement) Type() StatementType {
	return SelectStatementType
}

func (s CreateViewStatement) Type() StatementType {
	return CreateViewStatementType
}

func (s AlterViewStatement) Type() StatementType {
	return AlterViewStatementType
}

func (s DropViewStatement) Type() StatementType {
	return DropViewStatementType
}

func (s CreateSchemaStatement) Type() StatementType {
	return CreateSchemaStatementType
}

func (s DropSchemaStatement) Type() StatementType {
	return DropSchemaStatementType
}

func (s SetSchemaStatement) Type() StatementType {
	return SetSchemaStatementType
}

func (s CreateTableStatement) Type() StatementType {
	return CreateTableStatementType
}

func (s DropTableStatement) Type() StatementType {
	return DropTableStatementType
}

func (s AlterTableStatement) Type() StatementType {
	return AlterTableStatementType
}

func (s SetTableReadOnlyStatement) Type() StatementType {
	return SetTableReadOnlyStatementType
}

func (s CreateSequenceStatement) Type() StatementType {
	return CreateSequenceStatementType
}

func (s DropSequenceStatement) Type() StatementType {
	return DropSequenceStatementType
}

func (s DescribeStatement) Type() StatementType {
	return DescribeStatementType
}

func (s ShowSchemasStatement) Type() StatementType {
	return ShowSchemasStatementType
}

func (s ShowTablesStatement) Type() StatementType {
	return ShowTablesStatementType
}

func (s ShowViewsStatement) Type() StatementType {
	return ShowViewsStatementType
}

func (s ShowSequencesStatement) Type() StatementType {
	return ShowSequencesStatementType
}

func (s ExplainViewStatement) Type() StatementType {
	return ExplainViewStatementType
}

// Branches yields the statement and every set-operation branch chained to it.
func (s *SelectStatement) Branches() []*SelectStatement {
	var branches []*SelectStatement
	for branch := s; branch != nil; branch = branch.Union {
		branches = append(branches, branch)
	}
	return branches
}

type Parser struct {
	sql   string
	lexer *Lexer
}

func NewParser(sql string) *Parser {
	lexer := NewLexer(sql)
	return &Parser{sql: sql, lexer: lexer}
}

// Parse parses a single statement, optionally followed by ';'.
func (parser *Parser) Parse() (Statement, error) {
	var statement Statement
	var err error

	if next := parser.lexer.PeekToken(); next.Type == Select || next.Type == ParenOpen {
		statement, err = parser.parseQuery()
	} else {
		token := parser.lexer.NextToken()
		switch token.Type {
		case Create:
			statement, err = ParseCreate(parser)
		case Drop:
			statement, err = ParseDrop(parser)
		case Alter:
			statement, err = ParseAlter(parser)
		case Set:
			statement, err = ParseSet(parser)
		case Describe:
			statement, err = ParseDescribe(parser)
		case Show:
			statement, err = ParseShow(parser)
		case Explain:
			statement, err = ParseExplain(parser)
		default:
			return nil, parser.errorAt(token, "unknown statement type")
		}
	}
	if err != nil {
		return nil, err
	}
	if err := parser.expectEnd(); err != nil {
		return nil, err
	}
	return statement, nil
}

// ParseQuery parses the text of a query expression such as a view body.
// Offsets recorded in the result are relative to sql.
func ParseQuery(sql string) (*SelectStatement, error) {
	parser := NewParser(sql)
	query, err := parser.parseQuery()
	if err != nil {
		return nil, err
	}
	if err := parser.expectEnd(); err != nil {
		return nil, err
	}
	return query, nil
}

// errorAt reports a parse error at token. A pending lexer error takes
// precedence since it is the root cause.
func (parser *Parser) errorAt(token Token, message string) error {
	if err := parser.lexer.Err(); err != nil {
		return err
	}
	if token.Type == EOF {
		return core.Errorf(core.CodeParse, "%s at end of input", message)
	}
	return core.Errorf(core.CodeParse, "%s at offset %d near %q", message, token.Pos, token.Value)
}

func (parser *Parser) accept(tokenType TokenType) bool {
	if parser.lexer.PeekToken().Type == tokenType {
		parser.lexer.NextToken()
		return true
	}
	return false
}

func (parser *Parser) expect(tokenType TokenType, message string) (Token, error) {
	token := parser.lexer.NextToken()
	if token.Type != tokenType {
		return token, parser.errorAt(token, message)
	}
	return token, nil
}

func (parser *Parser) expectEnd() error {
	token := parser.lexer.NextToken()
	if token.Type == Terminator {
		token = parser.lexer.NextToken()
	}
	if token.Type != EOF {
		return parser.errorAt(token, "unexpected token after statement")
	}
	if err := parser.lexer.Err(); err != nil {
		return err
	}
	return nil
}

func (parser *Parser) parseQuery() (*SelectStatement, error) {
	head, err := parser.parseQueryTerm()
	if err != nil {
		return nil, err
	}
	tail := lastBranch(head)

	for {
		var op SetOperator
		switch parser.lexer.PeekToken().Type {
		case Union:
			op = UnionOp
		case Except:
			op = ExceptOp
		case Intersect:
			op = IntersectOp
		}
		if op == NoSetOp {
			break
		}
		parser.lexer.NextToken()
		all := parser.accept(All)
		if !all {
			parser.accept(Distinct)
		}
		branch, err := parser.parseQueryTerm()
		if err != nil {
			return nil, err
		}
		branch.SetOp = op
		branch.All = all
		tail.Union = branch
		tail = lastBranch(branch)
	}

	if parser.accept(Order) {
		if _, err := parser.expect(By, "expected BY after ORDER"); err != nil {
			return nil, err
		}
		orderBy, err := parser.parseOrderBy()
		if err != nil {
			return nil, err
		}
		head.OrderBy = orderBy
	}
	if parser.accept(Limit) {
		limit, err := parser.parseCount("LIMIT")
		if err != nil {
			return nil, err
		}
		head.Limit = limit
	}
	if parser.accept(Offset) {
		offset, err := parser.parseCount("OFFSET")
		if err != nil {
			return nil, err
		}
		head.Offset = offset
	}
	return head, nil
}

func lastBranch(query *SelectStatement) *SelectStatement {
	for query.Union != nil {
		query = query.Union
	}
	return query
}

func (parser *Parser) parseCount(clause string) (int, error) {
	token := parser.lexer.NextToken()
	if token.Type != Int {
		return 0, parser.errorAt(token, "expected number after "+clause)
	}
	value, err := strconv.Atoi(token.Value)
	if err != nil {
		return 0, parser.errorAt(token, "invalid "+clause)
	}
	return value, nil
}

func (parser *Parser) parseQueryTerm() (*SelectStatement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case ParenOpen:
		query, err := parser.parseQuery()
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(ParenClose, "expected ')' after query"); err != nil {
			return nil, err
		}
		return query, nil
	case Select:
		return parser.parseSelectBlock(token)
	default:
		return nil, parser.errorAt(token, "expected SELECT")
	}
}

func (parser *Parser) parseSelectBlock(selectToken Token) (*SelectStatement, error) {
	selectStatement := &SelectStatement{Pos: selectToken.Pos}

	if parser.accept(Distinct) {
		selectStatement.Distinct = true
	} else {
		parser.accept(All)
	}

	for {
		item, err := parser.parseSelectItem()
		if err != nil {
			return nil, err
		}
		selectStatement.Items = append(selectStatement.Items, item)
		if !parser.accept(Comma) {
			break
		}
	}

	if parser.accept(From) {
		from, err := parser.parseFrom()
		if err != nil {
			return nil, err
		}
		selectStatement.From = from
	}

	if parser.accept(Where) {
		where, err := parser.parseExpr()
		if err != nil {
			return nil, err
		}
		selectStatement.Where = where
	}

	if parser.accept(Group) {
		if _, err := parser.expect(By, "expected BY after GROUP"); err != nil {
			return nil, err
		}
		for {
			expr, err := parser.parseExpr()
			if err != nil {
				return nil, err
			}
			selectStatement.GroupBy = append(selectStatement.GroupBy, expr)
			if !parser.accept(Comma) {
				break
			}
		}
	}

	if parser.accept(Having) {
		having, err := parser.parseExpr()
		if err != nil {
			return nil, err
		}
		selectStatement.Having = having
	}

	return selectStatement, nil
}

func (parser *Parser) parseSelectItem() (SelectItem, error) {
	token := parser.lexer.PeekToken()

	if token.Type == Wildcard {
		parser.lexer.NextToken()
		return SelectItem{Star: true, Pos: token.Pos}, nil
	}

	// The lexer keeps the trailing '.' of "t.*" on the identifier.
	if token.Type == Identifier && strings.HasSuffix(token.Value, ".") {
		parser.lexer.NextToken()
		if _, err := parser.expect(Wildcard, "expected '*' after qualifier"); err != nil {
			return SelectItem{}, err
		}
		return SelectItem{Star: true, Qualifier: strings.TrimSuffix(token.Value, "."), Pos: token.Pos}, nil
	}

	expr, err := parser.parseExpr()
	if err != nil {
		return SelectItem{}, err
	}
	item := SelectItem{Expr: expr, Pos: token.Pos}
	alias, err := parser.parseAlias()
	if err != nil {
		return SelectItem{}, err
	}
	item.Alias = alias
	return item, nil
}

func (parser *Parser) parseAlias() (string, error) {
	if parser.accept(As) {
		token := parser.lexer.NextToken()
		if token.Type != Identifier {
			return "", parser.errorAt(token, "expected alias after AS")
		}
		return token.Value, nil
	}
	if token := parser.lexer.PeekToken(); token.Type == Identifier && !strings.Contains(token.Value, ".") {
		parser.lexer.NextToken()
		return token.Value, nil
	}
	return "", nil
}

func (parser *Parser) parseFrom() ([]TableRef, error) {
	first, err := parser.parseTableRef()
	if err != nil {
		return nil, err
	}
	refs := []TableRef{first}

	for {
		var joinType JoinType
		token := parser.lexer.PeekToken()
		switch token.Type {
		case Comma:
			parser.lexer.NextToken()
			joinType = CommaJoin
		case Cross:
			parser.lexer.NextToken()
			if _, err := parser.expect(Join, "expected JOIN after CROSS"); err != nil {
				return nil, err
			}
			joinType = CrossJoin
		case Join:
			parser.lexer.NextToken()
			joinType = InnerJoin
		case Inner, Left, Right, Full:
			parser.lexer.NextToken()
			switch token.Type {
			case Inner:
				joinType = InnerJoin
			case Left:
				joinType = LeftJoin
			case Right:
				joinType = RightJoin
			default:
				joinType = FullJoin
			}
			if token.Type != Inner {
				parser.accept(Outer)
			}
			if _, err := parser.expect(Join, "expected JOIN"); err != nil {
				return nil, err
			}
		default:
			return refs, nil
		}

		ref, err := parser.parseTableRef()
		if err != nil {
			return nil, err
		}
		ref.Join = joinType
		if joinType != CommaJoin && joinType != CrossJoin {
			if _, err := parser.expect(On, "expected ON after joined table"); err != nil {
				return nil, err
			}
			on, err := parser.parseExpr()
			if err != nil {
				return nil, err
			}
			ref.On = on
		}
		refs = append(refs, ref)
	}
}

func (parser *Parser) parseTableRef() (TableRef, error) {
	var ref TableRef

	token := parser.lexer.NextToken()
	ref.Pos = token.Pos
	switch token.Type {
	case ParenOpen:
		query, err := parser.parseQuery()
		if err != nil {
			return ref, err
		}
		if _, err := parser.expect(ParenClose, "expected ')' after derived table"); err != nil {
			return ref, err
		}
		ref.Subquery = query
	case Identifier:
		schema, table, ok := splitName(token.Value)
		if !ok {
			return ref, parser.errorAt(token, "invalid table name")
		}
		ref.Schema = schema
		ref.Table = table
	default:
		return ref, parser.errorAt(token, "expected table name")
	}

	alias, err := parser.parseAlias()
	if err != nil {
		return ref, err
	}
	ref.Alias = alias
	return ref, nil
}

func (parser *Parser) parseOrderBy() ([]OrderByClause, error) {
	var clauses []OrderByClause
	for {
		expr, err := parser.parseExpr()
		if err != nil {
			return nil, err
		}
		clause := OrderByClause{Expr: expr}
		if parser.accept(Desc) {
			clause.Descending = true
		} else {
			parser.accept(Asc)
		}
		clauses = append(clauses, clause)
		if !parser.accept(Comma) {
			return clauses, nil
		}
	}
}

func (parser *Parser) parseExpr() (Expr, error) {
	return parser.parseOr()
}

func (parser *Parser) parseOr() (Expr, error) {
	left, err := parser.parseAnd()
	if err != nil {
		return nil, err
	}
	for parser.accept(Or) {
		right, err := parser.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseAnd() (Expr, error) {
	left, err := parser.parseNot()
	if err != nil {
		return nil, err
	}
	for parser.accept(And) {
		right, err := parser.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseNot() (Expr, error) {
	if parser.accept(Not) {
		operand, err := parser.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "NOT", Operand: operand}, nil
	}
	return parser.parsePredicate()
}

func (parser *Parser) parsePredicate() (Expr, error) {
	left, err := parser.parseAdditive()
	if err != nil {
		return nil, err
	}

	token := parser.lexer.PeekToken()
	switch token.Type {
	case Equals, NotEquals, LessThan, GreaterThan, LessThanOrEqual, GreaterThanOrEqual:
		parser.lexer.NextToken()
		right, err := parser.parseAdditive()
		if err != nil {
			return nil, err
		}
		op := token.Value
		if op == "!=" {
			op = "<>"
		}
		return &BinaryExpr{Op: op, Left: left, Right: right}, nil
	case Is:
		parser.lexer.NextToken()
		not := parser.accept(Not)
		if _, err := parser.expect(Null, "expected NULL after IS"); err != nil {
			return nil, err
		}
		return &IsNullExpr{Operand: left, Not: not}, nil
	case Not, In, Like, Between:
		parser.lexer.NextToken()
		not := token.Type == Not
		if not {
			token = parser.lexer.NextToken()
		}
		switch token.Type {
		case In:
			return parser.parseIn(left, not)
		case Like:
			pattern, err := parser.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &LikeExpr{Operand: left, Pattern: pattern, Not: not}, nil
		case Between:
			low, err := parser.parseAdditive()
			if err != nil {
				return nil, err
			}
			if _, err := parser.expect(And, "expected AND in BETWEEN"); err != nil {
				return nil, err
			}
			high, err := parser.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &BetweenExpr{Operand: left, Low: low, High: high, Not: not}, nil
		default:
			return nil, parser.errorAt(token, "expected IN, LIKE or BETWEEN after NOT")
		}
	}
	return left, nil
}

func (parser *Parser) parseIn(left Expr, not bool) (Expr, error) {
	if _, err := parser.expect(ParenOpen, "expected '(' after IN"); err != nil {
		return nil, err
	}
	in := &InExpr{Operand: left, Not: not}
	if parser.lexer.PeekToken().Type == Select {
		query, err := parser.parseQuery()
		if err != nil {
			return nil, err
		}
		in.Query = query
	} else {
		for {
			expr, err := parser.parseExpr()
			if err != nil {
				return nil, err
			}
			in.List = append(in.List, expr)
			if !parser.accept(Comma) {
				break
			}
		}
	}
	if _, err := parser.expect(ParenClose, "expected ')' after IN list"); err != nil {
		return nil, err
	}
	return in, nil
}

func (parser *Parser) parseAdditive() (Expr, error) {
	left, err := parser.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		token := parser.lexer.PeekToken()
		if token.Type != Plus && token.Type != Minus && token.Type != Concat {
			return left, nil
		}
		parser.lexer.NextToken()
		right, err := parser.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: token.Value, Left: left, Right: right}
	}
}

func (parser *Parser) parseMultiplicative() (Expr, error) {
	left, err := parser.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		token := parser.lexer.PeekToken()
		if token.Type != Wildcard && token.Type != Slash {
			return left, nil
		}
		parser.lexer.NextToken()
		right, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: token.Value, Left: left, Right: right}
	}
}

func (parser *Parser) parseUnary() (Expr, error) {
	if parser.accept(Minus) {
		operand, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "-", Operand: operand}, nil
	}
	parser.accept(Plus)
	return parser.parsePrimary()
}

func (parser *Parser) parsePrimary() (Expr, error) {
	token := parser.lexer.NextToken()

	switch token.Type {
	case String:
		return &Literal{Kind: StringLiteral, Value: token.Value, Pos: token.Pos}, nil
	case Int:
		return &Literal{Kind: IntLiteral, Value: token.Value, Pos: token.Pos}, nil
	case Float:
		return &Literal{Kind: FloatLiteral, Value: token.Value, Pos: token.Pos}, nil
	case True, False:
		return &Literal{Kind: BoolLiteral, Value: toUpper(token.Value), Pos: token.Pos}, nil
	case Null:
		return &Literal{Kind: NullLiteral, Value: "NULL", Pos: token.Pos}, nil
	case ParenOpen:
		if next := parser.lexer.PeekToken(); next.Type == Select {
			query, err := parser.parseQuery()
			if err != nil {
				return nil, err
			}
			if _, err := parser.expect(ParenClose, "expected ')' after subquery"); err != nil {
				return nil, err
			}
			return &SubqueryExpr{Query: query, Pos: token.Pos}, nil
		}
		expr, err := parser.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(ParenClose, "expected ')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case Exists:
		if _, err := parser.expect(ParenOpen, "expected '(' after EXISTS"); err != nil {
			return nil, err
		}
		query, err := parser.parseQuery()
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(ParenClose, "expected ')' after subquery"); err != nil {
			return nil, err
		}
		return &ExistsExpr{Query: query, Pos: token.Pos}, nil
	case Next:
		if _, err := parser.expect(Value, "expected VALUE after NEXT"); err != nil {
			return nil, err
		}
		if _, err := parser.expect(For, "expected FOR after NEXT VALUE"); err != nil {
			return nil, err
		}
		name, err := parser.expect(Identifier, "expected sequence name")
		if err != nil {
			return nil, err
		}
		schema, sequence, ok := splitName(name.Value)
		if !ok {
			return nil, parser.errorAt(name, "invalid sequence name")
		}
		return &NextValueExpr{Schema: schema, Sequence: sequence, Pos: token.Pos}, nil
	case Identifier, Left, Right, Replace:
		if parser.lexer.PeekToken().Type == ParenOpen {
			return parser.parseFuncCall(token)
		}
		if token.Type != Identifier || strings.HasSuffix(token.Value, ".") {
			return nil, parser.errorAt(token, "unexpected token")
		}
		parts := strings.Split(token.Value, ".")
		for _, part := range parts {
			if part == "" {
				return nil, parser.errorAt(token, "invalid column reference")
			}
		}
		if len(parts) > 3 {
			return nil, parser.errorAt(token, "too many qualifiers in column reference")
		}
		return &ColumnRef{Parts: parts, Pos: token.Pos}, nil
	default:
		return nil, parser.errorAt(token, "unexpected token in expression")
	}
}

func (parser *Parser) parseFuncCall(name Token) (Expr, error) {
	parser.lexer.NextToken() // consume '('
	call := &FuncCall{Name: toUpper(name.Value), Pos: name.Pos}

	if next := parser.lexer.PeekToken(); next.Type == Wildcard {
		parser.lexer.NextToken()
		call.Star = true
		call.StarPos = next.Pos
	} else if next.Type != ParenClose {
		call.Distinct = parser.accept(Distinct)
		for {
			arg, err := parser.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if !parser.accept(Comma) {
				break
			}
		}
	}

	if _, err := parser.expect(ParenClose, "expected ')' after function arguments"); err != nil {
		return nil, err
	}
	return call, nil
}

func ParseCreate(parser *Parser) (Statement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case Or:
		if _, err := parser.expect(Replace, "expected REPLACE after OR"); err != nil {
			return nil, err
		}
		if _, err := parser.expect(ViewIdentifier, "expected VIEW after OR REPLACE"); err != nil {
			return nil, err
		}
		return ParseCreateView(parser, true)
	case ViewIdentifier:
		return ParseCreateView(parser, false)
	case TableIdentifier:
		return ParseCreateTable(parser)
	case SchemaIdentifier, DatabaseIdentifier:
		return ParseCreateSchema(parser)
	case SequenceIdentifier:
		return ParseCreateSequence(parser)
	default:
		return nil, parser.errorAt(token, "expected VIEW, TABLE, SCHEMA or SEQUENCE after CREATE")
	}
}

// ParseCreateView parses: CREATE [OR REPLACE] VIEW [schema.]name [(col, ...)] AS query
func ParseCreateView(parser *Parser, orReplace bool) (Statement, error) {
	createView := CreateViewStatement{OrReplace: orReplace}

	schema, name, err := parser.parseName("view")
	if err != nil {
		return nil, err
	}
	createView.Schema = schema
	createView.View = name

	if parser.accept(ParenOpen) {
		columns, err := parser.parseNameList()
		if err != nil {
			return nil, err
		}
		createView.Columns = columns
	}

	definition, query, err := parser.parseViewBody()
	if err != nil {
		return nil, err
	}
	createView.Definition = definition
	createView.Query = query
	return createView, nil
}

// ParseAlterView parses: ALTER VIEW [schema.]name AS query
func ParseAlterView(parser *Parser) (Statement, error) {
	schema, name, err := parser.parseName("view")
	if err != nil {
		return nil, err
	}
	definition, query, err := parser.parseViewBody()
	if err != nil {
		return nil, err
	}
	return AlterViewStatement{Schema: schema, View: name, Definition: definition, Query: query}, nil
}

// parseViewBody consumes AS query and returns the raw text from the start of
// the query to the end of the input. Trailing separators and comments are
// left for the view to trim.
func (parser *Parser) parseViewBody() (string, *SelectStatement, error) {
	if _, err := parser.expect(As, "expected AS before view query"); err != nil {
		return "", nil, err
	}
	start := parser.lexer.PeekToken().Pos
	query, err := parser.parseQuery()
	if err != nil {
		return "", nil, err
	}
	return parser.sql[start:], query, nil
}

func (parser *Parser) parseNameList() ([]string, error) {
	var names []string
	for {
		token := parser.lexer.NextToken()
		if token.Type != Identifier {
			return nil, parser.errorAt(token, "expected column name")
		}
		names = append(names, token.Value)

		token = parser.lexer.NextToken()
		if token.Type == ParenClose {
			return names, nil
		}
		if token.Type != Comma {
			return nil, parser.errorAt(token, "expected ',' or ')' in column list")
		}
	}
}

func ParseCreateTable(parser *Parser) (Statement, error) {
	var createTableStatement CreateTableStatement

	schema, name, err := parser.parseName("table")
	if err != nil {
		return nil, err
	}
	createTableStatement.Schema = schema
	createTableStatement.Table = name

	if _, err := parser.expect(ParenOpen, "expected '(' after table name"); err != nil {
		return nil, err
	}

	for {
		column, err := parser.parseColumnDefinition()
		if err != nil {
			return nil, err
		}
		createTableStatement.Columns = append(createTableStatement.Columns, column)

		token := parser.lexer.NextToken()
		if token.Type == Comma {
			continue
		} else if token.Type == ParenClose {
			break
		} else {
			return nil, parser.errorAt(token, "expected ',' or ')' in column list")
		}
	}

	return createTableStatement, nil
}

func (parser *Parser) parseColumnDefinition() (core.Column, error) {
	token := parser.lexer.NextToken()
	if token.Type != Identifier {
		return core.Column{}, parser.errorAt(token, "expected column name")
	}
	column := core.Column{Name: token.Value}

	token = parser.lexer.NextToken()
	if token.Type != Identifier {
		return core.Column{}, parser.errorAt(token, "expected column type")
	}
	columnType, err := core.ParseColumnType(token.Value)
	if err != nil {
		return core.Column{}, err
	}
	column.Type = columnType

	column.PrimaryKey = parser.accept(PrimaryKey)
	return column, nil
}

func ParseCreateSchema(parser *Parser) (Statement, error) {
	token := parser.lexer.NextToken()
	if token.Type != Identifier || strings.Contains(token.Value, ".") {
		return nil, parser.errorAt(token, "expected schema name")
	}
	return CreateSchemaStatement{Schema: token.Value}, nil
}

// ParseCreateSequence parses: CREATE SEQUENCE name [START WITH n] [INCREMENT BY n]
func ParseCreateSequence(parser *Parser) (Statement, error) {
	schema, name, err := parser.parseName("sequence")
	if err != nil {
		return nil, err
	}
	statement := CreateSequenceStatement{Schema: schema, Sequence: name, Start: 1, Increment: 1}

	for {
		switch {
		case parser.accept(Start):
			if _, err := parser.expect(With, "expected WITH after START"); err != nil {
				return nil, err
			}
			value, err := parser.parseSignedInt()
			if err != nil {
				return nil, err
			}
			statement.Start = value
		case parser.accept(Increment):
			if _, err := parser.expect(By, "expected BY after INCREMENT"); err != nil {
				return nil, err
			}
			value, err := parser.parseSignedInt()
			if err != nil {
				return nil, err
			}
			if value == 0 {
				return nil, core.Errorf(core.CodeParse, "sequence increment must not be zero")
			}
			statement.Increment = value
		default:
			return statement, nil
		}
	}
}

func (parser *Parser) parseSignedInt() (int64, error) {
	negative := parser.accept(Minus)
	token := parser.lexer.NextToken()
	if token.Type != Int {
		return 0, parser.errorAt(token, "expected integer")
	}
	value, err := strconv.ParseInt(token.Value, 10, 64)
	if err != nil {
		return 0, parser.errorAt(token, "invalid integer")
	}
	if negative {
		value = -value
	}
	return value, nil
}

func ParseDrop(parser *Parser) (Statement, error) {
	token := parser.lexer.NextToken()

	kind := token.Type
	switch kind {
	case ViewIdentifier, TableIdentifier, SequenceIdentifier, SchemaIdentifier, DatabaseIdentifier:
	default:
		return nil, parser.errorAt(token, "expected VIEW, TABLE, SEQUENCE or SCHEMA after DROP")
	}

	ifExists := false
	if parser.accept(If) {
		if _, err := parser.expect(Exists, "expected EXISTS after IF"); err != nil {
			return nil, err
		}
		ifExists = true
	}

	if kind == SchemaIdentifier || kind == DatabaseIdentifier {
		token = parser.lexer.NextToken()
		if token.Type != Identifier || strings.Contains(token.Value, ".") {
			return nil, parser.errorAt(token, "expected schema name")
		}
		return DropSchemaStatement{Schema: token.Value, IfExists: ifExists}, nil
	}

	schema, name, err := parser.parseName("object")
	if err != nil {
		return nil, err
	}
	switch kind {
	case ViewIdentifier:
		return DropViewStatement{Schema: schema, View: name, IfExists: ifExists}, nil
	case TableIdentifier:
		return DropTableStatement{Schema: schema, Table: name, IfExists: ifExists}, nil
	default:
		return DropSequenceStatement{Schema: schema, Sequence: name, IfExists: ifExists}, nil
	}
}

func ParseAlter(parser *Parser) (Statement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case ViewIdentifier:
		return ParseAlterView(parser)
	case TableIdentifier:
		return ParseAlterTable(parser)
	default:
		return nil, parser.errorAt(token, "expected TABLE or VIEW after ALTER")
	}
}

// ParseAlterTable parses ADD [COLUMN], DROP [COLUMN] and RENAME COLUMN a TO b.
func ParseAlterTable(parser *Parser) (Statement, error) {
	var alterTableStatement AlterTableStatement

	schema, name, err := parser.parseName("table")
	if err != nil {
		return nil, err
	}
	alterTableStatement.Schema = schema
	alterTableStatement.Table = name

	token := parser.lexer.NextToken()
	switch token.Type {
	case Add:
		parser.accept(Column)
		column, err := parser.parseColumnDefinition()
		if err != nil {
			return nil, err
		}
		alterTableStatement.Action = AddColumnAction
		alterTableStatement.Column = column
	case Drop:
		parser.accept(Column)
		token = parser.lexer.NextToken()
		if token.Type != Identifier {
			return nil, parser.errorAt(token, "expected column name")
		}
		alterTableStatement.Action = DropColumnAction
		alterTableStatement.Column.Name = token.Value
	case Rename:
		if _, err := parser.expect(Column, "expected COLUMN after RENAME"); err != nil {
			return nil, err
		}
		token = parser.lexer.NextToken()
		if token.Type != Identifier {
			return nil, parser.errorAt(token, "expected column name")
		}
		alterTableStatement.Column.Name = token.Value
		if _, err := parser.expect(To, "expected TO"); err != nil {
			return nil, err
		}
		token = parser.lexer.NextToken()
		if token.Type != Identifier {
			return nil, parser.errorAt(token, "expected new column name")
		}
		alterTableStatement.Action = RenameColumnAction
		alterTableStatement.NewColumnName = token.Value
	default:
		return nil, parser.errorAt(token, "expected ADD, DROP or RENAME")
	}

	return alterTableStatement, nil
}

// ParseSet parses SET SCHEMA name and SET TABLE name READONLY TRUE|FALSE.
func ParseSet(parser *Parser) (Statement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case SchemaIdentifier:
		token = parser.lexer.NextToken()
		if token.Type != Identifier || strings.Contains(token.Value, ".") {
			return nil, parser.errorAt(token, "expected schema name")
		}
		return SetSchemaStatement{Schema: token.Value}, nil
	case TableIdentifier:
		schema, name, err := parser.parseName("table")
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(ReadOnly, "expected READONLY"); err != nil {
			return nil, err
		}
		token = parser.lexer.NextToken()
		if token.Type != True && token.Type != False {
			return nil, parser.errorAt(token, "expected TRUE or FALSE")
		}
		return SetTableReadOnlyStatement{Schema: schema, Table: name, ReadOnly: token.Type == True}, nil
	default:
		return nil, parser.errorAt(token, "expected SCHEMA or TABLE after SET")
	}
}

func ParseDescribe(parser *Parser) (Statement, error) {
	schema, name, err := parser.parseName("object")
	if err != nil {
		return nil, err
	}
	return DescribeStatement{Schema: schema, Name: name}, nil
}

func ParseShow(parser *Parser) (Statement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case SchemasIdentifier:
		return ShowSchemasStatement{}, nil
	case TablesIdentifier, ViewsIdentifier, SequencesIdentifier:
		schema := ""
		if parser.accept(In) {
			name := parser.lexer.NextToken()
			if name.Type != Identifier || strings.Contains(name.Value, ".") {
				return nil, parser.errorAt(name, "expected schema name after IN")
			}
			schema = name.Value
		}
		switch token.Type {
		case TablesIdentifier:
			return ShowTablesStatement{Schema: schema}, nil
		case ViewsIdentifier:
			return ShowViewsStatement{Schema: schema}, nil
		default:
			return ShowSequencesStatement{Schema: schema}, nil
		}
	default:
		return nil, parser.errorAt(token, "expected SCHEMAS, TABLES, VIEWS or SEQUENCES after SHOW")
	}
}

// ParseExplain parses: EXPLAIN VIEW name
func ParseExplain(parser *Parser) (Statement, error) {
	if _, err := parser.expect(ViewIdentifier, "expected VIEW after EXPLAIN"); err != nil {
		return nil, err
	}
	schema, name, err := parser.parseName("view")
	if err != nil {
		return nil, err
	}
	return ExplainViewStatement{Schema: schema, View: name}, nil
}

func (parser *Parser) parseName(what string) (string, string, error) {
	token := parser.lexer.NextToken()
	if token.Type != Identifier {
		return "", "", parser.errorAt(token, "expected "+what+" name")
	}
	schema, name, ok := splitName(token.Value)
	if !ok {
		return "", "", parser.errorAt(token, "invalid "+what+" name")
	}
	return schema, name, nil
}

// splitName splits "name" or "schema.name".
func splitName(value string) (string, string, bool) {
	parts := strings.Split(value, ".")
	for _, part := range parts {
		if part == "" {
			return "", "", false
		}
	}
	switch len(parts) {
	case 1:
		return "", parts[0], true
	case 2:
		return parts[0], parts[1], true
	default:
		return "", "", false
	}
}
