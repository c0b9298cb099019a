package bind

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nickyhof/ViewDB/core"
	"github.com/nickyhof/ViewDB/sql"
)

// Resolver looks up catalog objects. An empty schema is never passed; the
// binder substitutes the schema of the text being bound.
type Resolver interface {
	ResolveRelation(schema, name string) (core.Relation, error)
	ResolveSequence(schema, name string) (*core.Sequence, error)
}

type Options struct {
	// Schema resolves unqualified names.
	Schema string
	// Owner is the name of the view being compiled, if any. A reference back
	// to it, directly or through other views, is a cyclic reference.
	Owner *core.QualifiedName
	// Columns renames the projected columns of the top-level select.
	Columns []string
	// RecordWildcards records the offset and expansion of every '*' in the
	// bound text.
	RecordWildcards bool
}

// Bind parses text as a query and binds it against the resolver.
func Bind(resolver Resolver, text string, opts Options) (*SubQuery, error) {
	query, err := sql.ParseQuery(text)
	if err != nil {
		return nil, err
	}

	state := &bindState{resolver: resolver}
	if opts.Owner != nil {
		state.stack = []*core.QualifiedName{opts.Owner}
	}
	b := &binder{state: state, schema: opts.Schema, record: opts.RecordWildcards}

	selectTree, err := b.bindQuery(query, nil, 0)
	if err != nil {
		return nil, err
	}
	if err := applyColumnNames(selectTree, opts.Columns); err != nil {
		return nil, err
	}
	return &SubQuery{Select: selectTree, Level: 0}, nil
}

type bindState struct {
	resolver Resolver
	// stack holds the views currently being expanded, outermost first.
	stack []*core.QualifiedName
}

// binder binds one piece of SQL text. Referenced view bodies get their own
// binder sharing the state.
type binder struct {
	state  *bindState
	schema string
	record bool
}

type scope struct {
	parent  *scope
	filters []*TableFilter
	sel     *Select
}

func applyColumnNames(selectTree *Select, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if len(names) != len(selectTree.ResultColumns) {
		return core.Errorf(core.CodeColumnCountMismatch,
			"column list has %d names but the query projects %d columns", len(names), len(selectTree.ResultColumns))
	}
	for i, name := range names {
		selectTree.ResultColumns[i].Name = name
	}
	return nil
}

func (b *binder) bindQuery(query *sql.SelectStatement, parent *scope, level int) (*Select, error) {
	head, err := b.bindBlock(query, parent, level)
	if err != nil {
		return nil, err
	}

	previous := head
	for branch := query.Union; branch != nil; branch = branch.Union {
		selectTree, err := b.bindBlock(branch, parent, level)
		if err != nil {
			return nil, err
		}
		if len(selectTree.Columns) != len(head.Columns) {
			return nil, core.Errorf(core.CodeColumnCountMismatch,
				"%s branch projects %d columns, expected %d", branch.SetOp, len(selectTree.Columns), len(head.Columns))
		}
		selectTree.SetOp = branch.SetOp
		selectTree.All = branch.All
		previous.Union = selectTree
		previous = selectTree
	}
	return head, nil
}

func (b *binder) bindBlock(block *sql.SelectStatement, parent *scope, level int) (*Select, error) {
	selectTree := &Select{Distinct: block.Distinct, Limit: block.Limit, Offset: block.Offset}
	current := &scope{parent: parent, sel: selectTree}

	for _, ref := range block.From {
		filter, err := b.bindTableRef(ref, level)
		if err != nil {
			return nil, err
		}
		current.filters = append(current.filters, filter)
		selectTree.Filters = append(selectTree.Filters, filter)

		if ref.On != nil {
			condition, err := b.bindExpr(ref.On, current, level)
			if err != nil {
				return nil, err
			}
			selectTree.JoinConditions = append(selectTree.JoinConditions, condition)
		}
	}

	var aliases []string
	for _, item := range block.Items {
		if item.Star {
			if err := b.expandStar(item, current); err != nil {
				return nil, err
			}
			for range len(selectTree.Columns) - len(aliases) {
				aliases = append(aliases, "")
			}
			continue
		}
		expression, err := b.bindExpr(item.Expr, current, level)
		if err != nil {
			return nil, err
		}
		selectTree.Columns = append(selectTree.Columns, expression)
		aliases = append(aliases, item.Alias)
	}
	selectTree.ResultColumns = resultColumns(selectTree.Columns, aliases)

	var err error
	if block.Where != nil {
		if selectTree.Where, err = b.bindExpr(block.Where, current, level); err != nil {
			return nil, err
		}
	}
	for _, expr := range block.GroupBy {
		expression, err := b.bindExpr(expr, current, level)
		if err != nil {
			return nil, err
		}
		selectTree.GroupBy = append(selectTree.GroupBy, expression)
	}
	if block.Having != nil {
		if selectTree.Having, err = b.bindExpr(block.Having, current, level); err != nil {
			return nil, err
		}
	}
	for _, clause := range block.OrderBy {
		expression, err := b.bindOrderBy(clause.Expr, selectTree, current, level)
		if err != nil {
			return nil, err
		}
		selectTree.OrderBy = append(selectTree.OrderBy, expression)
	}

	return selectTree, nil
}

// expandStar adds the columns matched by a '*' or 't.*' item and records the
// expansion text at the item's offset.
func (b *binder) expandStar(item sql.SelectItem, current *scope) error {
	filters := current.filters
	if item.Qualifier != "" {
		filter, err := findFilter(current.filters, strings.Split(item.Qualifier, "."))
		if err != nil {
			return err
		}
		filters = []*TableFilter{filter}
	}
	if len(filters) == 0 {
		return core.Errorf(core.CodeParse, "'*' at offset %d has no table to expand", item.Pos)
	}

	var parts []string
	for _, filter := range filters {
		for _, column := range filter.Columns {
			current.sel.Columns = append(current.sel.Columns, columnExpression(filter, column))
			parts = append(parts, filter.qualify(column.Name))
		}
	}
	if b.record {
		current.sel.wildcards = append(current.sel.wildcards, Wildcard{Offset: item.Pos, Expansion: strings.Join(parts, ", ")})
	}
	return nil
}

func (b *binder) bindTableRef(ref sql.TableRef, level int) (*TableFilter, error) {
	if ref.Subquery != nil {
		selectTree, err := b.bindQuery(ref.Subquery, nil, level+1)
		if err != nil {
			return nil, err
		}
		return &TableFilter{
			Alias:    ref.Alias,
			Columns:  selectTree.ResultColumns,
			SubQuery: &SubQuery{Select: selectTree, Level: level + 1},
		}, nil
	}

	schema := ref.Schema
	if schema == "" {
		schema = b.schema
	}
	written := []string{ref.Table}
	if ref.Schema != "" {
		written = []string{ref.Schema, ref.Table}
	}

	if owner := b.owner(); owner != nil && owner.Schema == schema && owner.Name == ref.Table {
		return nil, b.cycle(owner)
	}

	relation, err := b.state.resolver.ResolveRelation(schema, ref.Table)
	if err != nil {
		return nil, err
	}
	filter := &TableFilter{
		Relation: relation,
		Alias:    ref.Alias,
		Written:  written,
		Columns:  relation.RelationColumns(),
	}

	if source, ok := relation.(core.ViewSource); ok {
		body, err := b.bindView(source, level+1)
		if err != nil {
			return nil, err
		}
		filter.SubQuery = body
	}
	return filter, nil
}

func (b *binder) owner() *core.QualifiedName {
	if len(b.state.stack) == 0 {
		return nil
	}
	return b.state.stack[0]
}

func (b *binder) cycle(target *core.QualifiedName) error {
	path := make([]string, 0, len(b.state.stack)+1)
	for _, name := range b.state.stack {
		path = append(path, name.String())
	}
	path = append(path, target.String())
	return core.Errorf(core.CodeCyclicReference, "%s", strings.Join(path, " -> "))
}

// bindView binds the stored text of a referenced view. Wildcards are never
// recorded: the text is not the one being compiled.
func (b *binder) bindView(source core.ViewSource, level int) (*SubQuery, error) {
	name := source.RelationName()
	for _, active := range b.state.stack {
		if active == name {
			return nil, b.cycle(name)
		}
	}

	b.state.stack = append(b.state.stack, name)
	defer func() {
		b.state.stack = b.state.stack[:len(b.state.stack)-1]
	}()

	query, err := sql.ParseQuery(source.Statement())
	if err != nil {
		return nil, errors.Wrapf(err, "view %s", name)
	}
	child := &binder{state: b.state, schema: source.CompileSchema()}
	selectTree, err := child.bindQuery(query, nil, level)
	if err != nil {
		return nil, err
	}
	if err := applyColumnNames(selectTree, source.ColumnAliases()); err != nil {
		return nil, errors.Wrapf(err, "view %s", name)
	}
	return &SubQuery{Select: selectTree, View: source, Level: level}, nil
}

func (b *binder) bindOrderBy(expr sql.Expr, selectTree *Select, current *scope, level int) (*Expression, error) {
	switch e := expr.(type) {
	case *sql.Literal:
		if e.Kind == sql.IntLiteral {
			position, err := strconv.Atoi(e.Value)
			if err != nil || position < 1 || position > len(selectTree.Columns) {
				return nil, core.Errorf(core.CodeParse, "ORDER BY position %s is out of range", e.Value)
			}
			return selectTree.Columns[position-1], nil
		}
	case *sql.ColumnRef:
		expression, err := b.bindExpr(expr, current, level)
		if err == nil || len(e.Parts) > 1 {
			return expression, err
		}
		// ORDER BY may name a select-list alias.
		for i, column := range selectTree.ResultColumns {
			if column.Name == e.Parts[0] {
				return selectTree.Columns[i], nil
			}
		}
		return nil, err
	}
	return b.bindExpr(expr, current, level)
}

func (b *binder) bindExpr(expr sql.Expr, current *scope, level int) (*Expression, error) {
	switch e := expr.(type) {
	case *sql.Literal:
		return &Expression{Kind: KindValue, Value: e.Value, Type: literalType(e.Kind)}, nil

	case *sql.ColumnRef:
		return resolveColumn(e, current)

	case *sql.NextValueExpr:
		schema := e.Schema
		if schema == "" {
			schema = b.schema
		}
		sequence, err := b.state.resolver.ResolveSequence(schema, e.Sequence)
		if err != nil {
			return nil, err
		}
		return &Expression{Kind: KindSequence, Sequence: sequence, Type: core.IntType}, nil

	case *sql.BinaryExpr:
		left, err := b.bindExpr(e.Left, current, level)
		if err != nil {
			return nil, err
		}
		right, err := b.bindExpr(e.Right, current, level)
		if err != nil {
			return nil, err
		}
		return &Expression{Kind: KindOperator, Op: e.Op, Args: []*Expression{left, right}, Type: operatorType(e.Op, left, right)}, nil

	case *sql.UnaryExpr:
		operand, err := b.bindExpr(e.Operand, current, level)
		if err != nil {
			return nil, err
		}
		expressionType := operand.Type
		if e.Op == "NOT" {
			expressionType = core.BoolType
		}
		return &Expression{Kind: KindOperator, Op: e.Op, Args: []*Expression{operand}, Type: expressionType}, nil

	case *sql.IsNullExpr:
		operand, err := b.bindExpr(e.Operand, current, level)
		if err != nil {
			return nil, err
		}
		op := "IS NULL"
		if e.Not {
			op = "IS NOT NULL"
		}
		return &Expression{Kind: KindOperator, Op: op, Args: []*Expression{operand}, Type: core.BoolType}, nil

	case *sql.LikeExpr:
		return b.bindPredicate(negate("LIKE", e.Not), current, level, e.Operand, e.Pattern)

	case *sql.BetweenExpr:
		return b.bindPredicate(negate("BETWEEN", e.Not), current, level, e.Operand, e.Low, e.High)

	case *sql.InExpr:
		if e.Query == nil {
			return b.bindPredicate(negate("IN", e.Not), current, level, append([]sql.Expr{e.Operand}, e.List...)...)
		}
		operand, err := b.bindExpr(e.Operand, current, level)
		if err != nil {
			return nil, err
		}
		subquery, err := b.bindSubQuery(e.Query, current, level)
		if err != nil {
			return nil, err
		}
		return &Expression{Kind: KindOperator, Op: negate("IN", e.Not), Args: []*Expression{operand, subquery}, Type: core.BoolType}, nil

	case *sql.ExistsExpr:
		subquery, err := b.bindSubQuery(e.Query, current, level)
		if err != nil {
			return nil, err
		}
		return &Expression{Kind: KindOperator, Op: "EXISTS", Args: []*Expression{subquery}, Type: core.BoolType}, nil

	case *sql.SubqueryExpr:
		return b.bindSubQuery(e.Query, current, level)

	case *sql.FuncCall:
		call := &Expression{Kind: KindFunction, Op: e.Name, Distinct: e.Distinct}
		if e.Star {
			call.Value = "*"
			if b.record {
				current.sel.wildcards = append(current.sel.wildcards, Wildcard{Offset: e.StarPos})
			}
		}
		for _, arg := range e.Args {
			bound, err := b.bindExpr(arg, current, level)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, bound)
		}
		call.Type = functionType(call)
		return call, nil

	default:
		return nil, core.Errorf(core.CodeUnsupported, "unsupported expression %T", expr)
	}
}

func negate(op string, not bool) string {
	if not {
		return "NOT " + op
	}
	return op
}

func (b *binder) bindPredicate(op string, current *scope, level int, exprs ...sql.Expr) (*Expression, error) {
	predicate := &Expression{Kind: KindOperator, Op: op, Type: core.BoolType}
	for _, expr := range exprs {
		arg, err := b.bindExpr(expr, current, level)
		if err != nil {
			return nil, err
		}
		predicate.Args = append(predicate.Args, arg)
	}
	return predicate, nil
}

// bindSubQuery binds a subquery inside an expression. It may reference
// columns of the enclosing scopes.
func (b *binder) bindSubQuery(query *sql.SelectStatement, current *scope, level int) (*Expression, error) {
	selectTree, err := b.bindQuery(query, current, level+1)
	if err != nil {
		return nil, err
	}
	expressionType := core.StringType
	if len(selectTree.ResultColumns) > 0 {
		expressionType = selectTree.ResultColumns[0].Type
	}
	return &Expression{
		Kind:     KindSubquery,
		Type:     expressionType,
		SubQuery: &SubQuery{Select: selectTree, Level: level + 1},
	}, nil
}

func resolveColumn(ref *sql.ColumnRef, current *scope) (*Expression, error) {
	name := ref.Parts[len(ref.Parts)-1]
	qualifier := ref.Parts[:len(ref.Parts)-1]

	for s := current; s != nil; s = s.parent {
		var candidates []*TableFilter
		if len(qualifier) == 0 {
			candidates = s.filters
		} else if filter, err := findFilter(s.filters, qualifier); err == nil {
			candidates = []*TableFilter{filter}
		}

		var match *Expression
		for _, filter := range candidates {
			for _, column := range filter.Columns {
				if column.Name != name {
					continue
				}
				if match != nil {
					return nil, core.Errorf(core.CodeParse, "column reference %s is ambiguous", strings.Join(ref.Parts, "."))
				}
				match = columnExpression(filter, column)
			}
		}
		if match != nil {
			return match, nil
		}
	}
	return nil, core.Errorf(core.CodeNotFound, "column %s not found", strings.Join(ref.Parts, "."))
}

// findFilter matches a qualifier against the filters of one scope: an alias or
// the name as written, or the table name or schema.table of an unaliased
// catalog relation.
func findFilter(filters []*TableFilter, qualifier []string) (*TableFilter, error) {
	written := strings.Join(qualifier, ".")
	for _, filter := range filters {
		if filter.ExposedName() == written {
			return filter, nil
		}
	}
	for _, filter := range filters {
		if filter.Alias != "" || filter.Relation == nil {
			continue
		}
		name := filter.Relation.RelationName()
		switch len(qualifier) {
		case 1:
			if name.Name == qualifier[0] {
				return filter, nil
			}
		case 2:
			if name.Schema == qualifier[0] && name.Name == qualifier[1] {
				return filter, nil
			}
		}
	}
	return nil, core.Errorf(core.CodeNotFound, "table %s not found in FROM clause", written)
}

func columnExpression(filter *TableFilter, column core.Column) *Expression {
	expression := &Expression{
		Kind:       KindColumn,
		ColumnName: column.Name,
		Type:       column.Type,
		Filter:     filter,
	}
	if filter.Relation != nil {
		expression.Table = filter.Relation.RelationName()
	}
	return expression
}

func resultColumns(columns []*Expression, aliases []string) []core.Column {
	result := make([]core.Column, len(columns))
	for i, column := range columns {
		name := aliases[i]
		if name == "" {
			name = column.ColumnName
		}
		if name == "" {
			name = fmt.Sprintf("C%d", i+1)
		}
		result[i] = core.Column{Name: name, Type: column.Type}
	}
	return result
}

func literalType(kind sql.LiteralKind) core.ColumnType {
	switch kind {
	case sql.IntLiteral:
		return core.IntType
	case sql.FloatLiteral:
		return core.FloatType
	case sql.BoolLiteral:
		return core.BoolType
	default:
		return core.StringType
	}
}

func operatorType(op string, left, right *Expression) core.ColumnType {
	switch op {
	case "+", "-", "*", "/":
		if left.Type == core.FloatType || right.Type == core.FloatType {
			return core.FloatType
		}
		return core.IntType
	case "||":
		return core.StringType
	default:
		return core.BoolType
	}
}

func functionType(call *Expression) core.ColumnType {
	switch call.Op {
	case "COUNT", "LENGTH", "LEN", "YEAR", "MONTH", "DAY", "HOUR", "MINUTE", "SECOND":
		return core.IntType
	case "AVG":
		return core.FloatType
	case "NOW", "CURRENT_TIMESTAMP":
		return core.TimestampType
	case "DATE", "CURRENT_DATE":
		return core.DateType
	case "SUM", "MIN", "MAX", "ABS", "COALESCE":
		if len(call.Args) > 0 {
			return call.Args[0].Type
		}
		return core.IntType
	default:
		return core.StringType
	}
}
