package bind

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/ViewDB/core"
	"github.com/nickyhof/ViewDB/sql"
)

type testView struct {
	name      *core.QualifiedName
	statement string
	aliases   []string
	columns   []core.Column
}

func (v *testView) RelationName() *core.QualifiedName { return v.name }
func (v *testView) RelationColumns() []core.Column    { return v.columns }
func (v *testView) RelationKind() core.RelationKind   { return core.ViewRelation }
func (v *testView) Statement() string                 { return v.statement }
func (v *testView) ColumnAliases() []string           { return v.aliases }
func (v *testView) CompileSchema() string             { return v.name.Schema }

type testCatalog struct {
	relations map[string]core.Relation
	sequences map[string]*core.Sequence
}

func newTestCatalog() *testCatalog {
	return &testCatalog{relations: map[string]core.Relation{}, sequences: map[string]*core.Sequence{}}
}

func (c *testCatalog) table(schema, name string, columns ...string) *core.Table {
	table := &core.Table{Name: core.NewQualifiedName(schema, name)}
	for _, column := range columns {
		table.Columns = append(table.Columns, core.Column{Name: column, Type: core.IntType})
	}
	c.relations[core.Key(schema, name)] = table
	return table
}

func (c *testCatalog) view(schema, name, statement string, columns ...string) *testView {
	view := &testView{name: core.NewQualifiedName(schema, name), statement: statement}
	for _, column := range columns {
		view.columns = append(view.columns, core.Column{Name: column, Type: core.IntType})
	}
	c.relations[core.Key(schema, name)] = view
	return view
}

func (c *testCatalog) ResolveRelation(schema, name string) (core.Relation, error) {
	if relation, ok := c.relations[core.Key(schema, name)]; ok {
		return relation, nil
	}
	return nil, core.Errorf(core.CodeNotFound, "table %s.%s not found", schema, name)
}

func (c *testCatalog) ResolveSequence(schema, name string) (*core.Sequence, error) {
	if sequence, ok := c.sequences[core.Key(schema, name)]; ok {
		return sequence, nil
	}
	return nil, core.Errorf(core.CodeNotFound, "sequence %s.%s not found", schema, name)
}

func fixture() *testCatalog {
	catalog := newTestCatalog()
	catalog.table("PUBLIC", "t1", "a", "b")
	catalog.table("PUBLIC", "t2", "c", "d")
	catalog.table("OTHER", "t3", "e")
	catalog.sequences[core.Key("PUBLIC", "seq")] = &core.Sequence{Name: core.NewQualifiedName("PUBLIC", "seq"), Start: 1, Increment: 1}
	return catalog
}

func bindRecording(t *testing.T, catalog *testCatalog, text string) *SubQuery {
	t.Helper()
	top, err := Bind(catalog, text, Options{Schema: "PUBLIC", RecordWildcards: true})
	require.NoError(t, err)
	return top
}

func columnNames(columns []core.Column) []string {
	names := make([]string, len(columns))
	for i, column := range columns {
		names[i] = column.Name
	}
	return names
}

func TestBindStarExpansion(t *testing.T) {
	top := bindRecording(t, fixture(), "SELECT * FROM t1, t2")

	assert.Equal(t, []string{"a", "b", "c", "d"}, columnNames(top.Select.ResultColumns))
	assert.Equal(t, Wildcards{{Offset: 7, Expansion: "t1.a, t1.b, t2.c, t2.d"}}, top.Select.DrainWildcards())
	assert.Empty(t, top.Select.DrainWildcards())
	assert.Equal(t, 0, top.Select.PendingWildcards())
}

func TestBindQualifiedStar(t *testing.T) {
	top := bindRecording(t, fixture(), "SELECT x.*, c FROM t1 x, PUBLIC.t2")

	assert.Equal(t, []string{"a", "b", "c"}, columnNames(top.Select.ResultColumns))
	assert.Equal(t, Wildcards{{Offset: 7, Expansion: "x.a, x.b"}}, top.Select.DrainWildcards())

	top = bindRecording(t, fixture(), "SELECT PUBLIC.t2.* FROM PUBLIC.t2")
	assert.Equal(t, Wildcards{{Offset: 7, Expansion: "PUBLIC.t2.c, PUBLIC.t2.d"}}, top.Select.DrainWildcards())
}

func TestBindCountStarRecordsEmptyExpansion(t *testing.T) {
	top := bindRecording(t, fixture(), "SELECT COUNT(*) FROM t1")

	assert.Equal(t, Wildcards{{Offset: 13}}, top.Select.DrainWildcards())
	assert.Equal(t, core.IntType, top.Select.ResultColumns[0].Type)
	assert.Equal(t, "C1", top.Select.ResultColumns[0].Name)
}

func TestBindWithoutRecording(t *testing.T) {
	top, err := Bind(fixture(), "SELECT * FROM t1", Options{Schema: "PUBLIC"})
	require.NoError(t, err)
	assert.Equal(t, 0, top.Select.PendingWildcards())
	assert.Len(t, top.Select.Columns, 2)
}

func TestBindColumnResolution(t *testing.T) {
	catalog := fixture()
	catalog.table("PUBLIC", "t4", "a")

	tests := []struct {
		name string
		text string
		err  error
	}{
		{"unqualified", "SELECT a, d FROM t1, t2", nil},
		{"alias", "SELECT x.a FROM t1 x", nil},
		{"schema qualified", "SELECT PUBLIC.t1.a FROM PUBLIC.t1", nil},
		{"table name with schema written", "SELECT t1.a FROM PUBLIC.t1", nil},
		{"ambiguous", "SELECT a FROM t1, t4", core.ErrParse},
		{"unknown column", "SELECT z FROM t1", core.ErrNotFound},
		{"unknown table", "SELECT a FROM nope", core.ErrNotFound},
		{"alias hides name", "SELECT t1.a FROM t1 x", core.ErrNotFound},
		{"correlated", "SELECT a FROM t1 WHERE EXISTS (SELECT 1 FROM t2 WHERE t2.c = t1.a)", nil},
		{"derived tables do not see outer scope", "SELECT a FROM t1, (SELECT c FROM t2 WHERE c = a) d", core.ErrNotFound},
		{"order by alias", "SELECT a + b AS total FROM t1 ORDER BY total", nil},
		{"order by position", "SELECT a, b FROM t1 ORDER BY 2", nil},
		{"order by position out of range", "SELECT a FROM t1 ORDER BY 3", core.ErrParse},
		{"star without from", "SELECT *", core.ErrParse},
		{"parse error", "SELECT FROM", core.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(catalog, tt.text, Options{Schema: "PUBLIC"})
			if tt.err == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestBindColumnExpressions(t *testing.T) {
	catalog := fixture()
	top := bindRecording(t, catalog, "SELECT t1.a, NEXT VALUE FOR seq FROM t1")

	column := top.Select.Columns[0]
	assert.Equal(t, KindColumn, column.Kind)
	assert.Equal(t, "a", column.ColumnName)
	assert.Same(t, catalog.relations[core.Key("PUBLIC", "t1")].RelationName(), column.Table)

	sequence := top.Select.Columns[1]
	assert.Equal(t, KindSequence, sequence.Kind)
	assert.Same(t, catalog.sequences[core.Key("PUBLIC", "seq")], sequence.Sequence)
}

func TestBindReferencedView(t *testing.T) {
	catalog := fixture()
	v1 := catalog.view("PUBLIC", "v1", "SELECT * FROM t1", "a", "b")

	top := bindRecording(t, catalog, "SELECT * FROM v1")

	require.Len(t, top.Select.Filters, 1)
	filter := top.Select.Filters[0]
	assert.Same(t, v1, filter.Relation)
	require.NotNil(t, filter.SubQuery)
	assert.Same(t, v1, filter.SubQuery.View)
	assert.Equal(t, 1, filter.SubQuery.Level)
	assert.Equal(t, 0, filter.SubQuery.Select.PendingWildcards())
	assert.Equal(t, Wildcards{{Offset: 7, Expansion: "v1.a, v1.b"}}, top.Select.DrainWildcards())

	var tables []string
	for f := range Filters(filter.SubQuery.Select) {
		tables = append(tables, f.Relation.RelationName().String())
	}
	assert.Equal(t, []string{"PUBLIC.t1"}, tables)
}

func TestBindViewColumnAliases(t *testing.T) {
	catalog := fixture()
	v1 := catalog.view("PUBLIC", "v1", "SELECT a, b FROM t1", "x", "y")
	v1.aliases = []string{"x", "y"}

	top := bindRecording(t, catalog, "SELECT x FROM v1")
	assert.Equal(t, []string{"x", "y"}, columnNames(top.Select.Filters[0].SubQuery.Select.ResultColumns))
}

func TestBindCycles(t *testing.T) {
	catalog := fixture()
	v1 := catalog.view("PUBLIC", "v1", "SELECT a FROM v2", "a")
	catalog.view("PUBLIC", "v2", "SELECT a FROM v1", "a")

	_, err := Bind(catalog, "SELECT a FROM v2", Options{Schema: "PUBLIC", Owner: v1.name})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCyclicReference))
	assert.Contains(t, err.Error(), "PUBLIC.v1 -> PUBLIC.v2 -> PUBLIC.v1")

	_, err = Bind(catalog, "SELECT a FROM v1", Options{Schema: "PUBLIC"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCyclicReference))

	owner := core.NewQualifiedName("PUBLIC", "v3")
	_, err = Bind(catalog, "SELECT * FROM v3", Options{Schema: "PUBLIC", Owner: owner})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCyclicReference))
	assert.Contains(t, err.Error(), "PUBLIC.v3 -> PUBLIC.v3")
}

func TestBindUnion(t *testing.T) {
	top := bindRecording(t, fixture(), "SELECT * FROM t1 UNION ALL SELECT c, d FROM t2 EXCEPT SELECT * FROM t2")

	var ops []sql.SetOperator
	for branch := range top.Select.Branches() {
		ops = append(ops, branch.SetOp)
	}
	assert.Equal(t, []sql.SetOperator{sql.NoSetOp, sql.UnionOp, sql.ExceptOp}, ops)
	assert.True(t, top.Select.Union.All)
	assert.Equal(t, Wildcards{{Offset: 7, Expansion: "t1.a, t1.b"}}, top.Select.DrainWildcards())
	assert.Equal(t, Wildcards{{Offset: 61, Expansion: "t2.c, t2.d"}}, top.Select.Union.Union.DrainWildcards())

	_, err := Bind(fixture(), "SELECT a FROM t1 UNION SELECT c, d FROM t2", Options{Schema: "PUBLIC"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrColumnCountMismatch))
}

func TestBindColumnNames(t *testing.T) {
	top, err := Bind(fixture(), "SELECT a, b FROM t1", Options{Schema: "PUBLIC", Columns: []string{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, columnNames(top.Select.ResultColumns))

	_, err = Bind(fixture(), "SELECT a, b FROM t1", Options{Schema: "PUBLIC", Columns: []string{"x"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrColumnCountMismatch))
}

func TestChildren(t *testing.T) {
	top := bindRecording(t, fixture(), "SELECT (SELECT MAX(c) FROM t2) AS m FROM (SELECT a FROM t1) d WHERE a IN (SELECT c FROM t2)")

	children := top.Select.Children()
	require.Len(t, children, 3)
	assert.Same(t, top.Select.Filters[0].SubQuery, children[0])
	assert.Equal(t, "m", top.Select.ResultColumns[0].Name)
	for _, child := range children {
		assert.Equal(t, 1, child.Level)
	}
}

func TestWalk(t *testing.T) {
	catalog := fixture()
	catalog.view("PUBLIC", "v1", "SELECT a, NEXT VALUE FOR seq AS n FROM t1", "a", "n")
	top := bindRecording(t, catalog, "SELECT a FROM v1 WHERE EXISTS (SELECT c FROM t2 WHERE c = a) UNION SELECT e FROM OTHER.t3")

	var names []string
	for expression := range Walk(top.Select, IsKind(KindColumn)) {
		names = append(names, expression.ColumnName)
	}
	assert.Equal(t, []string{"a", "a", "c", "c", "a", "e"}, names)

	sequences := slices.Collect(Walk(top.Select, IsKind(KindSequence)))
	assert.Len(t, sequences, 1)
	assert.Len(t, slices.Collect(Walk(top.Select, IsKind(KindSequence))), 1)

	count := 0
	for range Walk(top.Select, IsKind(KindColumn)) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
