package view

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/ViewDB/bind"
	"github.com/nickyhof/ViewDB/core"
)

type testSession struct {
	schema    string
	relations map[string]core.Relation
	sequences map[string]*core.Sequence
}

func newTestSession() *testSession {
	session := &testSession{
		schema:    core.DefaultSchema,
		relations: map[string]core.Relation{},
		sequences: map[string]*core.Sequence{},
	}
	session.table(core.DefaultSchema, "t1", "a", "b")
	session.table(core.DefaultSchema, "t2", "c", "d")
	session.table("OTHER", "t3", "e")
	session.table(core.InformationSchema, "SYSTEM_TABLES", "TABLE_NAME")
	session.sequence(core.DefaultSchema, "seq")
	return session
}

func (s *testSession) table(schema, name string, columns ...string) *core.Table {
	table := &core.Table{Name: core.NewQualifiedName(schema, name)}
	for _, column := range columns {
		table.Columns = append(table.Columns, core.Column{Name: column, Type: core.IntType})
	}
	s.relations[core.Key(schema, name)] = table
	return table
}

func (s *testSession) sequence(schema, name string) *core.Sequence {
	sequence := &core.Sequence{Name: core.NewQualifiedName(schema, name), Start: 1, Increment: 1}
	s.sequences[core.Key(schema, name)] = sequence
	return sequence
}

func (s *testSession) lookup(schema, name string) core.Relation {
	return s.relations[core.Key(schema, name)]
}

// define compiles a view and installs it so later views can reference it.
func (s *testSession) define(t *testing.T, name, definition string, aliases ...string) *View {
	t.Helper()
	v, err := New(s, core.NewQualifiedName(s.schema, name), definition, aliases)
	require.NoError(t, err)
	s.relations[core.Key(s.schema, name)] = v
	return v
}

func (s *testSession) ResolveRelation(schema, name string) (core.Relation, error) {
	if relation, ok := s.relations[core.Key(schema, name)]; ok {
		return relation, nil
	}
	return nil, core.Errorf(core.CodeNotFound, "table %s.%s not found", schema, name)
}

func (s *testSession) ResolveSequence(schema, name string) (*core.Sequence, error) {
	if sequence, ok := s.sequences[core.Key(schema, name)]; ok {
		return sequence, nil
	}
	return nil, core.Errorf(core.CodeNotFound, "sequence %s.%s not found", schema, name)
}

func (s *testSession) CurrentSchema() string {
	return s.schema
}

func (s *testSession) IsSystemSchema(name string) bool {
	return core.IsSystemSchema(name)
}

func columnNames(columns []core.Column) []string {
	names := make([]string, len(columns))
	for i, column := range columns {
		names[i] = column.Name
	}
	return names
}

func TestTrimStatement(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"trailing terminator and comment", "SELECT * FROM T;\n-- trailing comment\n", "SELECT * FROM T"},
		{"surrounding blanks", "  SELECT 1  \n", "SELECT 1"},
		{"empty string literal", "SELECT '' FROM t ;;", "SELECT '' FROM t"},
		{"inner comment kept", "SELECT a /* c */ FROM t -- x", "SELECT a /* c */ FROM t"},
		{"second statement dropped", "SELECT 1;SELECT 2", "SELECT 1"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trimmed, err := TrimStatement(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, trimmed)
		})
	}
}

func TestTrimStatementPropagatesLexerErrors(t *testing.T) {
	for _, input := range []string{"SELECT 'abc", "SELECT 1 /* open"} {
		_, err := TrimStatement(input)
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrParse))
	}
}

func TestCompileFreezesWildcards(t *testing.T) {
	session := newTestSession()
	v := session.define(t, "v", "SELECT * FROM t1, t2;")

	assert.Equal(t, Compiled, v.State())
	assert.Equal(t, "SELECT  t1.a, t1.b, t2.c, t2.d  FROM t1, t2", v.Statement())
	assert.Equal(t, []string{"a", "b", "c", "d"}, columnNames(v.RelationColumns()))

	t1 := session.lookup(core.DefaultSchema, "t1").(*core.Table)
	t1.Columns = append(t1.Columns, core.Column{Name: "e", Type: core.IntType})

	require.NoError(t, v.Compile(session))
	assert.Equal(t, "SELECT  t1.a, t1.b, t2.c, t2.d  FROM t1, t2", v.Statement())
	assert.Equal(t, []string{"a", "b", "c", "d"}, columnNames(v.RelationColumns()))

	restored, err := Restore(session, v.Record())
	require.NoError(t, err)
	assert.Equal(t, v.Statement(), restored.Statement())
	assert.Equal(t, columnNames(v.RelationColumns()), columnNames(restored.RelationColumns()))
}

func TestCompileRejectsDuplicateColumns(t *testing.T) {
	session := newTestSession()

	for _, definition := range []string{
		"SELECT * FROM t1 x, t1 y",
		"SELECT a AS b, * FROM t1",
		"SELECT x.a, y.a FROM t1 x, t1 y",
	} {
		_, err := New(session, core.NewQualifiedName(core.DefaultSchema, "p"), definition, nil)
		require.Error(t, err, definition)
		assert.True(t, errors.Is(err, core.ErrAlreadyExists), definition)
		assert.Contains(t, err.Error(), "specified twice")
	}

	_, err := New(session, core.NewQualifiedName(core.DefaultSchema, "p"), "SELECT a, b FROM t1", []string{"x", "x"})
	assert.True(t, errors.Is(err, core.ErrAlreadyExists))

	v := session.define(t, "p", "SELECT x.a, y.a AS a2 FROM t1 x, t1 y")
	assert.Equal(t, []string{"a", "a2"}, columnNames(v.RelationColumns()))
}

func TestFrozenViewOverJoinedViewRestores(t *testing.T) {
	session := newTestSession()
	session.define(t, "p", "SELECT * FROM t1, t2 WHERE t1.a = t2.c")
	q := session.define(t, "q", "SELECT * FROM p WHERE b > 0")
	assert.Equal(t, "SELECT  p.a, p.b, p.c, p.d  FROM p WHERE b > 0", q.Statement())

	restored, err := Restore(session, q.Record())
	require.NoError(t, err)
	assert.Equal(t, q.Statement(), restored.Statement())
	assert.Equal(t, []string{"a", "b", "c", "d"}, columnNames(restored.RelationColumns()))
	assert.Equal(t, []string{"PUBLIC.p"}, restored.DependsOn())
}

func TestCompileNestedWildcards(t *testing.T) {
	session := newTestSession()
	v := session.define(t, "v", "SELECT * FROM (SELECT * FROM t1) d WHERE EXISTS (SELECT * FROM t2 WHERE t2.c = d.a) UNION SELECT * FROM t2")

	assert.Equal(t,
		"SELECT  d.a, d.b  FROM (SELECT  t1.a, t1.b  FROM t1) d WHERE EXISTS (SELECT  t2.c, t2.d  FROM t2 WHERE t2.c = d.a) UNION SELECT  t2.c, t2.d  FROM t2",
		v.Statement())

	subqueries := v.SubQueries()
	require.Len(t, subqueries, 3)
	for i, subquery := range subqueries {
		assert.Equal(t, i, subquery.Order)
		for branch := range subquery.Select.Branches() {
			assert.Zero(t, branch.PendingWildcards())
		}
	}
	assert.Same(t, v.Select(), subqueries[2].Select)
	assert.Same(t, v.Select().Filters[0].SubQuery, subqueries[0])

	statement := v.Statement()
	require.NoError(t, v.Compile(session))
	assert.Equal(t, statement, v.Statement())
}

func TestCompileKeepsCountStar(t *testing.T) {
	session := newTestSession()
	v := session.define(t, "v", "SELECT COUNT(*) AS n, x.* FROM t1 x")

	assert.Equal(t, "SELECT COUNT(*) AS n,  x.a, x.b  FROM t1 x", v.Statement())
	assert.Equal(t, []string{"n", "a", "b"}, columnNames(v.RelationColumns()))
}

func TestWildcardSpliceSearchesForFirstAsterisk(t *testing.T) {
	statement := "SELECT t1. /* note * */ * FROM t1"
	builder := wildcardBuilder{7: "t1.a, t1.b"}
	assert.Equal(t, "SELECT  t1.a, t1.b  note * */ * FROM t1", builder.apply(statement))

	assert.Equal(t, "SELECT 1", wildcardBuilder{}.apply("SELECT 1"))
	assert.Equal(t, "SELECT COUNT(*) FROM t", wildcardBuilder{13: ""}.apply("SELECT COUNT(*) FROM t"))
}

func TestExpandWildcardsDrainsOnce(t *testing.T) {
	session := newTestSession()
	top, err := bind.Bind(session, "SELECT * FROM t1 UNION SELECT * FROM t1", bind.Options{Schema: "PUBLIC", RecordWildcards: true})
	require.NoError(t, err)

	subqueries := orderSubqueries(top)
	expanded := expandWildcards("SELECT * FROM t1 UNION SELECT * FROM t1", subqueries)
	assert.Equal(t, "SELECT  t1.a, t1.b  FROM t1 UNION SELECT  t1.a, t1.b  FROM t1", expanded)

	again := expandWildcards("SELECT * FROM t1 UNION SELECT * FROM t1", subqueries)
	assert.Equal(t, "SELECT * FROM t1 UNION SELECT * FROM t1", again)
}

func TestOrderSubqueriesTopIsLast(t *testing.T) {
	session := newTestSession()
	session.define(t, "inner_v", "SELECT a FROM t1 WHERE a IN (SELECT c FROM t2)")

	definitions := []string{
		"SELECT a FROM t1",
		"SELECT a FROM inner_v",
		"SELECT * FROM (SELECT * FROM (SELECT a FROM inner_v) x) y",
		"SELECT a FROM t1 UNION SELECT c FROM (SELECT c FROM t2) z",
		"SELECT (SELECT MAX(c) FROM t2 WHERE c > (SELECT MIN(a) FROM t1)) AS m FROM t1",
	}

	for _, definition := range definitions {
		v, err := New(session, core.NewQualifiedName("PUBLIC", "candidate"), definition, nil)
		require.NoError(t, err, definition)
		subqueries := v.SubQueries()
		require.NotEmpty(t, subqueries)
		last := subqueries[len(subqueries)-1]
		assert.Same(t, v.Select(), last.Select, definition)
		assert.Equal(t, 0, last.Level)

		position := make(map[*bind.SubQuery]int)
		for i, subquery := range subqueries {
			position[subquery] = i
		}
		for _, subquery := range subqueries {
			for branch := range subquery.Select.Branches() {
				for _, child := range branch.Children() {
					assert.Less(t, position[child], position[subquery], definition)
				}
			}
		}
	}
}

func TestSchemaValidation(t *testing.T) {
	session := newTestSession()

	_, err := New(session, core.NewQualifiedName("PUBLIC", "v"), "SELECT * FROM OTHER.t3", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSchemaReference), "got %v", err)

	_, err = New(session, core.NewQualifiedName("PUBLIC", "v"), "SELECT a FROM t1 UNION SELECT e FROM OTHER.t3", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSchemaReference))

	v, err := New(session, core.NewQualifiedName("PUBLIC", "v"), "SELECT t1.a, s.TABLE_NAME FROM t1, INFORMATION_SCHEMA.SYSTEM_TABLES s", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{core.InformationSchema, "PUBLIC"}, referencedSchemas(v.SubQueries()))

	session.schema = "OTHER"
	_, err = New(session, core.NewQualifiedName("OTHER", "v"), "SELECT * FROM t3", nil)
	require.NoError(t, err)
}

func TestCyclicReferences(t *testing.T) {
	session := newTestSession()
	v1 := session.define(t, "v1", "SELECT a FROM t1")
	session.define(t, "v2", "SELECT a FROM v1")

	_, err := New(session, v1.RelationName(), "SELECT a FROM v2", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCyclicReference), "got %v", err)
	assert.Contains(t, err.Error(), "PUBLIC.v1 -> PUBLIC.v2 -> PUBLIC.v1")

	_, err = New(session, core.NewQualifiedName("PUBLIC", "v3"), "SELECT * FROM v3", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCyclicReference))
}

func TestColumnAliases(t *testing.T) {
	session := newTestSession()

	v := session.define(t, "v", "SELECT a, b FROM t1", "x", "y")
	assert.Equal(t, []string{"x", "y"}, columnNames(v.RelationColumns()))
	assert.Equal(t, []string{"x", "y"}, v.ColumnAliases())

	_, err := New(session, core.NewQualifiedName("PUBLIC", "w"), "SELECT a, b FROM t1", []string{"x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrColumnCountMismatch))
}

func TestRecompileMismatch(t *testing.T) {
	session := newTestSession()

	record := core.View{
		Name:          core.NewQualifiedName("PUBLIC", "v"),
		Statement:     "SELECT a, b FROM t1",
		Columns:       []core.Column{{Name: "a", Type: core.IntType}},
		CompileSchema: "PUBLIC",
	}
	_, err := Restore(session, record)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrColumnCountMismatch))

	record.Columns = []core.Column{{Name: "a"}, {Name: "z"}}
	_, err = Restore(session, record)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrColumnCountMismatch))
}

func TestFailedCompileKeepsPriorTree(t *testing.T) {
	session := newTestSession()
	v := session.define(t, "v", "SELECT * FROM t1")
	statement := v.Statement()
	selectTree := v.Select()

	t1 := session.lookup(core.DefaultSchema, "t1").(*core.Table)
	t1.Columns = t1.Columns[:1]

	err := v.Compile(session)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	assert.Equal(t, Failed, v.State())
	assert.Equal(t, statement, v.Statement())
	assert.Same(t, selectTree, v.Select())
}

func TestDependencyIndex(t *testing.T) {
	session := newTestSession()
	other := session.sequence(core.DefaultSchema, "other_seq")
	seq := session.sequences[core.Key("PUBLIC", "seq")]
	t1 := session.lookup("PUBLIC", "t1")
	t2 := session.lookup("PUBLIC", "t2")
	t3 := session.lookup("OTHER", "t3")

	v1 := session.define(t, "v1", "SELECT a, NEXT VALUE FOR seq AS n FROM t1")
	v2 := session.define(t, "v2", "SELECT * FROM v1 WHERE a IN (SELECT c FROM t2)")

	assert.True(t, v2.ReferencesView(v1))
	assert.False(t, v1.ReferencesView(v2))
	assert.False(t, v2.ReferencesView(v2))

	assert.True(t, v2.ReferencesTable(t1))
	assert.True(t, v2.ReferencesTable(t2))
	assert.False(t, v2.ReferencesTable(t3))
	assert.True(t, v2.ReferencesTable(v1))

	assert.True(t, v2.ReferencesColumn(t2, "c"))
	assert.False(t, v2.ReferencesColumn(t2, "d"))
	assert.True(t, v2.ReferencesColumn(t1, "a"))
	assert.False(t, v2.ReferencesColumn(t1, "b"))
	assert.False(t, v2.ReferencesColumn(t3, "e"))

	assert.True(t, v1.ReferencesSequence(seq))
	assert.True(t, v2.ReferencesSequence(seq))
	assert.False(t, v1.ReferencesSequence(other))

	assert.Equal(t, []string{"PUBLIC.v1"}, v2.DependsOn())
	assert.Empty(t, v1.DependsOn())

	for _, table := range []core.Relation{t1, t2, t3, v1} {
		for _, column := range []string{"a", "b", "c", "d", "e", "n"} {
			if v2.ReferencesColumn(table, column) {
				assert.True(t, v2.ReferencesTable(table))
			}
		}
	}
}

func TestUncompiledViewHasNoReferences(t *testing.T) {
	session := newTestSession()
	t1 := session.lookup("PUBLIC", "t1")
	v := &View{}

	assert.False(t, v.ReferencesTable(t1))
	assert.False(t, v.ReferencesColumn(t1, "a"))
	assert.False(t, v.ReferencesSequence(session.sequences[core.Key("PUBLIC", "seq")]))
	assert.False(t, v.ReferencesView(session.define(t, "v", "SELECT a FROM t1")))
	assert.Nil(t, v.Select())
	assert.Equal(t, Uncompiled, v.State())
}

func TestSetReadOnly(t *testing.T) {
	v := newTestSession().define(t, "v", "SELECT a FROM t1")
	err := v.SetReadOnly(true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNotATable))
	assert.Equal(t, core.ViewRelation, v.RelationKind())
}
