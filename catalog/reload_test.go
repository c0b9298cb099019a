package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/ViewDB/core"
	"github.com/nickyhof/ViewDB/ps"
	"github.com/nickyhof/ViewDB/view"
)

func TestReloadRestoresViews(t *testing.T) {
	persistence, err := ps.NewMemoryPersistence()
	require.NoError(t, err)

	c, err := Open(persistence, testIdentity)
	require.NoError(t, err)
	session := c.NewSession(testIdentity)

	t1, _, err := session.CreateTable("", "t1", intColumns("a", "b"))
	require.NoError(t, err)
	_, _, err = session.CreateSequence("", "seq", 10, 5)
	require.NoError(t, err)
	// created out of name order so reload has to sort them
	createView(t, session, "z_base", "SELECT * FROM t1")
	createView(t, session, "a_top", "SELECT b FROM z_base")
	createView(t, session, "m_seq", "SELECT NEXT VALUE FOR seq AS n FROM t1")

	_, err = session.AddColumn("", "t1", core.Column{Name: "e", Type: core.IntType})
	require.NoError(t, err)

	reopened, err := Open(persistence, testIdentity)
	require.NoError(t, err)

	table, ok := reopened.Table(core.DefaultSchema, "t1")
	require.True(t, ok)
	assert.Equal(t, t1.Name.ID, table.Name.ID)
	assert.Equal(t, []string{"a", "b", "e"}, columnNames(table))

	base, ok := reopened.View(core.DefaultSchema, "z_base")
	require.True(t, ok)
	assert.Equal(t, "SELECT  t1.a, t1.b  FROM t1", base.Statement())
	assert.Equal(t, []string{"a", "b"}, columnNames(base))
	assert.True(t, base.ReferencesTable(table))

	top, ok := reopened.View(core.DefaultSchema, "a_top")
	require.True(t, ok)
	assert.Equal(t, view.Compiled, top.State())
	assert.True(t, top.ReferencesView(base))
	assert.True(t, top.ReferencesColumn(table, "b"))

	sequence, ok := reopened.Sequence(core.DefaultSchema, "seq")
	require.True(t, ok)
	assert.Equal(t, int64(10), sequence.Start)
	seqView, _ := reopened.View(core.DefaultSchema, "m_seq")
	assert.True(t, seqView.ReferencesSequence(sequence))
}

func TestReloadViewOverJoinedView(t *testing.T) {
	persistence, err := ps.NewMemoryPersistence()
	require.NoError(t, err)
	c, err := Open(persistence, testIdentity)
	require.NoError(t, err)
	session := c.NewSession(testIdentity)

	_, _, err = session.CreateTable("", "t1", intColumns("a", "b"))
	require.NoError(t, err)
	_, _, err = session.CreateTable("", "t2", intColumns("c", "d"))
	require.NoError(t, err)

	for _, definition := range []string{"SELECT * FROM t1 x, t1 y", "SELECT a AS b, * FROM t1"} {
		_, _, err := session.CreateView("", "dup", definition, nil, false)
		require.ErrorIs(t, err, core.ErrAlreadyExists, definition)
	}
	_, ok := c.View(core.DefaultSchema, "dup")
	assert.False(t, ok)

	createView(t, session, "p", "SELECT * FROM t1, t2 WHERE t1.a = t2.c")
	q := createView(t, session, "q", "SELECT * FROM p")

	_, err = session.AddColumn("", "t1", core.Column{Name: "e", Type: core.IntType})
	require.NoError(t, err)

	c.Lock()
	err = c.Reload()
	c.Unlock()
	require.NoError(t, err)

	reloaded, ok := c.View(core.DefaultSchema, "q")
	require.True(t, ok)
	assert.Equal(t, q.Statement(), reloaded.Statement())
	assert.Equal(t, []string{"a", "b", "c", "d"}, columnNames(reloaded))
}

func TestReloadDetectsCycles(t *testing.T) {
	persistence, err := ps.NewMemoryPersistence()
	require.NoError(t, err)
	_, err = Open(persistence, testIdentity)
	require.NoError(t, err)

	batch, err := persistence.BeginBatch()
	require.NoError(t, err)
	require.NoError(t, batch.PutView(core.View{
		Name:          core.NewQualifiedName(core.DefaultSchema, "a"),
		Statement:     "SELECT x FROM b",
		CompileSchema: core.DefaultSchema,
		DependsOn:     []string{"PUBLIC.b"},
	}))
	require.NoError(t, batch.PutView(core.View{
		Name:          core.NewQualifiedName(core.DefaultSchema, "b"),
		Statement:     "SELECT x FROM a",
		CompileSchema: core.DefaultSchema,
		DependsOn:     []string{"PUBLIC.a"},
	}))
	_, err = batch.Commit(testIdentity, "corrupt catalog")
	require.NoError(t, err)

	_, err = Open(persistence, testIdentity)
	require.ErrorIs(t, err, core.ErrCyclicReference)
	assert.Contains(t, err.Error(), "PUBLIC.a, PUBLIC.b")
}

func TestReloadKeepsCatalogOnError(t *testing.T) {
	persistence, err := ps.NewMemoryPersistence()
	require.NoError(t, err)
	c, err := Open(persistence, testIdentity)
	require.NoError(t, err)
	session := c.NewSession(testIdentity)
	_, _, err = session.CreateTable("", "t1", intColumns("a"))
	require.NoError(t, err)

	_, err = persistence.WriteFileDirect(".viewdb/views/PUBLIC/broken.json", []byte(`{"name":{"schema":"PUBLIC","name":"broken"},"statement":"SELECT nope FROM t1","compileSchema":"PUBLIC"}`), testIdentity, "broken view")
	require.NoError(t, err)

	require.Error(t, c.Reload())
	_, ok := c.Table(core.DefaultSchema, "t1")
	assert.True(t, ok)
	_, ok = c.View(core.DefaultSchema, "broken")
	assert.False(t, ok)
}

func TestSortByDependencies(t *testing.T) {
	deps := map[string][]string{
		"s.report":  {"s.summary", "s.base"},
		"s.summary": {"s.base"},
		"s.base":    nil,
		"s.other":   {"s.elsewhere"},
	}
	order, err := sortByDependencies([]string{"s.report", "s.summary", "s.base", "s.other"}, func(name string) []string {
		return deps[name]
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s.base", "s.other", "s.summary", "s.report"}, order)

	deps["s.base"] = []string{"s.report"}
	_, err = sortByDependencies([]string{"s.report", "s.summary", "s.base"}, func(name string) []string {
		return deps[name]
	})
	assert.ErrorIs(t, err, core.ErrCyclicReference)
}
