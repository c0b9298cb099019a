package db

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/ViewDB/catalog"
	"github.com/nickyhof/ViewDB/core"
	"github.com/nickyhof/ViewDB/ps"
	"github.com/nickyhof/ViewDB/sql"
	"github.com/nickyhof/ViewDB/view"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

func setupTestEngine(t *testing.T) *Engine {
	t.Helper()
	persistence, err := ps.NewMemoryPersistence()
	require.NoError(t, err)

	c, err := catalog.Open(persistence, testIdentity)
	require.NoError(t, err)
	engine := NewEngine(c.NewSession(testIdentity))

	mustExecute(t, engine, "CREATE TABLE users (id INT PRIMARY KEY, name STRING, age INT)")
	mustExecute(t, engine, "CREATE TABLE orders (order_id INT PRIMARY KEY, user_id INT, total FLOAT)")
	return engine
}

func mustExecute(t *testing.T, engine *Engine, query string) Result {
	t.Helper()
	result, err := engine.Execute(query)
	require.NoError(t, err, query)
	return result
}

func queryData(t *testing.T, engine *Engine, query string) [][]string {
	t.Helper()
	result := mustExecute(t, engine, query)
	require.Equal(t, QueryResultType, result.Type())
	return result.(QueryResult).Data
}

func TestEngineCreateView(t *testing.T) {
	engine := setupTestEngine(t)

	result := mustExecute(t, engine, "CREATE VIEW adults AS SELECT * FROM users WHERE age >= 18;")
	commit := result.(CommitResult)
	assert.Equal(t, 1, commit.ViewsCreated)
	assert.NotEmpty(t, commit.Transaction.Id)
	assert.Equal(t, "Creating view PUBLIC.adults", commit.Transaction.Message)

	v, ok := engine.Catalog().View(core.DefaultSchema, "adults")
	require.True(t, ok)
	assert.Equal(t, "SELECT  users.id, users.name, users.age  FROM users WHERE age >= 18", v.Statement())

	data := queryData(t, engine, "DESCRIBE users")
	assert.Equal(t, []string{"id", "INT", "YES"}, data[0])

	data = queryData(t, engine, "DESCRIBE adults")
	assert.Equal(t, [][]string{{"id", "INT", "NO"}, {"name", "STRING", "NO"}, {"age", "INT", "NO"}}, data)

	result = mustExecute(t, engine, "CREATE OR REPLACE VIEW adults (user_name) AS SELECT name FROM users WHERE age >= 21")
	assert.Equal(t, 1, result.(CommitResult).ViewsReplaced)
	data = queryData(t, engine, "DESCRIBE adults")
	assert.Equal(t, [][]string{{"user_name", "STRING", "NO"}}, data)
}

func TestEngineRejectsQueries(t *testing.T) {
	engine := setupTestEngine(t)

	_, err := engine.Execute("SELECT * FROM users")
	assert.ErrorIs(t, err, core.ErrUnsupported)

	_, err = engine.Execute("SELEC * FROM users")
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestEngineShow(t *testing.T) {
	engine := setupTestEngine(t)
	mustExecute(t, engine, "CREATE SCHEMA sales")
	mustExecute(t, engine, "CREATE SEQUENCE order_ids START WITH 100 INCREMENT BY 10")
	mustExecute(t, engine, "CREATE VIEW big_orders AS SELECT order_id, total FROM orders WHERE total > 100")
	mustExecute(t, engine, "CREATE VIEW big_order_ids AS SELECT order_id FROM big_orders")

	assert.Equal(t, [][]string{{core.InformationSchema}, {core.DefaultSchema}, {"sales"}}, queryData(t, engine, "SHOW SCHEMAS"))
	assert.Equal(t, [][]string{{"orders", "3", "false"}, {"users", "3", "false"}}, queryData(t, engine, "SHOW TABLES"))
	assert.Empty(t, queryData(t, engine, "SHOW TABLES IN sales"))
	assert.Equal(t, [][]string{{"order_ids", "100", "10"}}, queryData(t, engine, "SHOW SEQUENCES"))

	views := queryData(t, engine, "SHOW VIEWS IN PUBLIC")
	require.Len(t, views, 2)
	assert.Equal(t, []string{"big_order_ids", view.Compiled.String(), "PUBLIC.big_orders", "SELECT order_id FROM big_orders"}, views[0])
	assert.Equal(t, "big_orders", views[1][0])
	assert.Empty(t, views[1][2])

	_, err := engine.Execute("SHOW VIEWS IN nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = engine.Execute("DESCRIBE nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestEngineExplainView(t *testing.T) {
	engine := setupTestEngine(t)
	mustExecute(t, engine, "CREATE VIEW named AS SELECT id, name FROM users")
	mustExecute(t, engine, "CREATE VIEW report AS SELECT n.name FROM named n WHERE n.id IN (SELECT user_id FROM orders)")

	data := queryData(t, engine, "EXPLAIN VIEW report")
	require.Len(t, data, 3)
	assert.Equal(t, []string{"0", "1", "PUBLIC.named", "id, name"}, data[0])
	assert.Equal(t, []string{"1", "1", "subquery", "user_id"}, data[1])
	assert.Equal(t, []string{"2", "0", "PUBLIC.report", "name"}, data[2])

	_, err := engine.Execute("EXPLAIN VIEW users")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestEngineDependentObjects(t *testing.T) {
	engine := setupTestEngine(t)
	mustExecute(t, engine, "CREATE VIEW spend AS SELECT u.name, o.total FROM users u JOIN orders o ON u.id = o.user_id")

	tests := []struct {
		name  string
		query string
		err   error
	}{
		{"drop read table", "DROP TABLE orders", core.ErrDependentObjects},
		{"drop read column", "ALTER TABLE users DROP COLUMN name", core.ErrDependentObjects},
		{"drop join column", "ALTER TABLE orders DROP user_id", core.ErrDependentObjects},
		{"rename read column", "ALTER TABLE users RENAME COLUMN id TO user_id", core.ErrDependentObjects},
		{"drop table through view", "DROP TABLE spend", core.ErrNotATable},
		{"read only view", "SET TABLE spend READONLY TRUE", core.ErrNotATable},
		{"duplicate view", "CREATE VIEW spend AS SELECT 1 AS one", core.ErrAlreadyExists},
		{"system schema", "CREATE VIEW catalog_tables AS SELECT TABLE_NAME FROM INFORMATION_SCHEMA.SYSTEM_TABLES", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Execute(tt.query)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}

	mustExecute(t, engine, "ALTER TABLE users DROP COLUMN age")
	mustExecute(t, engine, "DROP VIEW spend")
	result := mustExecute(t, engine, "DROP TABLE orders")
	assert.Equal(t, 1, result.(CommitResult).TablesDeleted)

	result = mustExecute(t, engine, "DROP VIEW IF EXISTS spend")
	assert.Equal(t, 0, result.(CommitResult).ViewsDeleted)
	assert.Empty(t, result.(CommitResult).Transaction.Id)
}

func TestEngineAddColumnKeepsViewShape(t *testing.T) {
	engine := setupTestEngine(t)
	mustExecute(t, engine, "CREATE VIEW everyone AS SELECT * FROM users")

	result := mustExecute(t, engine, "ALTER TABLE users ADD COLUMN email STRING")
	assert.Equal(t, 1, result.(CommitResult).TablesAltered)

	assert.Len(t, queryData(t, engine, "DESCRIBE users"), 4)
	assert.Len(t, queryData(t, engine, "DESCRIBE everyone"), 3)

	// a column that would make the view ambiguous is refused
	mustExecute(t, engine, "CREATE VIEW joined AS SELECT name, total FROM users, orders")
	_, err := engine.Execute("ALTER TABLE orders ADD name STRING")
	assert.ErrorIs(t, err, core.ErrParse)
	assert.Len(t, queryData(t, engine, "DESCRIBE orders"), 3)
}

func TestEngineAlterViewCycle(t *testing.T) {
	engine := setupTestEngine(t)
	mustExecute(t, engine, "CREATE VIEW v1 AS SELECT id FROM users")
	mustExecute(t, engine, "CREATE VIEW v2 AS SELECT id FROM v1")

	_, err := engine.Execute("ALTER VIEW v1 AS SELECT id FROM v2")
	require.ErrorIs(t, err, core.ErrCyclicReference)
	assert.Contains(t, err.Error(), "PUBLIC.v1 -> PUBLIC.v2 -> PUBLIC.v1")

	result := mustExecute(t, engine, "ALTER VIEW v1 AS SELECT id FROM users WHERE id > 10")
	assert.Equal(t, 1, result.(CommitResult).ViewsReplaced)
}

func TestEngineSchemas(t *testing.T) {
	engine := setupTestEngine(t)

	result := mustExecute(t, engine, "CREATE DATABASE sales")
	assert.Equal(t, 1, result.(CommitResult).SchemasCreated)
	mustExecute(t, engine, "SET SCHEMA sales")
	assert.Equal(t, "sales", engine.CurrentSchema())

	mustExecute(t, engine, "CREATE TABLE invoices (id INT, amount FLOAT)")
	mustExecute(t, engine, "CREATE VIEW large AS SELECT id FROM invoices WHERE amount > 1000")
	_, err := engine.Execute("CREATE VIEW mixed AS SELECT id FROM PUBLIC.users")
	assert.ErrorIs(t, err, core.ErrSchemaReference)

	_, err = engine.Execute("DROP SCHEMA sales")
	assert.ErrorIs(t, err, core.ErrDependentObjects)

	mustExecute(t, engine, "DROP VIEW large")
	mustExecute(t, engine, "DROP TABLE invoices")
	result = mustExecute(t, engine, "DROP SCHEMA sales")
	assert.Equal(t, 1, result.(CommitResult).SchemasDeleted)
	assert.Equal(t, core.DefaultSchema, engine.CurrentSchema())
}

func TestEngineConcurrentSetSchema(t *testing.T) {
	engine := setupTestEngine(t)
	mustExecute(t, engine, "CREATE SCHEMA sales")
	assert.False(t, readOnly(sql.SetSchemaStatementType))
	assert.True(t, readOnly(sql.ShowViewsStatementType))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			schema := core.DefaultSchema
			if i%2 == 0 {
				schema = "sales"
			}
			for j := 0; j < 20; j++ {
				_, err := engine.Execute("SET SCHEMA " + schema)
				assert.NoError(t, err)
				_, err = engine.Execute("SHOW VIEWS")
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
	assert.Contains(t, []string{core.DefaultSchema, "sales"}, engine.CurrentSchema())
}

func TestEngineRejectsDuplicateViewColumns(t *testing.T) {
	engine := setupTestEngine(t)

	for _, query := range []string{
		"CREATE VIEW twice AS SELECT * FROM users a, users b",
		"CREATE VIEW renamed AS SELECT name AS id, * FROM users",
		"CREATE VIEW aliased (x, x) AS SELECT id, name FROM users",
	} {
		_, err := engine.Execute(query)
		assert.ErrorIs(t, err, core.ErrAlreadyExists, query)
	}
	assert.Empty(t, queryData(t, engine, "SHOW VIEWS"))
}

func TestExecuteScript(t *testing.T) {
	engine := setupTestEngine(t)

	results, err := engine.ExecuteScript(`
		CREATE SEQUENCE ids;
		-- users with their next id
		CREATE VIEW numbered AS SELECT NEXT VALUE FOR ids AS next_id, name FROM users;
		DROP SEQUENCE ids;
		CREATE VIEW never AS SELECT 1 AS one;
	`)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDependentObjects)
	assert.Contains(t, err.Error(), "statement 3")
	assert.Len(t, results, 2)

	_, ok := engine.Catalog().View(core.DefaultSchema, "never")
	assert.False(t, ok)
}

func TestResultWrite(t *testing.T) {
	var out bytes.Buffer
	QueryResult{
		Columns:     []string{"name", "state"},
		Data:        [][]string{{"v", "COMPILED"}},
		RecordsRead: 1,
	}.Write(&out)
	assert.Contains(t, out.String(), "| name | state    |")
	assert.Contains(t, out.String(), "| v    | COMPILED |")
	assert.Contains(t, out.String(), "1 rows (<1ms)")

	out.Reset()
	CommitResult{ViewsCreated: 1, TablesAltered: 2}.Write(&out)
	assert.Equal(t, "2 table(s) altered, 1 view(s) created (<1ms)\n", out.String())

	out.Reset()
	CommitResult{}.Write(&out)
	assert.Equal(t, "OK (<1ms)\n", out.String())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs     float64
		expected string
	}{
		{0.0005, "<1ms"},
		{0.005, "5ms"},
		{0.25, "250ms"},
		{2.5, "2.5s"},
		{42, "42s"},
		{120, "2m"},
		{125, "2m5s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatDuration(tt.secs))
	}
}
