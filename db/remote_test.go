package db

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/ViewDB/catalog"
	"github.com/nickyhof/ViewDB/core"
)

func setupDumpEngine(t *testing.T) *Engine {
	t.Helper()
	engine := setupTestEngine(t)
	mustExecute(t, engine, "CREATE SCHEMA sales")
	mustExecute(t, engine, "CREATE TABLE sales.invoices (id INT PRIMARY KEY, amount FLOAT)")
	mustExecute(t, engine, "SET TABLE sales.invoices READONLY TRUE")
	mustExecute(t, engine, "CREATE SEQUENCE invoice_ids START WITH -5 INCREMENT BY 2")
	mustExecute(t, engine, "CREATE VIEW sales.large AS SELECT * FROM invoices WHERE amount > 1000")
	mustExecute(t, engine, "CREATE VIEW z_base AS SELECT * FROM users")
	mustExecute(t, engine, "CREATE VIEW a_top (who) AS SELECT name FROM z_base")
	return engine
}

func newEmptyEngine(t *testing.T) *Engine {
	t.Helper()
	c, err := catalog.Open(nil, testIdentity)
	require.NoError(t, err)
	return NewEngine(c.NewSession(testIdentity))
}

func TestDump(t *testing.T) {
	engine := setupDumpEngine(t)

	script, err := engine.Dump()
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE PUBLIC.orders (order_id INT PRIMARY KEY, user_id INT, total FLOAT);
CREATE TABLE PUBLIC.users (id INT PRIMARY KEY, name STRING, age INT);
CREATE SEQUENCE PUBLIC.invoice_ids START WITH -5 INCREMENT BY 2;
CREATE SCHEMA sales;
CREATE TABLE sales.invoices (id INT PRIMARY KEY, amount FLOAT);
SET TABLE sales.invoices READONLY TRUE;
CREATE VIEW PUBLIC.z_base AS SELECT  users.id, users.name, users.age  FROM users;
CREATE VIEW PUBLIC.a_top (who) AS SELECT name FROM z_base;
CREATE VIEW sales.large AS SELECT  invoices.id, invoices.amount  FROM invoices WHERE amount > 1000;
`, script)
}

func TestDumpRoundTrip(t *testing.T) {
	engine := setupDumpEngine(t)
	script, err := engine.Dump()
	require.NoError(t, err)

	restored := newEmptyEngine(t)
	results, err := restored.ExecuteScript(script)
	require.NoError(t, err)
	assert.Len(t, results, 9)

	again, err := restored.Dump()
	require.NoError(t, err)
	assert.Equal(t, script, again)

	top, ok := restored.Catalog().View(core.DefaultSchema, "a_top")
	require.True(t, ok)
	base, _ := restored.Catalog().View(core.DefaultSchema, "z_base")
	assert.True(t, top.ReferencesView(base))
	assert.Equal(t, []string{"who"}, top.ColumnAliases())
}

func TestExportImportLocal(t *testing.T) {
	engine := setupDumpEngine(t)
	path := filepath.Join(t.TempDir(), "catalog.sql")

	n, err := engine.Export(context.Background(), path, nil)
	require.NoError(t, err)
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, written, n)

	restored := newEmptyEngine(t)
	_, err = restored.Import(context.Background(), "file://"+path, nil)
	require.NoError(t, err)
	_, ok := restored.Catalog().View("sales", "large")
	assert.True(t, ok)

	// importing twice collides with the objects already there
	results, err := restored.Import(context.Background(), path, nil)
	assert.ErrorIs(t, err, core.ErrAlreadyExists)
	assert.Empty(t, results)
}

func TestImportHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalog.sql" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "CREATE TABLE t (a INT);\nCREATE VIEW v AS SELECT * FROM t;\n")
	}))
	defer server.Close()

	engine := newEmptyEngine(t)
	results, err := engine.Import(context.Background(), server.URL+"/catalog.sql", nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	v, ok := engine.Catalog().View(core.DefaultSchema, "v")
	require.True(t, ok)
	assert.Equal(t, "SELECT  t.a  FROM t", v.Statement())

	_, err = engine.Import(context.Background(), server.URL+"/missing.sql", nil)
	assert.ErrorContains(t, err, "status 404")

	_, err = engine.Export(context.Background(), server.URL+"/catalog.sql", nil)
	assert.ErrorContains(t, err, "does not support writing")
}

func TestDetectScheme(t *testing.T) {
	tests := []struct {
		path     string
		expected urlScheme
	}{
		{"s3://bucket/key.sql", schemeS3},
		{"S3://bucket/key.sql", schemeS3},
		{"https://example.com/a.sql", schemeHTTPS},
		{"http://example.com/a.sql", schemeHTTP},
		{"file:///tmp/a.sql", schemeFile},
		{"/tmp/a.sql", schemeLocal},
		{"a.sql", schemeLocal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, detectScheme(tt.path), tt.path)
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://catalogs/prod/views.sql")
	require.NoError(t, err)
	assert.Equal(t, "catalogs", bucket)
	assert.Equal(t, "prod/views.sql", key)

	for _, url := range []string{"s3://bucket", "s3://bucket/", "s3:///key"} {
		_, _, err := parseS3URL(url)
		assert.Error(t, err, url)
	}
}
