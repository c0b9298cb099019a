package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/ViewDB/core"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		expected []string
	}{
		{"single without terminator", "CREATE SCHEMA s", []string{"CREATE SCHEMA s"}},
		{"several", "CREATE SCHEMA s;\nSET SCHEMA s;\n", []string{"CREATE SCHEMA s", "SET SCHEMA s"}},
		{"blank statements", ";;CREATE SCHEMA s;;", []string{"CREATE SCHEMA s"}},
		{"terminator in literal", "CREATE VIEW v AS SELECT 'a;b' AS x; DROP VIEW v", []string{"CREATE VIEW v AS SELECT 'a;b' AS x", "DROP VIEW v"}},
		{"terminator in comment", "-- one; two\nCREATE SCHEMA s;", []string{"-- one; two\nCREATE SCHEMA s"}},
		{"trailing comment", "CREATE SCHEMA s; -- done", []string{"CREATE SCHEMA s"}},
		{"empty", "  \n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statements, err := SplitStatements(tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, statements)
		})
	}
}

func TestSplitStatementsUnterminatedLiteral(t *testing.T) {
	_, err := SplitStatements("CREATE VIEW v AS SELECT 'open")
	assert.ErrorIs(t, err, core.ErrParse)
}
