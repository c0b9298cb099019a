package db

import (
	"fmt"
	"strings"

	"github.com/nickyhof/ViewDB/core"
	"github.com/nickyhof/ViewDB/sql"
)

// qualified renders schema.name as one identifier token, quoting the whole
// name when either part cannot be written bare.
func qualified(name *core.QualifiedName) string {
	if sql.QuoteIdentifier(name.Schema) == name.Schema && sql.QuoteIdentifier(name.Name) == name.Name {
		return name.Schema + "." + name.Name
	}
	return `"` + name.String() + `"`
}

// Dump renders the user objects of the catalog as a DDL script that
// recreates them when executed against a fresh catalog. Views are written
// with their expanded statements, each after the views it reads.
func (engine *Engine) Dump() (string, error) {
	c := engine.Catalog()
	c.RLock()
	defer c.RUnlock()

	var script strings.Builder
	for _, schema := range c.Schemas() {
		if core.IsSystemSchema(schema) {
			continue
		}
		if schema != core.DefaultSchema {
			fmt.Fprintf(&script, "CREATE SCHEMA %s;\n", sql.QuoteIdentifier(schema))
		}

		for _, table := range c.Tables(schema) {
			columns := make([]string, len(table.Columns))
			for i, column := range table.Columns {
				columns[i] = sql.QuoteIdentifier(column.Name) + " " + column.Type.String()
				if column.PrimaryKey {
					columns[i] += " PRIMARY KEY"
				}
			}
			fmt.Fprintf(&script, "CREATE TABLE %s (%s);\n", qualified(table.Name), strings.Join(columns, ", "))
			if table.ReadOnly {
				fmt.Fprintf(&script, "SET TABLE %s READONLY TRUE;\n", qualified(table.Name))
			}
		}

		for _, sequence := range c.Sequences(schema) {
			fmt.Fprintf(&script, "CREATE SEQUENCE %s START WITH %d INCREMENT BY %d;\n", qualified(sequence.Name), sequence.Start, sequence.Increment)
		}
	}

	views, err := c.ViewsInDependencyOrder("")
	if err != nil {
		return "", err
	}
	for _, v := range views {
		aliases := ""
		if columnAliases := v.ColumnAliases(); len(columnAliases) > 0 {
			quoted := make([]string, len(columnAliases))
			for i, alias := range columnAliases {
				quoted[i] = sql.QuoteIdentifier(alias)
			}
			aliases = " (" + strings.Join(quoted, ", ") + ")"
		}
		fmt.Fprintf(&script, "CREATE VIEW %s%s AS %s;\n", qualified(v.RelationName()), aliases, v.Statement())
	}
	return script.String(), nil
}
