// Package sql provides SQL lexing and parsing for ViewDB.
//
// The lexer records the byte offset of every token so callers can splice the
// original text, which is how view definitions get their wildcards frozen.
// Comments (-- and /* */) are skipped; ';' produces a Terminator token with
// an empty value.
//
// # Lexer Usage
//
//	lexer := sql.NewLexer("SELECT * FROM users")
//	for {
//	    token := lexer.NextToken()
//	    if token.Type == sql.EOF {
//	        break
//	    }
//	    fmt.Printf("%d: %s\n", token.Pos, token)
//	}
//
// # Parser Usage
//
//	statement, err := sql.NewParser("CREATE VIEW v AS SELECT * FROM users").Parse()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// View bodies are parsed on their own with ParseQuery.
//
// # Supported Statements
//
//   - SelectStatement (query blocks chained with UNION, EXCEPT, INTERSECT)
//   - CreateViewStatement, AlterViewStatement, DropViewStatement
//   - CreateSchemaStatement, DropSchemaStatement, SetSchemaStatement
//   - CreateTableStatement, DropTableStatement, AlterTableStatement
//   - SetTableReadOnlyStatement
//   - CreateSequenceStatement, DropSequenceStatement
//   - DescribeStatement, ExplainViewStatement
//   - ShowSchemasStatement, ShowTablesStatement, ShowViewsStatement, ShowSequencesStatement
package sql
