package view

import (
	"strings"

	"github.com/nickyhof/ViewDB/sql"
)

// TrimStatement cuts a view definition at the end of its last token,
// dropping a trailing ';', comments and blank content.
func TrimStatement(s string) (string, error) {
	lexer := sql.NewLexer(s)

	var position int
	for {
		position = lexer.Offset()
		token := lexer.NextToken()
		if err := lexer.Err(); err != nil {
			return "", err
		}
		if token.Value == "" && !token.IsValue() {
			break
		}
	}
	return strings.TrimSpace(s[:position]), nil
}
