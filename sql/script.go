package sql

import "strings"

// SplitStatements splits a script into statements at ';' terminators outside
// literals and comments. Blank statements are dropped; comments stay with the
// statement that follows them.
func SplitStatements(script string) ([]string, error) {
	lexer := NewLexer(script)

	var statements []string
	start := 0
	pending := false
	for {
		token := lexer.NextToken()
		if token.Type == EOF {
			break
		}
		if token.Type != Terminator {
			pending = true
			continue
		}
		if pending {
			statements = append(statements, strings.TrimSpace(script[start:token.Pos]))
		}
		start = token.Pos + 1
		pending = false
	}
	if err := lexer.Err(); err != nil {
		return nil, err
	}
	if pending {
		statements = append(statements, strings.TrimSpace(script[start:]))
	}
	return statements, nil
}
