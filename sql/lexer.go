package sql

import (
	"github.com/nickyhof/ViewDB/core"
)

type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

type TokenType int

const (
	Identifier TokenType = iota
	String
	Int
	Float
	Wildcard
	Comma
	ParenOpen
	ParenClose
	Terminator
	Plus
	Minus
	Slash
	Concat
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	PrimaryKey
	And
	Or
	Not
	Is
	Null
	Like
	In
	Between
	Exists
	True
	False
	Select
	From
	Where
	Group
	Having
	Order
	By
	Asc
	Desc
	Limit
	Offset
	Distinct
	All
	Union
	Except
	Intersect
	As
	Join
	Inner
	Left
	Right
	Full
	Outer
	Cross
	On
	Next
	Value
	For
	Create
	Drop
	Alter
	Add
	Column
	Rename
	To
	Replace
	If
	Set
	TableIdentifier
	TablesIdentifier
	ViewIdentifier
	ViewsIdentifier
	SchemaIdentifier
	SchemasIdentifier
	DatabaseIdentifier
	SequenceIdentifier
	SequencesIdentifier
	Start
	With
	Increment
	ReadOnly
	Describe
	Show
	Explain
	EOF
	Unknown
)

var tokenNames = map[TokenType]string{
	Identifier:          "Identifier",
	String:              "String",
	Int:                 "Int",
	Float:               "Float",
	Wildcard:            "Wildcard",
	Comma:               "Comma",
	ParenOpen:           "ParenOpen",
	ParenClose:          "ParenClose",
	Terminator:          "Terminator",
	Plus:                "Plus",
	Minus:               "Minus",
	Slash:               "Slash",
	Concat:              "Concat",
	Equals:              "Equals",
	NotEquals:           "NotEquals",
	LessThan:            "LessThan",
	GreaterThan:         "GreaterThan",
	LessThanOrEqual:     "LessThanOrEqual",
	GreaterThanOrEqual:  "GreaterThanOrEqual",
	PrimaryKey:          "PrimaryKey",
	TableIdentifier:     "TableIdentifier",
	TablesIdentifier:    "TablesIdentifier",
	ViewIdentifier:      "ViewIdentifier",
	ViewsIdentifier:     "ViewsIdentifier",
	SchemaIdentifier:    "SchemaIdentifier",
	SchemasIdentifier:   "SchemasIdentifier",
	DatabaseIdentifier:  "DatabaseIdentifier",
	SequenceIdentifier:  "SequenceIdentifier",
	SequencesIdentifier: "SequencesIdentifier",
	EOF:                 "EOF",
}

var keywords = map[string]TokenType{
	"AND":       And,
	"OR":        Or,
	"NOT":       Not,
	"IS":        Is,
	"NULL":      Null,
	"LIKE":      Like,
	"IN":        In,
	"BETWEEN":   Between,
	"EXISTS":    Exists,
	"TRUE":      True,
	"FALSE":     False,
	"SELECT":    Select,
	"FROM":      From,
	"WHERE":     Where,
	"GROUP":     Group,
	"HAVING":    Having,
	"ORDER":     Order,
	"BY":        By,
	"ASC":       Asc,
	"DESC":      Desc,
	"LIMIT":     Limit,
	"OFFSET":    Offset,
	"DISTINCT":  Distinct,
	"ALL":       All,
	"UNION":     Union,
	"EXCEPT":    Except,
	"INTERSECT": Intersect,
	"AS":        As,
	"JOIN":      Join,
	"INNER":     Inner,
	"LEFT":      Left,
	"RIGHT":     Right,
	"FULL":      Full,
	"OUTER":     Outer,
	"CROSS":     Cross,
	"ON":        On,
	"NEXT":      Next,
	"VALUE":     Value,
	"FOR":       For,
	"CREATE":    Create,
	"DROP":      Drop,
	"ALTER":     Alter,
	"ADD":       Add,
	"COLUMN":    Column,
	"RENAME":    Rename,
	"TO":        To,
	"REPLACE":   Replace,
	"IF":        If,
	"SET":       Set,
	"TABLE":     TableIdentifier,
	"TABLES":    TablesIdentifier,
	"VIEW":      ViewIdentifier,
	"VIEWS":     ViewsIdentifier,
	"SCHEMA":    SchemaIdentifier,
	"SCHEMAS":   SchemasIdentifier,
	"DATABASE":  DatabaseIdentifier,
	"SEQUENCE":  SequenceIdentifier,
	"SEQUENCES": SequencesIdentifier,
	"START":     Start,
	"WITH":      With,
	"INCREMENT": Increment,
	"READONLY":  ReadOnly,
	"DESCRIBE":  Describe,
	"SHOW":      Show,
	"EXPLAIN":   Explain,
}

func (token Token) String() string {
	name, ok := tokenNames[token.Type]
	if !ok {
		if token.Type == Unknown {
			return "Unknown(" + token.Value + ")"
		}
		return "Keyword(" + token.Value + ")"
	}
	switch token.Type {
	case Identifier, String, Int, Float:
		return name + "(" + token.Value + ")"
	default:
		return name
	}
}

// IsValue reports whether the token is a literal. An empty string literal is
// still a value.
func (token Token) IsValue() bool {
	return token.Type == String || token.Type == Int || token.Type == Float
}

type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
	err          error
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.readPosition]
}

// Offset is the position in the input where the next token scan starts.
func (lexer *Lexer) Offset() int {
	if lexer.position > len(lexer.sql) {
		return len(lexer.sql)
	}
	return lexer.position
}

// Err returns the first scan error (unterminated literal or comment).
func (lexer *Lexer) Err() error {
	return lexer.err
}

func (lexer *Lexer) NextToken() Token {
	var token Token

	lexer.skipWhitespace()
	start := lexer.position

	switch lexer.ch {
	case ',':
		token = Token{Type: Comma, Value: ","}
	case '(':
		token = Token{Type: ParenOpen, Value: "("}
	case ')':
		token = Token{Type: ParenClose, Value: ")"}
	case ';':
		token = Token{Type: Terminator}
	case '*':
		token = Token{Type: Wildcard, Value: "*"}
	case '+':
		token = Token{Type: Plus, Value: "+"}
	case '-':
		token = Token{Type: Minus, Value: "-"}
	case '/':
		token = Token{Type: Slash, Value: "/"}
	case 0:
		return Token{Type: EOF, Pos: start}
	case '\'':
		value, ok := lexer.readString()
		if !ok {
			return Token{Type: EOF, Pos: start}
		}
		return Token{Type: String, Value: value, Pos: start}
	case '"':
		value, ok := lexer.readQuotedIdentifier()
		if !ok {
			return Token{Type: EOF, Pos: start}
		}
		return Token{Type: Identifier, Value: value, Pos: start}
	case '|':
		if lexer.peekChar() == '|' {
			lexer.readChar()
			token = Token{Type: Concat, Value: "||"}
		} else {
			token = Token{Type: Unknown, Value: "|"}
		}
	default:
		if isOperator(lexer.ch) {
			operator := lexer.readOperator()
			switch operator {
			case "=":
				return Token{Type: Equals, Value: operator, Pos: start}
			case "!=", "<>":
				return Token{Type: NotEquals, Value: operator, Pos: start}
			case "<":
				return Token{Type: LessThan, Value: operator, Pos: start}
			case ">":
				return Token{Type: GreaterThan, Value: operator, Pos: start}
			case "<=":
				return Token{Type: LessThanOrEqual, Value: operator, Pos: start}
			case ">=":
				return Token{Type: GreaterThanOrEqual, Value: operator, Pos: start}
			default:
				return Token{Type: Unknown, Value: operator, Pos: start}
			}
		} else if isDigit(lexer.ch) {
			num := lexer.readNumber()
			if lexer.ch == '.' && isDigit(lexer.peekChar()) {
				lexer.readChar() // consume '.'
				decimal := lexer.readNumber()
				return Token{Type: Float, Value: num + "." + decimal, Pos: start}
			}
			return Token{Type: Int, Value: num, Pos: start}
		} else if isAlphaNumeric(lexer.ch) {
			literal := lexer.readIdentifier()
			if toUpper(literal) == "PRIMARY" {
				saved := *lexer
				lexer.skipWhitespace()
				if next := lexer.readIdentifier(); toUpper(next) == "KEY" {
					return Token{Type: PrimaryKey, Value: "PRIMARY KEY", Pos: start}
				}
				*lexer = saved
			}
			return Token{Type: lookupIdentifier(literal), Value: literal, Pos: start}
		} else {
			token = Token{Type: Unknown, Value: string(lexer.ch)}
		}
	}

	token.Pos = start
	lexer.readChar()
	return token
}

func (lexer *Lexer) PeekToken() Token {
	saved := *lexer
	token := lexer.NextToken()
	*lexer = saved
	return token
}

func (lexer *Lexer) skipWhitespace() {
	for {
		switch {
		case lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r':
			lexer.readChar()
		case lexer.ch == '-' && lexer.peekChar() == '-':
			for lexer.ch != '\n' && lexer.ch != 0 {
				lexer.readChar()
			}
		case lexer.ch == '/' && lexer.peekChar() == '*':
			start := lexer.position
			lexer.readChar()
			lexer.readChar()
			for !(lexer.ch == '*' && lexer.peekChar() == '/') {
				if lexer.ch == 0 {
					lexer.fail(start, "unterminated block comment")
					return
				}
				lexer.readChar()
			}
			lexer.readChar()
			lexer.readChar()
		default:
			return
		}
	}
}

func (lexer *Lexer) fail(position int, message string) {
	if lexer.err == nil {
		lexer.err = core.Errorf(core.CodeParse, "%s at offset %d", message, position)
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isAlphaNumeric(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

// readString consumes a quoted literal; a doubled quote is an escaped quote.
func (lexer *Lexer) readString() (string, bool) {
	start := lexer.position
	lexer.readChar() // skip opening quote
	var value []byte
	for {
		switch {
		case lexer.ch == 0:
			lexer.fail(start, "unterminated string literal")
			return "", false
		case lexer.ch == '\'' && lexer.peekChar() == '\'':
			value = append(value, '\'')
			lexer.readChar()
		case lexer.ch == '\'':
			lexer.readChar() // skip closing quote
			return string(value), true
		default:
			value = append(value, lexer.ch)
		}
		lexer.readChar()
	}
}

func (lexer *Lexer) readQuotedIdentifier() (string, bool) {
	start := lexer.position
	lexer.readChar()
	position := lexer.position
	for lexer.ch != '"' {
		if lexer.ch == 0 {
			lexer.fail(start, "unterminated quoted identifier")
			return "", false
		}
		lexer.readChar()
	}
	value := lexer.sql[position:lexer.position]
	lexer.readChar()
	return value, true
}

func (lexer *Lexer) readNumber() string {
	position := lexer.position
	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readOperator() string {
	position := lexer.position
	for isOperator(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func isAlphaNumeric(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || ch == '.' || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOperator(ch byte) bool {
	return ch == '=' || ch == '!' || ch == '<' || ch == '>'
}

func lookupIdentifier(id string) TokenType {
	if tokenType, ok := keywords[toUpper(id)]; ok {
		return tokenType
	}
	return Identifier
}

// toUpper converts a string to uppercase without allocating for ASCII strings
func toUpper(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'a' && s[i] <= 'z' {
			b := make([]byte, len(s))
			for j := 0; j < len(s); j++ {
				if s[j] >= 'a' && s[j] <= 'z' {
					b[j] = s[j] - 32
				} else {
					b[j] = s[j]
				}
			}
			return string(b)
		}
	}
	return s
}

func tokenize(sql string) []Token {
	lexer := NewLexer(sql)

	var tokens []Token

	for {
		token := lexer.NextToken()
		if token.Type == EOF {
			return append(tokens, token)
		}
		tokens = append(tokens, token)
	}
}

// QuoteIdentifier returns name as it must be written in SQL text: bare when
// it lexes back to the same identifier, double-quoted otherwise.
func QuoteIdentifier(name string) string {
	bare := name != "" && !isDigit(name[0])
	for i := 0; bare && i < len(name); i++ {
		bare = isAlphaNumeric(name[i]) && name[i] != '.'
	}
	if bare {
		if _, reserved := keywords[toUpper(name)]; reserved {
			bare = false
		}
	}
	if bare {
		return name
	}
	return `"` + name + `"`
}
