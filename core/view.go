package core

import "time"

// View is the durable catalog record of a view. Statement holds the
// wildcard-free text; Columns is the shape fixed at first compilation and is
// never re-derived from the current table definitions.
type View struct {
	Name          *QualifiedName `json:"name"`
	Statement     string         `json:"statement"`
	ColumnAliases []string       `json:"columnAliases,omitempty"`
	Columns       []Column       `json:"columns"`
	CompileSchema string         `json:"compileSchema"`
	DependsOn     []string       `json:"dependsOn,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
