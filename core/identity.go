package core

// Identity identifies the author of catalog changes (Git commit author).
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Schema is a namespace owning tables, sequences and views.
type Schema struct {
	Name string `json:"name"`
}

const (
	DefaultSchema     = "PUBLIC"
	InformationSchema = "INFORMATION_SCHEMA"
	DefinitionSchema  = "DEFINITION_SCHEMA"
)

// IsSystemSchema reports whether objects in the named schema may be referenced
// from a view declared in any other schema.
func IsSystemSchema(name string) bool {
	return name == InformationSchema || name == DefinitionSchema
}
