package core

import "github.com/google/uuid"

// QualifiedName identifies a table, view or sequence inside a schema.
//
// A catalog entry owns exactly one *QualifiedName and hands out that pointer;
// two names are the same object only if the pointers are equal. The ID is
// persisted with the entry so the identity survives a catalog reload.
type QualifiedName struct {
	ID     uuid.UUID `json:"id"`
	Schema string    `json:"schema"`
	Name   string    `json:"name"`
}

func NewQualifiedName(schema, name string) *QualifiedName {
	return &QualifiedName{
		ID:     uuid.New(),
		Schema: schema,
		Name:   name,
	}
}

func (name *QualifiedName) String() string {
	if name == nil {
		return ""
	}
	if name.Schema == "" {
		return name.Name
	}
	return name.Schema + "." + name.Name
}

// Key is the lookup key used by the catalog maps.
func Key(schema, name string) string {
	return schema + "." + name
}
