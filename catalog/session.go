package catalog

import (
	"github.com/nickyhof/ViewDB/core"
)

// Session is one client's view of the catalog: a current schema and the
// identity its changes are committed under. It resolves names for the
// binder and runs DDL.
type Session struct {
	catalog  *Catalog
	schema   string
	identity core.Identity
}

func (c *Catalog) NewSession(identity core.Identity) *Session {
	return &Session{
		catalog:  c,
		schema:   core.DefaultSchema,
		identity: identity,
	}
}

func (s *Session) Catalog() *Catalog {
	return s.catalog
}

func (s *Session) Identity() core.Identity {
	return s.identity
}

func (s *Session) CurrentSchema() string {
	return s.schema
}

// SetSchema changes the schema unqualified names resolve in.
func (s *Session) SetSchema(name string) error {
	if !s.catalog.HasSchema(name) {
		return core.Errorf(core.CodeNotFound, "schema %s does not exist", name)
	}
	s.schema = name
	return nil
}

func (s *Session) IsSystemSchema(name string) bool {
	return core.IsSystemSchema(name)
}

// within returns a copy of the session with another current schema.
func (s *Session) within(schema string) *Session {
	copied := *s
	copied.schema = schema
	return &copied
}

// schemaOr returns schema, or the current schema when it is empty.
func (s *Session) schemaOr(schema string) string {
	if schema == "" {
		return s.schema
	}
	return schema
}

func (s *Session) ResolveRelation(schema, name string) (core.Relation, error) {
	if !s.catalog.HasSchema(schema) {
		return nil, core.Errorf(core.CodeNotFound, "schema %s does not exist", schema)
	}
	if relation, ok := s.catalog.Relation(schema, name); ok {
		return relation, nil
	}
	return nil, core.Errorf(core.CodeNotFound, "table or view %s does not exist", core.Key(schema, name))
}

func (s *Session) ResolveSequence(schema, name string) (*core.Sequence, error) {
	if sequence, ok := s.catalog.Sequence(schema, name); ok {
		return sequence, nil
	}
	return nil, core.Errorf(core.CodeNotFound, "sequence %s does not exist", core.Key(schema, name))
}
