package view

import (
	"maps"
	"slices"

	"github.com/nickyhof/ViewDB/bind"
	"github.com/nickyhof/ViewDB/core"
)

// referencedSchemas returns the schemas of every catalog relation read by the
// subqueries, including their union branches, in sorted order.
func referencedSchemas(subqueries []*bind.SubQuery) []string {
	schemas := make(map[string]struct{})
	for _, subquery := range subqueries {
		for filter := range bind.Filters(subquery.Select) {
			if filter.Relation != nil {
				schemas[filter.Relation.RelationName().Schema] = struct{}{}
			}
		}
	}
	return slices.Sorted(maps.Keys(schemas))
}

func validateSchemas(session Session, name *core.QualifiedName, subqueries []*bind.SubQuery) error {
	for _, schema := range referencedSchemas(subqueries) {
		if schema == name.Schema || session.IsSystemSchema(schema) {
			continue
		}
		return core.Errorf(core.CodeSchemaReference,
			"view %s references schema %s", name, schema)
	}
	return nil
}
