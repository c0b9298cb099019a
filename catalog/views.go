package catalog

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/nickyhof/ViewDB/core"
	"github.com/nickyhof/ViewDB/ps"
	"github.com/nickyhof/ViewDB/view"
)

// CreateView compiles definition as schema.name. With orReplace an existing
// view of that name is redefined in place and every view reading it is
// recompiled. The view compiles with its own schema as the current schema.
func (s *Session) CreateView(schema, name, definition string, columnAliases []string, orReplace bool) (*view.View, ps.Transaction, error) {
	schema = s.schemaOr(schema)
	if err := s.checkWritableSchema(schema); err != nil {
		return nil, ps.Transaction{}, refuse(err, "CREATE VIEW", name)
	}
	if table, ok := s.catalog.Table(schema, name); ok {
		return nil, ps.Transaction{}, refuse(core.Errorf(core.CodeAlreadyExists, "table %s already exists", table.Name), "CREATE VIEW", name)
	}
	if existing, ok := s.catalog.View(schema, name); ok {
		if !orReplace {
			return nil, ps.Transaction{}, refuse(core.Errorf(core.CodeAlreadyExists, "view %s already exists", existing.RelationName()), "CREATE VIEW", name)
		}
		return s.replaceView(existing, definition, columnAliases)
	}

	v, err := view.New(s.within(schema), core.NewQualifiedName(schema, name), definition, columnAliases)
	if err != nil {
		return nil, ps.Transaction{}, refuse(err, "CREATE VIEW", core.Key(schema, name))
	}

	txn, err := s.catalog.commit(s.identity, fmt.Sprintf("Creating view %s", v.RelationName()), func(batch *ps.Batch) error {
		return batch.PutView(v.Record())
	})
	if err != nil {
		return nil, ps.Transaction{}, err
	}

	s.catalog.views[core.Key(schema, name)] = v
	log.Debug().
		Str("view", v.RelationName().String()).
		Strs("dependsOn", v.DependsOn()).
		Int("subqueries", len(v.SubQueries())).
		Msg("view compiled")
	return v, txn, nil
}

// AlterView redefines an existing view.
func (s *Session) AlterView(schema, name, definition string, columnAliases []string) (*view.View, ps.Transaction, error) {
	schema = s.schemaOr(schema)
	existing, ok := s.catalog.View(schema, name)
	if !ok {
		return nil, ps.Transaction{}, refuse(core.Errorf(core.CodeNotFound, "view %s does not exist", core.Key(schema, name)), "ALTER VIEW", name)
	}
	return s.replaceView(existing, definition, columnAliases)
}

// replaceView compiles the new definition under the existing name, so every
// view reading it keeps pointing at the same catalog entry, then recompiles
// those views. Any failure leaves the old definition in place.
func (s *Session) replaceView(existing *view.View, definition string, columnAliases []string) (*view.View, ps.Transaction, error) {
	name := existing.RelationName()

	replacement, err := view.New(s.within(name.Schema), name, definition, columnAliases)
	if err != nil {
		return nil, ps.Transaction{}, refuse(err, "ALTER VIEW", name.String())
	}
	replacement.Supersede(existing)

	dependents, err := inDependencyOrder(s.catalog.dependents(name, func(v *view.View) bool { return v.ReferencesView(existing) }))
	if err != nil {
		return nil, ps.Transaction{}, err
	}

	key := core.Key(name.Schema, name.Name)
	s.catalog.views[key] = replacement

	if compiled, err := s.recompile(dependents); err != nil {
		s.catalog.views[key] = existing
		s.restoreViews(dependents[:compiled])
		return nil, ps.Transaction{}, refuse(errors.Wrapf(err, "replace view %s", name), "ALTER VIEW", name.String())
	}

	txn, err := s.catalog.commit(s.identity, fmt.Sprintf("Replacing view %s", name), func(batch *ps.Batch) error {
		if err := batch.PutView(replacement.Record()); err != nil {
			return err
		}
		return putViews(batch, dependents)
	})
	if err != nil {
		s.catalog.views[key] = existing
		s.restoreViews(dependents)
		return nil, ps.Transaction{}, err
	}

	log.Debug().Str("view", name.String()).Int("recompiled", len(dependents)).Msg("view replaced")
	return replacement, txn, nil
}

func (s *Session) DropView(schema, name string, ifExists bool) (ps.Transaction, error) {
	schema = s.schemaOr(schema)
	v, ok := s.catalog.View(schema, name)
	if !ok {
		if ifExists {
			return ps.Transaction{}, nil
		}
		return ps.Transaction{}, refuse(core.Errorf(core.CodeNotFound, "view %s does not exist", core.Key(schema, name)), "DROP VIEW", name)
	}

	if dependents := s.catalog.dependents(v.RelationName(), func(other *view.View) bool { return other.ReferencesView(v) }); len(dependents) > 0 {
		return ps.Transaction{}, refuse(dependentError("view", v.RelationName(), dependents[0]), "DROP VIEW", v.RelationName().String())
	}

	txn, err := s.catalog.commit(s.identity, fmt.Sprintf("Dropping view %s", v.RelationName()), func(batch *ps.Batch) error {
		return batch.DeleteView(schema, name)
	})
	if err != nil {
		return ps.Transaction{}, err
	}

	delete(s.catalog.views, core.Key(schema, name))
	log.Debug().Str("view", v.RelationName().String()).Msg("view dropped")
	return txn, nil
}

// recompile compiles views in order and stops at the first failure. It
// returns how many views it compiled, counting the one that failed.
func (s *Session) recompile(views []*view.View) (int, error) {
	for i, v := range views {
		if err := v.Compile(s); err != nil {
			return i + 1, err
		}
		log.Debug().Str("view", v.RelationName().String()).Msg("view recompiled")
	}
	return len(views), nil
}

// restoreViews recompiles views after the catalog change that broke them has
// been undone.
func (s *Session) restoreViews(views []*view.View) {
	for _, v := range views {
		if err := v.Compile(s); err != nil {
			log.Error().Err(err).Str("view", v.RelationName().String()).Msg("view did not recompile after revert")
		}
	}
}

// putViews writes views that were recompiled by a change to something they
// read.
func putViews(batch *ps.Batch, views []*view.View) error {
	for _, v := range views {
		v.Touch()
		if err := batch.PutView(v.Record()); err != nil {
			return err
		}
	}
	return nil
}
