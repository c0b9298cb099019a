package catalog

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/nickyhof/ViewDB/core"
	"github.com/nickyhof/ViewDB/ps"
	"github.com/nickyhof/ViewDB/view"
)

// Catalog holds the schemas, tables, sequences and compiled views of a
// database. Methods do not lock; callers take Lock for DDL and RLock for
// reads, the way the engine does.
type Catalog struct {
	mu          sync.RWMutex
	persistence *ps.Persistence
	schemas     map[string]*core.Schema
	tables      map[string]*core.Table
	sequences   map[string]*core.Sequence
	views       map[string]*view.View
}

// systemTables are the built-in tables of INFORMATION_SCHEMA. They are never
// persisted.
var systemTables = map[string][]core.Column{
	"SYSTEM_TABLES": {
		{Name: "TABLE_SCHEMA", Type: core.StringType},
		{Name: "TABLE_NAME", Type: core.StringType},
		{Name: "TABLE_TYPE", Type: core.StringType},
	},
	"SYSTEM_COLUMNS": {
		{Name: "TABLE_SCHEMA", Type: core.StringType},
		{Name: "TABLE_NAME", Type: core.StringType},
		{Name: "COLUMN_NAME", Type: core.StringType},
		{Name: "TYPE_NAME", Type: core.StringType},
		{Name: "ORDINAL_POSITION", Type: core.IntType},
	},
	"VIEWS": {
		{Name: "TABLE_SCHEMA", Type: core.StringType},
		{Name: "TABLE_NAME", Type: core.StringType},
		{Name: "VIEW_DEFINITION", Type: core.TextType},
	},
}

func newCatalog(persistence *ps.Persistence) *Catalog {
	c := &Catalog{persistence: persistence}
	c.reset()
	return c
}

func (c *Catalog) reset() {
	c.schemas = map[string]*core.Schema{
		core.InformationSchema: {Name: core.InformationSchema},
	}
	c.tables = make(map[string]*core.Table)
	c.sequences = make(map[string]*core.Sequence)
	c.views = make(map[string]*view.View)

	for name, columns := range systemTables {
		c.tables[core.Key(core.InformationSchema, name)] = &core.Table{
			Name:     core.NewQualifiedName(core.InformationSchema, name),
			Columns:  columns,
			ReadOnly: true,
		}
	}
}

// Open loads the catalog stored in persistence. An empty repository is
// initialized with the PUBLIC schema. A nil persistence gives a catalog that
// lives in memory only.
func Open(persistence *ps.Persistence, identity core.Identity) (*Catalog, error) {
	c := newCatalog(persistence)
	if persistence == nil {
		c.schemas[core.DefaultSchema] = &core.Schema{Name: core.DefaultSchema}
		return c, nil
	}

	schemas, err := persistence.ListSchemas()
	if err != nil {
		return nil, err
	}
	if len(schemas) == 0 {
		schema := core.Schema{Name: core.DefaultSchema}
		_, err := c.commit(identity, "Initializing catalog", func(batch *ps.Batch) error {
			return batch.PutSchema(schema)
		})
		if err != nil {
			return nil, err
		}
		c.schemas[schema.Name] = &schema
		log.Debug().Str("schema", schema.Name).Msg("catalog initialized")
		return c, nil
	}

	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload replaces the in-memory catalog with the persisted one. Views are
// restored in dependency order; the catalog is left untouched on error.
func (c *Catalog) Reload() error {
	if c.persistence == nil {
		return nil
	}

	loaded := newCatalog(c.persistence)

	schemas, err := c.persistence.ListSchemas()
	if err != nil {
		return err
	}

	records := make(map[string]core.View)
	for _, schema := range schemas {
		loaded.schemas[schema.Name] = &schema

		tables, err := c.persistence.ListTables(schema.Name)
		if err != nil {
			return err
		}
		for _, table := range tables {
			loaded.tables[core.Key(schema.Name, table.Name.Name)] = &table
		}

		sequences, err := c.persistence.ListSequences(schema.Name)
		if err != nil {
			return err
		}
		for _, sequence := range sequences {
			loaded.sequences[core.Key(schema.Name, sequence.Name.Name)] = &sequence
		}

		views, err := c.persistence.ListViews(schema.Name)
		if err != nil {
			return err
		}
		for _, record := range views {
			records[record.Name.String()] = record
		}
	}

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	order, err := sortByDependencies(names, func(name string) []string {
		return records[name].DependsOn
	})
	if err != nil {
		return errors.Wrap(err, "reload catalog")
	}

	session := loaded.NewSession(core.Identity{})
	for _, name := range order {
		record := records[name]
		v, err := view.Restore(session, record)
		if err != nil {
			return errors.Wrapf(err, "reload view %s", name)
		}
		loaded.views[core.Key(record.Name.Schema, record.Name.Name)] = v
	}

	c.schemas = loaded.schemas
	c.tables = loaded.tables
	c.sequences = loaded.sequences
	c.views = loaded.views
	log.Debug().Int("schemas", len(schemas)).Int("views", len(order)).Msg("catalog reloaded")
	return nil
}

// commit persists the changes fill adds to a batch as one transaction.
func (c *Catalog) commit(identity core.Identity, message string, fill func(batch *ps.Batch) error) (ps.Transaction, error) {
	if c.persistence == nil {
		return ps.Transaction{}, nil
	}

	batch, err := c.persistence.BeginBatch()
	if err != nil {
		return ps.Transaction{}, err
	}
	if err := fill(batch); err != nil {
		batch.Rollback()
		return ps.Transaction{}, err
	}
	return batch.Commit(identity, message)
}

// Persistence returns the backing store, or nil for an in-memory catalog.
func (c *Catalog) Persistence() *ps.Persistence {
	return c.persistence
}

// RLock acquires a read lock for concurrent read operations
func (c *Catalog) RLock() {
	c.mu.RLock()
}

// RUnlock releases the read lock
func (c *Catalog) RUnlock() {
	c.mu.RUnlock()
}

// Lock acquires a write lock for exclusive write operations
func (c *Catalog) Lock() {
	c.mu.Lock()
}

// Unlock releases the write lock
func (c *Catalog) Unlock() {
	c.mu.Unlock()
}

// Schemas returns the schema names in order.
func (c *Catalog) Schemas() []string {
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) HasSchema(name string) bool {
	_, ok := c.schemas[name]
	return ok
}

func (c *Catalog) Table(schema, name string) (*core.Table, bool) {
	table, ok := c.tables[core.Key(schema, name)]
	return table, ok
}

func (c *Catalog) View(schema, name string) (*view.View, bool) {
	v, ok := c.views[core.Key(schema, name)]
	return v, ok
}

func (c *Catalog) Sequence(schema, name string) (*core.Sequence, bool) {
	sequence, ok := c.sequences[core.Key(schema, name)]
	return sequence, ok
}

// Relation returns the table or view with the given name.
func (c *Catalog) Relation(schema, name string) (core.Relation, bool) {
	if table, ok := c.Table(schema, name); ok {
		return table, true
	}
	if v, ok := c.View(schema, name); ok {
		return v, true
	}
	return nil, false
}

// Tables returns the tables of a schema ordered by name.
func (c *Catalog) Tables(schema string) []*core.Table {
	return inSchema(c.tables, schema, func(table *core.Table) *core.QualifiedName { return table.Name })
}

// Views returns the views of a schema ordered by name. An empty schema
// returns the views of every schema.
func (c *Catalog) Views(schema string) []*view.View {
	return inSchema(c.views, schema, (*view.View).RelationName)
}

// ViewsInDependencyOrder returns the views of a schema, or of every schema
// when it is empty, each after the views it reads.
func (c *Catalog) ViewsInDependencyOrder(schema string) ([]*view.View, error) {
	return inDependencyOrder(c.Views(schema))
}

func (c *Catalog) Sequences(schema string) []*core.Sequence {
	return inSchema(c.sequences, schema, func(sequence *core.Sequence) *core.QualifiedName { return sequence.Name })
}

func inSchema[T any](objects map[string]T, schema string, nameOf func(T) *core.QualifiedName) []T {
	var keys []string
	for key, object := range objects {
		if schema == "" || nameOf(object).Schema == schema {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	result := make([]T, len(keys))
	for i, key := range keys {
		result[i] = objects[key]
	}
	return result
}

// dependents returns the views, other than exclude, for which match holds,
// ordered by name.
func (c *Catalog) dependents(exclude *core.QualifiedName, match func(v *view.View) bool) []*view.View {
	var result []*view.View
	for _, v := range c.Views("") {
		if v.RelationName() != exclude && match(v) {
			result = append(result, v)
		}
	}
	return result
}

// inDependencyOrder sorts views so each comes after the views it reads.
func inDependencyOrder(views []*view.View) ([]*view.View, error) {
	byName := make(map[string]*view.View, len(views))
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.RelationName().String()
		byName[names[i]] = v
	}

	order, err := sortByDependencies(names, func(name string) []string {
		return byName[name].DependsOn()
	})
	if err != nil {
		return nil, err
	}

	result := make([]*view.View, len(order))
	for i, name := range order {
		result[i] = byName[name]
	}
	return result, nil
}
