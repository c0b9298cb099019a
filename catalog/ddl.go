package catalog

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/nickyhof/ViewDB/core"
	"github.com/nickyhof/ViewDB/ps"
	"github.com/nickyhof/ViewDB/view"
)

// refuse logs a rejected DDL statement and returns err unchanged.
func refuse(err error, statement string, name string) error {
	log.Warn().Err(err).Str("statement", statement).Str("object", name).Msg("ddl refused")
	return err
}

func dependentError(kind string, name fmt.Stringer, dependent *view.View) error {
	return core.Errorf(core.CodeDependentObjects, "%s %s is referenced by view %s", kind, name, dependent.RelationName())
}

// checkWritableSchema verifies that objects can be created in schema.
func (s *Session) checkWritableSchema(schema string) error {
	if !s.catalog.HasSchema(schema) {
		return core.Errorf(core.CodeNotFound, "schema %s does not exist", schema)
	}
	if core.IsSystemSchema(schema) {
		return core.Errorf(core.CodeUnsupported, "schema %s is read-only", schema)
	}
	return nil
}

// checkRelationNameFree verifies that no table or view is called schema.name.
func (s *Session) checkRelationNameFree(schema, name string) error {
	if relation, ok := s.catalog.Relation(schema, name); ok {
		return core.Errorf(core.CodeAlreadyExists, "%s %s already exists", relation.RelationKind(), core.Key(schema, name))
	}
	return nil
}

func (s *Session) CreateSchema(name string) (ps.Transaction, error) {
	if s.catalog.HasSchema(name) {
		return ps.Transaction{}, refuse(core.Errorf(core.CodeAlreadyExists, "schema %s already exists", name), "CREATE SCHEMA", name)
	}

	schema := core.Schema{Name: name}
	txn, err := s.catalog.commit(s.identity, fmt.Sprintf("Creating schema %s", name), func(batch *ps.Batch) error {
		return batch.PutSchema(schema)
	})
	if err != nil {
		return ps.Transaction{}, err
	}

	s.catalog.schemas[name] = &schema
	return txn, nil
}

// DropSchema removes an empty schema. Sessions in the dropped schema fall
// back to PUBLIC.
func (s *Session) DropSchema(name string, ifExists bool) (ps.Transaction, error) {
	if !s.catalog.HasSchema(name) {
		if ifExists {
			return ps.Transaction{}, nil
		}
		return ps.Transaction{}, refuse(core.Errorf(core.CodeNotFound, "schema %s does not exist", name), "DROP SCHEMA", name)
	}
	if name == core.DefaultSchema || core.IsSystemSchema(name) {
		return ps.Transaction{}, refuse(core.Errorf(core.CodeUnsupported, "schema %s cannot be dropped", name), "DROP SCHEMA", name)
	}
	if len(s.catalog.Tables(name))+len(s.catalog.Views(name))+len(s.catalog.Sequences(name)) > 0 {
		return ps.Transaction{}, refuse(core.Errorf(core.CodeDependentObjects, "schema %s is not empty", name), "DROP SCHEMA", name)
	}

	txn, err := s.catalog.commit(s.identity, fmt.Sprintf("Dropping schema %s", name), func(batch *ps.Batch) error {
		return batch.DeleteSchema(name)
	})
	if err != nil {
		return ps.Transaction{}, err
	}

	delete(s.catalog.schemas, name)
	if s.schema == name {
		s.schema = core.DefaultSchema
	}
	return txn, nil
}

func (s *Session) CreateTable(schema, name string, columns []core.Column) (*core.Table, ps.Transaction, error) {
	schema = s.schemaOr(schema)
	if err := s.checkWritableSchema(schema); err != nil {
		return nil, ps.Transaction{}, refuse(err, "CREATE TABLE", name)
	}
	if err := s.checkRelationNameFree(schema, name); err != nil {
		return nil, ps.Transaction{}, refuse(err, "CREATE TABLE", name)
	}
	for i, column := range columns {
		if slices.ContainsFunc(columns[:i], func(c core.Column) bool { return c.Name == column.Name }) {
			return nil, ps.Transaction{}, refuse(core.Errorf(core.CodeAlreadyExists, "column %s specified twice", column.Name), "CREATE TABLE", name)
		}
	}

	table := &core.Table{
		Name:    core.NewQualifiedName(schema, name),
		Columns: slices.Clone(columns),
	}
	txn, err := s.catalog.commit(s.identity, fmt.Sprintf("Creating table %s", table.Name), func(batch *ps.Batch) error {
		return batch.PutTable(*table)
	})
	if err != nil {
		return nil, ps.Transaction{}, err
	}

	s.catalog.tables[core.Key(schema, name)] = table
	return table, txn, nil
}

// lookupTable finds a user table; views and system tables are refused.
func (s *Session) lookupTable(schema, name string) (*core.Table, error) {
	if _, ok := s.catalog.View(schema, name); ok {
		return nil, core.Errorf(core.CodeNotATable, "%s is a view", core.Key(schema, name))
	}
	table, ok := s.catalog.Table(schema, name)
	if !ok {
		return nil, core.Errorf(core.CodeNotFound, "table %s does not exist", core.Key(schema, name))
	}
	if core.IsSystemSchema(schema) {
		return nil, core.Errorf(core.CodeUnsupported, "system table %s cannot be changed", table.Name)
	}
	return table, nil
}

func (s *Session) DropTable(schema, name string, ifExists bool) (ps.Transaction, error) {
	schema = s.schemaOr(schema)
	if _, ok := s.catalog.Relation(schema, name); !ok && ifExists {
		return ps.Transaction{}, nil
	}
	table, err := s.lookupTable(schema, name)
	if err != nil {
		return ps.Transaction{}, refuse(err, "DROP TABLE", name)
	}

	if dependents := s.catalog.dependents(nil, func(v *view.View) bool { return v.ReferencesTable(table) }); len(dependents) > 0 {
		return ps.Transaction{}, refuse(dependentError("table", table.Name, dependents[0]), "DROP TABLE", table.Name.String())
	}

	txn, err := s.catalog.commit(s.identity, fmt.Sprintf("Dropping table %s", table.Name), func(batch *ps.Batch) error {
		return batch.DeleteTable(schema, name)
	})
	if err != nil {
		return ps.Transaction{}, err
	}

	delete(s.catalog.tables, core.Key(schema, name))
	return txn, nil
}

func (s *Session) AddColumn(schema, tableName string, column core.Column) (ps.Transaction, error) {
	table, err := s.lookupTable(s.schemaOr(schema), tableName)
	if err != nil {
		return ps.Transaction{}, refuse(err, "ALTER TABLE ADD COLUMN", tableName)
	}
	if table.ColumnIndex(column.Name) >= 0 {
		return ps.Transaction{}, refuse(core.Errorf(core.CodeAlreadyExists, "column %s already exists in %s", column.Name, table.Name), "ALTER TABLE ADD COLUMN", table.Name.String())
	}

	columns := append(slices.Clone(table.Columns), column)
	return s.alterTable(table, columns, fmt.Sprintf("Adding column %s to %s", column.Name, table.Name))
}

func (s *Session) DropColumn(schema, tableName, column string) (ps.Transaction, error) {
	table, err := s.lookupTable(s.schemaOr(schema), tableName)
	if err != nil {
		return ps.Transaction{}, refuse(err, "ALTER TABLE DROP COLUMN", tableName)
	}
	index := table.ColumnIndex(column)
	if index < 0 {
		return ps.Transaction{}, refuse(core.Errorf(core.CodeNotFound, "column %s does not exist in %s", column, table.Name), "ALTER TABLE DROP COLUMN", table.Name.String())
	}
	if err := s.checkColumnUnused(table, column); err != nil {
		return ps.Transaction{}, refuse(err, "ALTER TABLE DROP COLUMN", table.Name.String())
	}
	if len(table.Columns) == 1 {
		return ps.Transaction{}, refuse(core.Errorf(core.CodeUnsupported, "cannot drop the only column of %s", table.Name), "ALTER TABLE DROP COLUMN", table.Name.String())
	}

	columns := slices.Delete(slices.Clone(table.Columns), index, index+1)
	return s.alterTable(table, columns, fmt.Sprintf("Dropping column %s from %s", column, table.Name))
}

func (s *Session) RenameColumn(schema, tableName, column, newName string) (ps.Transaction, error) {
	table, err := s.lookupTable(s.schemaOr(schema), tableName)
	if err != nil {
		return ps.Transaction{}, refuse(err, "ALTER TABLE RENAME COLUMN", tableName)
	}
	index := table.ColumnIndex(column)
	if index < 0 {
		return ps.Transaction{}, refuse(core.Errorf(core.CodeNotFound, "column %s does not exist in %s", column, table.Name), "ALTER TABLE RENAME COLUMN", table.Name.String())
	}
	if table.ColumnIndex(newName) >= 0 {
		return ps.Transaction{}, refuse(core.Errorf(core.CodeAlreadyExists, "column %s already exists in %s", newName, table.Name), "ALTER TABLE RENAME COLUMN", table.Name.String())
	}
	if err := s.checkColumnUnused(table, column); err != nil {
		return ps.Transaction{}, refuse(err, "ALTER TABLE RENAME COLUMN", table.Name.String())
	}

	columns := slices.Clone(table.Columns)
	columns[index].Name = newName
	return s.alterTable(table, columns, fmt.Sprintf("Renaming column %s of %s to %s", column, table.Name, newName))
}

func (s *Session) checkColumnUnused(table *core.Table, column string) error {
	if dependents := s.catalog.dependents(nil, func(v *view.View) bool { return v.ReferencesColumn(table, column) }); len(dependents) > 0 {
		return core.Errorf(core.CodeDependentObjects, "column %s of %s is referenced by view %s", column, table.Name, dependents[0].RelationName())
	}
	return nil
}

// alterTable installs the new column list and recompiles every view reading
// the table. If any view fails to recompile, or the commit fails, the table
// and the views are put back as they were.
func (s *Session) alterTable(table *core.Table, columns []core.Column, message string) (ps.Transaction, error) {
	dependents, err := inDependencyOrder(s.catalog.dependents(nil, func(v *view.View) bool { return v.ReferencesTable(table) }))
	if err != nil {
		return ps.Transaction{}, err
	}

	previous := table.Columns
	table.Columns = columns

	if compiled, err := s.recompile(dependents); err != nil {
		table.Columns = previous
		s.restoreViews(dependents[:compiled])
		return ps.Transaction{}, refuse(errors.Wrapf(err, "alter table %s", table.Name), "ALTER TABLE", table.Name.String())
	}

	txn, err := s.catalog.commit(s.identity, message, func(batch *ps.Batch) error {
		if err := batch.PutTable(*table); err != nil {
			return err
		}
		return putViews(batch, dependents)
	})
	if err != nil {
		table.Columns = previous
		s.restoreViews(dependents)
		return ps.Transaction{}, err
	}

	return txn, nil
}

func (s *Session) SetTableReadOnly(schema, name string, readOnly bool) (ps.Transaction, error) {
	schema = s.schemaOr(schema)
	if v, ok := s.catalog.View(schema, name); ok {
		return ps.Transaction{}, refuse(v.SetReadOnly(readOnly), "SET TABLE READONLY", name)
	}
	table, err := s.lookupTable(schema, name)
	if err != nil {
		return ps.Transaction{}, refuse(err, "SET TABLE READONLY", name)
	}

	previous := table.ReadOnly
	table.ReadOnly = readOnly
	txn, err := s.catalog.commit(s.identity, fmt.Sprintf("Setting %s read-only %t", table.Name, readOnly), func(batch *ps.Batch) error {
		return batch.PutTable(*table)
	})
	if err != nil {
		table.ReadOnly = previous
		return ps.Transaction{}, err
	}
	return txn, nil
}

func (s *Session) CreateSequence(schema, name string, start, increment int64) (*core.Sequence, ps.Transaction, error) {
	schema = s.schemaOr(schema)
	if err := s.checkWritableSchema(schema); err != nil {
		return nil, ps.Transaction{}, refuse(err, "CREATE SEQUENCE", name)
	}
	if _, ok := s.catalog.Sequence(schema, name); ok {
		return nil, ps.Transaction{}, refuse(core.Errorf(core.CodeAlreadyExists, "sequence %s already exists", core.Key(schema, name)), "CREATE SEQUENCE", name)
	}

	sequence := &core.Sequence{
		Name:      core.NewQualifiedName(schema, name),
		Start:     start,
		Increment: increment,
	}
	txn, err := s.catalog.commit(s.identity, fmt.Sprintf("Creating sequence %s", sequence.Name), func(batch *ps.Batch) error {
		return batch.PutSequence(*sequence)
	})
	if err != nil {
		return nil, ps.Transaction{}, err
	}

	s.catalog.sequences[core.Key(schema, name)] = sequence
	return sequence, txn, nil
}

func (s *Session) DropSequence(schema, name string, ifExists bool) (ps.Transaction, error) {
	schema = s.schemaOr(schema)
	sequence, ok := s.catalog.Sequence(schema, name)
	if !ok {
		if ifExists {
			return ps.Transaction{}, nil
		}
		return ps.Transaction{}, refuse(core.Errorf(core.CodeNotFound, "sequence %s does not exist", core.Key(schema, name)), "DROP SEQUENCE", name)
	}

	if dependents := s.catalog.dependents(nil, func(v *view.View) bool { return v.ReferencesSequence(sequence) }); len(dependents) > 0 {
		return ps.Transaction{}, refuse(dependentError("sequence", sequence.Name, dependents[0]), "DROP SEQUENCE", sequence.Name.String())
	}

	txn, err := s.catalog.commit(s.identity, fmt.Sprintf("Dropping sequence %s", sequence.Name), func(batch *ps.Batch) error {
		return batch.DeleteSequence(schema, name)
	})
	if err != nil {
		return ps.Transaction{}, err
	}

	delete(s.catalog.sequences, core.Key(schema, name))
	return txn, nil
}
