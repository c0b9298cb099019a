package ps

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/nickyhof/ViewDB/core"
)

// Catalog records live under .viewdb/ as one JSON file per object:
//
//	.viewdb/schemas/<schema>.json
//	.viewdb/tables/<schema>/<table>.json
//	.viewdb/sequences/<schema>/<sequence>.json
//	.viewdb/views/<schema>/<view>.json
const catalogRoot = ".viewdb"

const (
	tablesDir    = "tables"
	sequencesDir = "sequences"
	viewsDir     = "views"
)

func schemaPath(name string) string {
	return path.Join(catalogRoot, "schemas", name+".json")
}

func objectPath(kind, schema, name string) string {
	return path.Join(catalogRoot, kind, schema, name+".json")
}

func checkPathName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("name %q cannot be stored in the catalog", name)
	}
	return nil
}

func (batch *Batch) put(filePath string, record any) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filePath, err)
	}
	return batch.write(filePath, data)
}

func (batch *Batch) putObject(kind string, name *core.QualifiedName, record any) error {
	if name == nil {
		return fmt.Errorf("%s record without a name", strings.TrimSuffix(kind, "s"))
	}
	if err := checkPathName(name.Schema); err != nil {
		return err
	}
	if err := checkPathName(name.Name); err != nil {
		return err
	}
	return batch.put(objectPath(kind, name.Schema, name.Name), record)
}

func (batch *Batch) PutSchema(schema core.Schema) error {
	if err := checkPathName(schema.Name); err != nil {
		return err
	}
	return batch.put(schemaPath(schema.Name), schema)
}

// DeleteSchema removes the schema record and every object record under it.
func (batch *Batch) DeleteSchema(name string) error {
	for _, filePath := range []string{
		schemaPath(name),
		path.Join(catalogRoot, tablesDir, name),
		path.Join(catalogRoot, sequencesDir, name),
		path.Join(catalogRoot, viewsDir, name),
	} {
		if err := batch.delete(filePath); err != nil {
			return err
		}
	}
	return nil
}

func (batch *Batch) PutTable(table core.Table) error {
	return batch.putObject(tablesDir, table.Name, table)
}

func (batch *Batch) DeleteTable(schema, name string) error {
	return batch.delete(objectPath(tablesDir, schema, name))
}

func (batch *Batch) PutSequence(sequence core.Sequence) error {
	return batch.putObject(sequencesDir, sequence.Name, sequence)
}

func (batch *Batch) DeleteSequence(schema, name string) error {
	return batch.delete(objectPath(sequencesDir, schema, name))
}

func (batch *Batch) PutView(view core.View) error {
	return batch.putObject(viewsDir, view.Name, view)
}

func (batch *Batch) DeleteView(schema, name string) error {
	return batch.delete(objectPath(viewsDir, schema, name))
}

func readRecord[T any](persistence *Persistence, filePath string) (*T, error) {
	data, err := persistence.ReadFileDirect(filePath)
	if err != nil {
		return nil, err
	}

	var record T
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", filePath, err)
	}
	return &record, nil
}

func listRecords[T any](persistence *Persistence, dir string) ([]T, error) {
	entries, err := persistence.ListEntriesDirect(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir && strings.HasSuffix(entry.Name, ".json") {
			names = append(names, entry.Name)
		}
	}
	sort.Strings(names)

	records := make([]T, 0, len(names))
	for _, name := range names {
		record, err := readRecord[T](persistence, path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

func (persistence *Persistence) GetSchema(name string) (*core.Schema, error) {
	schema, err := readRecord[core.Schema](persistence, schemaPath(name))
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return schema, nil
}

// ListSchemas returns every schema record in name order.
func (persistence *Persistence) ListSchemas() ([]core.Schema, error) {
	return listRecords[core.Schema](persistence, path.Join(catalogRoot, "schemas"))
}

func (persistence *Persistence) GetTable(schema, name string) (*core.Table, error) {
	table, err := readRecord[core.Table](persistence, objectPath(tablesDir, schema, name))
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", core.Key(schema, name), err)
	}
	return table, nil
}

func (persistence *Persistence) ListTables(schema string) ([]core.Table, error) {
	return listRecords[core.Table](persistence, path.Join(catalogRoot, tablesDir, schema))
}

func (persistence *Persistence) GetSequence(schema, name string) (*core.Sequence, error) {
	sequence, err := readRecord[core.Sequence](persistence, objectPath(sequencesDir, schema, name))
	if err != nil {
		return nil, fmt.Errorf("sequence %s: %w", core.Key(schema, name), err)
	}
	return sequence, nil
}

func (persistence *Persistence) ListSequences(schema string) ([]core.Sequence, error) {
	return listRecords[core.Sequence](persistence, path.Join(catalogRoot, sequencesDir, schema))
}

func (persistence *Persistence) GetView(schema, name string) (*core.View, error) {
	view, err := readRecord[core.View](persistence, objectPath(viewsDir, schema, name))
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", core.Key(schema, name), err)
	}
	return view, nil
}

func (persistence *Persistence) ListViews(schema string) ([]core.View, error) {
	return listRecords[core.View](persistence, path.Join(catalogRoot, viewsDir, schema))
}

// IsNotFound reports whether err means a catalog record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
