package view

import (
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/nickyhof/ViewDB/bind"
	"github.com/nickyhof/ViewDB/core"
)

// Session is the catalog context a view compiles in.
type Session interface {
	bind.Resolver
	CurrentSchema() string
	IsSystemSchema(name string) bool
}

type State int

const (
	Uncompiled State = iota
	Compiling
	Compiled
	Recompiling
	Failed
)

func (state State) String() string {
	switch state {
	case Uncompiled:
		return "UNCOMPILED"
	case Compiling:
		return "COMPILING"
	case Compiled:
		return "COMPILED"
	case Recompiling:
		return "RECOMPILING"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// View is a named, read-only relation defined by a stored query.
//
// The statement is rewritten on the first compile so that every wildcard is
// replaced by the column list it resolved to; the column metadata fixed then
// is never re-derived. A failed compile leaves the last successful tree and
// statement in place.
type View struct {
	name          *core.QualifiedName
	statement     string
	columnAliases []string
	compileSchema string
	columns       []core.Column
	state         State
	top           *bind.SubQuery
	subqueries    []*bind.SubQuery
	createdAt     time.Time
	updatedAt     time.Time
}

// New trims definition, captures the session schema and compiles the view.
func New(session Session, name *core.QualifiedName, definition string, columnAliases []string) (*View, error) {
	statement, err := TrimStatement(definition)
	if err != nil {
		return nil, errors.Wrapf(err, "view %s", name)
	}

	now := time.Now()
	v := &View{
		name:          name,
		statement:     statement,
		columnAliases: slices.Clone(columnAliases),
		compileSchema: session.CurrentSchema(),
		createdAt:     now,
		updatedAt:     now,
	}
	if err := v.Compile(session); err != nil {
		return nil, err
	}
	return v, nil
}

// Restore rebuilds a view from its catalog record. The recorded columns are
// authoritative; compiling only has to agree with them.
func Restore(session Session, record core.View) (*View, error) {
	v := &View{
		name:          record.Name,
		statement:     record.Statement,
		columnAliases: slices.Clone(record.ColumnAliases),
		compileSchema: record.CompileSchema,
		columns:       slices.Clone(record.Columns),
		createdAt:     record.CreatedAt,
		updatedAt:     record.UpdatedAt,
	}
	if err := v.Compile(session); err != nil {
		return nil, err
	}
	return v, nil
}

type compilation struct {
	top        *bind.SubQuery
	subqueries []*bind.SubQuery
	statement  string
	columns    []core.Column
}

// Compile binds the statement and rebuilds the subquery tree. On the first
// success the expanded statement and the column metadata are fixed; later
// compiles must reproduce the same columns.
func (v *View) Compile(session Session) error {
	recompile := v.columns != nil
	if recompile {
		v.state = Recompiling
	} else {
		v.state = Compiling
	}

	result, err := v.compile(session)
	if err != nil {
		v.state = Failed
		return errors.Wrapf(err, "compile view %s", v.name)
	}

	if recompile {
		if err := checkColumns(v.columns, result.columns); err != nil {
			v.state = Failed
			return errors.Wrapf(err, "recompile view %s", v.name)
		}
	} else {
		v.columns = result.columns
	}

	v.top = result.top
	v.subqueries = result.subqueries
	v.statement = result.statement
	v.state = Compiled
	return nil
}

func (v *View) compile(session Session) (*compilation, error) {
	top, err := bind.Bind(session, v.statement, bind.Options{
		Schema:          v.compileSchema,
		Owner:           v.name,
		Columns:         v.columnAliases,
		RecordWildcards: true,
	})
	if err != nil {
		return nil, err
	}
	top.View = v
	if err := checkDistinctColumns(top.Select.ResultColumns); err != nil {
		return nil, err
	}

	subqueries := orderSubqueries(top)
	statement := expandWildcards(v.statement, subqueries)

	if err := validateSchemas(session, v.name, subqueries); err != nil {
		return nil, err
	}

	return &compilation{
		top:        top,
		subqueries: subqueries,
		statement:  statement,
		columns:    slices.Clone(top.Select.ResultColumns),
	}, nil
}

// checkDistinctColumns refuses a projection that names a column twice. A view
// reading it through a wildcard would be frozen to an ambiguous column list.
func checkDistinctColumns(columns []core.Column) error {
	for i, column := range columns {
		if slices.ContainsFunc(columns[:i], func(c core.Column) bool { return c.Name == column.Name }) {
			return core.Errorf(core.CodeAlreadyExists, "column %s specified twice", column.Name)
		}
	}
	return nil
}

func checkColumns(fixed, compiled []core.Column) error {
	if len(fixed) != len(compiled) {
		return core.Errorf(core.CodeColumnCountMismatch,
			"query now projects %d columns, view has %d", len(compiled), len(fixed))
	}
	for i := range fixed {
		if fixed[i].Name != compiled[i].Name {
			return core.Errorf(core.CodeColumnCountMismatch,
				"column %d is now %s, view has %s", i+1, compiled[i].Name, fixed[i].Name)
		}
	}
	return nil
}

func (v *View) RelationName() *core.QualifiedName {
	return v.name
}

func (v *View) RelationColumns() []core.Column {
	return v.columns
}

func (v *View) RelationKind() core.RelationKind {
	return core.ViewRelation
}

// Statement is the wildcard-free text once the view has compiled.
func (v *View) Statement() string {
	return v.statement
}

func (v *View) ColumnAliases() []string {
	return v.columnAliases
}

func (v *View) CompileSchema() string {
	return v.compileSchema
}

func (v *View) State() State {
	return v.state
}

// Select returns the compiled top-level select, or nil before the first
// successful compile.
func (v *View) Select() *bind.Select {
	if v.top == nil {
		return nil
	}
	return v.top.Select
}

// SubQueries returns the subqueries in materialization order. The last one is
// the view's own select.
func (v *View) SubQueries() []*bind.SubQuery {
	return slices.Clone(v.subqueries)
}

// DependsOn lists the views this view reads, directly or through other views.
func (v *View) DependsOn() []string {
	var names []string
	for _, subquery := range v.subqueries {
		if subquery.View == nil || subquery.View.RelationName() == v.name {
			continue
		}
		name := subquery.View.RelationName().String()
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Record returns the durable catalog record of the view.
func (v *View) Record() core.View {
	return core.View{
		Name:          v.name,
		Statement:     v.statement,
		ColumnAliases: slices.Clone(v.columnAliases),
		Columns:       slices.Clone(v.columns),
		CompileSchema: v.compileSchema,
		DependsOn:     v.DependsOn(),
		CreatedAt:     v.createdAt,
		UpdatedAt:     v.updatedAt,
	}
}

// Touch records a change to the view's definition or catalog entry.
func (v *View) Touch() {
	v.updatedAt = time.Now()
}

// Supersede keeps the creation time of the view that v redefines.
func (v *View) Supersede(previous *View) {
	v.createdAt = previous.createdAt
}

func (v *View) CreatedAt() time.Time {
	return v.createdAt
}

func (v *View) UpdatedAt() time.Time {
	return v.updatedAt
}

// SetReadOnly always fails: a view has no data of its own.
func (v *View) SetReadOnly(bool) error {
	return core.Errorf(core.CodeNotATable, "%s is a view", v.name)
}
