package view

import (
	"github.com/nickyhof/ViewDB/bind"
	"github.com/nickyhof/ViewDB/core"
)

// ReferencesView reports whether the view reads other, directly or through
// other views. A view never references itself.
func (v *View) ReferencesView(other core.Relation) bool {
	if other == nil || other.RelationName() == v.name {
		return false
	}
	target := other.RelationName()
	for _, subquery := range v.subqueries {
		if subquery.View != nil && subquery.View.RelationName() == target {
			return true
		}
	}
	return false
}

// ReferencesTable reports whether any subquery reads table.
func (v *View) ReferencesTable(table core.Relation) bool {
	if table == nil {
		return false
	}
	target := table.RelationName()
	for _, subquery := range v.subqueries {
		for filter := range bind.Filters(subquery.Select) {
			if filter.Relation != nil && filter.Relation.RelationName() == target {
				return true
			}
		}
	}
	return false
}

// ReferencesColumn reports whether the view reads the named column of table.
func (v *View) ReferencesColumn(table core.Relation, column string) bool {
	if !v.ReferencesTable(table) {
		return false
	}
	target := table.RelationName()
	for expression := range bind.Walk(v.top.Select, bind.IsKind(bind.KindColumn)) {
		if expression.Table == target && expression.ColumnName == column {
			return true
		}
	}
	return false
}

// ReferencesSequence reports whether the view draws values from sequence.
func (v *View) ReferencesSequence(sequence *core.Sequence) bool {
	if v.top == nil || sequence == nil {
		return false
	}
	for expression := range bind.Walk(v.top.Select, bind.IsKind(bind.KindSequence)) {
		if expression.Sequence == sequence {
			return true
		}
	}
	return false
}
