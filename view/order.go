package view

import "github.com/nickyhof/ViewDB/bind"

// orderSubqueries lists every subquery of the tree in materialization order:
// a subquery follows everything nested in it, in any of its union branches,
// so top comes last.
func orderSubqueries(top *bind.SubQuery) []*bind.SubQuery {
	var ordered []*bind.SubQuery

	var visit func(subquery *bind.SubQuery)
	visit = func(subquery *bind.SubQuery) {
		for branch := range subquery.Select.Branches() {
			for _, child := range branch.Children() {
				visit(child)
			}
		}
		subquery.Order = len(ordered)
		ordered = append(ordered, subquery)
	}
	visit(top)

	return ordered
}
