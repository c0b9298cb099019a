package bind

import "iter"

// Walk yields, in tree order, every expression of sel and its union branches
// that satisfies match. It descends into expression subqueries, derived tables
// and referenced view bodies. The sequence is lazy and can be iterated any
// number of times; it never modifies the tree.
func Walk(sel *Select, match func(*Expression) bool) iter.Seq[*Expression] {
	return func(yield func(*Expression) bool) {
		walkSelect(sel, match, yield)
	}
}

func walkSelect(sel *Select, match func(*Expression) bool, yield func(*Expression) bool) bool {
	for branch := range sel.Branches() {
		for _, filter := range branch.Filters {
			if filter.SubQuery != nil && !walkSelect(filter.SubQuery.Select, match, yield) {
				return false
			}
		}
		for _, expression := range branch.Expressions() {
			if !walkExpression(expression, match, yield) {
				return false
			}
		}
	}
	return true
}

func walkExpression(expression *Expression, match func(*Expression) bool, yield func(*Expression) bool) bool {
	if expression == nil {
		return true
	}
	if match(expression) && !yield(expression) {
		return false
	}
	for _, arg := range expression.Args {
		if !walkExpression(arg, match, yield) {
			return false
		}
	}
	if expression.SubQuery != nil {
		return walkSelect(expression.SubQuery.Select, match, yield)
	}
	return true
}

// Filters yields every table filter of sel and its union branches, without
// descending into subqueries.
func Filters(sel *Select) iter.Seq[*TableFilter] {
	return func(yield func(*TableFilter) bool) {
		for branch := range sel.Branches() {
			for _, filter := range branch.Filters {
				if !yield(filter) {
					return
				}
			}
		}
	}
}
