package view

import (
	"maps"
	"slices"
	"strings"

	"github.com/nickyhof/ViewDB/bind"
)

// wildcardBuilder merges the wildcards drained from every select of a view.
// Offsets are unique within one statement.
type wildcardBuilder map[int]string

func (builder wildcardBuilder) merge(wildcards bind.Wildcards) {
	for _, wildcard := range wildcards {
		builder[wildcard.Offset] = wildcard.Expansion
	}
}

// apply splices each expansion into statement. The text replaced runs from
// the recorded offset through the first '*' found at or after it; a '*'
// inside a comment between a qualifier and its wildcard is found first and
// would corrupt the splice.
func (builder wildcardBuilder) apply(statement string) string {
	var expanded strings.Builder
	last := 0

	for _, offset := range slices.Sorted(maps.Keys(builder)) {
		expansion := builder[offset]
		if expansion == "" || offset < last {
			continue
		}
		star := strings.IndexByte(statement[offset:], '*')
		if star < 0 {
			continue
		}

		expanded.WriteString(statement[last:offset])
		expanded.WriteByte(' ')
		expanded.WriteString(expansion)
		expanded.WriteByte(' ')
		last = offset + star + 1
	}

	expanded.WriteString(statement[last:])
	return expanded.String()
}

// expandWildcards drains the wildcards of every subquery select and of the
// union branches after it, then rewrites statement with the expansions.
func expandWildcards(statement string, subqueries []*bind.SubQuery) string {
	builder := make(wildcardBuilder)

	for _, subquery := range subqueries {
		builder.merge(subquery.Select.DrainWildcards())
		for branch := subquery.Select.Union; branch != nil; branch = branch.Union {
			builder.merge(branch.DrainWildcards())
		}
	}

	return builder.apply(statement)
}
