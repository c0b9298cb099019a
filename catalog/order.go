package catalog

import (
	"sort"
	"strings"

	"github.com/nickyhof/ViewDB/core"
)

// sortByDependencies orders names so that every name comes after the names it
// depends on (Kahn's algorithm, ties broken by name). Dependencies outside the
// given set are ignored. Names left over form at least one cycle.
func sortByDependencies(names []string, dependsOn func(name string) []string) ([]string, error) {
	inDegree := make(map[string]int, len(names))
	dependents := make(map[string][]string, len(names))

	for _, name := range names {
		inDegree[name] = 0
	}

	for _, name := range names {
		for _, dependency := range dependsOn(name) {
			if _, ok := inDegree[dependency]; !ok || dependency == name {
				continue
			}
			dependents[dependency] = append(dependents[dependency], name)
			inDegree[name]++
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	result := make([]string, 0, len(names))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(names) {
		var cyclic []string
		for name, degree := range inDegree {
			if degree > 0 {
				cyclic = append(cyclic, name)
			}
		}
		sort.Strings(cyclic)
		return nil, core.Errorf(core.CodeCyclicReference, "views depend on each other: %s", strings.Join(cyclic, ", "))
	}

	return result, nil
}
