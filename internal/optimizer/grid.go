package optimizer

import (
	"sort"

	"replaybench/internal/domain"
)

// expandGrid enumerates the Cartesian product of grid. Keys are visited in
// sorted order so the output is deterministic regardless of map iteration.
func expandGrid(grid ParamGrid) []domain.ParameterSet {
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := []domain.ParameterSet{{}}
	for _, k := range keys {
		values := grid[k]
		next := make([]domain.ParameterSet, 0, len(sets)*len(values))
		for _, base := range sets {
			for _, v := range values {
				clone := make(domain.ParameterSet, len(base)+1)
				for bk, bv := range base {
					clone[bk] = bv
				}
				clone[k] = v
				next = append(next, clone)
			}
		}
		sets = next
	}
	return sets
}
