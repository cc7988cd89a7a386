package optimizer

import (
	"fmt"
	"testing"
)

func TestExpandGridIsFullCartesianProduct(t *testing.T) {
	grid := ParamGrid{
		"a": {1, 2},
		"b": {"x", "y", "z"},
	}
	sets := expandGrid(grid)
	if len(sets) != 6 {
		t.Fatalf("expected 6 combinations, got %d", len(sets))
	}

	seen := make(map[string]bool)
	for _, s := range sets {
		key := fmt.Sprintf("%v|%v", s["a"], s["b"])
		if seen[key] {
			t.Fatalf("duplicate combination %v", s)
		}
		seen[key] = true
	}
}

func TestExpandGridEmptyGridYieldsOneEmptySet(t *testing.T) {
	sets := expandGrid(ParamGrid{})
	if len(sets) != 1 || len(sets[0]) != 0 {
		t.Fatalf("expected one empty set, got %v", sets)
	}
}
