package optimizer

import (
	"math/rand"
	"sort"

	"replaybench/internal/domain"
)

// sampleRandom draws one uniform sample per key in ranges, respecting each
// range's declared type.
func sampleRandom(rng *rand.Rand, ranges map[string]ParamRange) domain.ParameterSet {
	out := make(domain.ParameterSet, len(ranges))
	for k, r := range ranges {
		out[k] = sampleOne(rng, r)
	}
	return out
}

func sampleOne(rng *rand.Rand, r ParamRange) any {
	switch r.Kind {
	case "bool":
		return rng.Float64() < 0.5
	case "int":
		span := int64(r.Max - r.Min)
		if span <= 0 {
			return int64(r.Min)
		}
		return int64(r.Min) + rng.Int63n(span+1)
	default: // "float"
		return r.Min + rng.Float64()*(r.Max-r.Min)
	}
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func sortedKeys(ranges map[string]ParamRange) []string {
	keys := make([]string, 0, len(ranges))
	for k := range ranges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
