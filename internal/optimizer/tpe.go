package optimizer

import (
	"math/rand"
	"sort"

	"replaybench/internal/domain"
)

// tpeSample implements the tree-structured-Parzen-like sampler from
// spec.md §4.8: partition observed trials at the median score into good/bad,
// then for each parameter pick a random good value and perturb it by ±10%
// of the range, clipped back into bounds. Falls back to pure random when
// either partition is empty (not enough history yet, or every trial scored
// identically).
func tpeSample(rng *rand.Rand, ranges map[string]ParamRange, history []Trial) domain.ParameterSet {
	good, bad := splitByMedianScore(history)
	if len(good) == 0 || len(bad) == 0 {
		return sampleRandom(rng, ranges)
	}

	out := make(domain.ParameterSet, len(ranges))
	for _, k := range sortedKeys(ranges) {
		r := ranges[k]
		pick := good[rng.Intn(len(good))]
		base, ok := pick.Params[k]
		if !ok {
			out[k] = sampleOne(rng, r)
			continue
		}
		out[k] = perturb(rng, r, base)
	}
	return out
}

func splitByMedianScore(history []Trial) (good, bad []Trial) {
	if len(history) == 0 {
		return nil, nil
	}
	scores := make([]float64, len(history))
	for i, t := range history {
		scores[i] = t.Score
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]

	for _, t := range history {
		if t.Score >= median {
			good = append(good, t)
		} else {
			bad = append(bad, t)
		}
	}
	return good, bad
}

func perturb(rng *rand.Rand, r ParamRange, base any) any {
	span := r.Max - r.Min
	delta := span * 0.10

	switch r.Kind {
	case "bool":
		if rng.Float64() < 0.9 {
			return base
		}
		b, _ := base.(bool)
		return !b
	case "int":
		b := toFloat(base)
		v := b + (rng.Float64()*2-1)*delta
		v = clip(v, r.Min, r.Max)
		return int64(v)
	default:
		b := toFloat(base)
		v := b + (rng.Float64()*2-1)*delta
		return clip(v, r.Min, r.Max)
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// isExploration reports whether trial index i (0-based) of total trials T
// falls in the first 20% exploration phase.
func isExploration(i, total int) bool {
	return float64(i) < 0.2*float64(total)
}
