package models

import (
    "math/rand"
    "sort"
)

// MostFrequentValue returns the key with the highest count. Ties are
// broken uniformly at random; maximal keys are sorted before the draw so
// a fixed seed gives a reproducible pick. The rng is consumed only when
// there is an actual tie.
func MostFrequentValue(counts map[float64]int, rng *rand.Rand) float64 {
    best := 0
    for _, c := range counts {
        if c > best {
            best = c
        }
    }
    keys := make([]float64, 0, len(counts))
    for v, c := range counts {
        if c == best {
            keys = append(keys, v)
        }
    }
    sort.Float64s(keys)
    if len(keys) == 1 {
        return keys[0]
    }
    return keys[rng.Intn(len(keys))]
}
