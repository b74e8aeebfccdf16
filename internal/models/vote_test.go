package models

import (
    "math/rand"
    "testing"
)

func TestMostFrequentValueMajority(t *testing.T) {
    counts := map[float64]int{1: 2, 2: 1}
    rng := rand.New(rand.NewSource(1))
    for i := 0; i < 10; i++ {
        if got := MostFrequentValue(counts, rng); got != 1 {
            t.Fatalf("majority vote = %v, want 1", got)
        }
    }
}

func TestMostFrequentValueTieIsUniform(t *testing.T) {
    counts := map[float64]int{1: 3, 2: 3, 3: 1}
    picks := map[float64]int{}
    for seed := int64(0); seed < 1000; seed++ {
        rng := rand.New(rand.NewSource(seed))
        picks[MostFrequentValue(counts, rng)]++
    }
    if picks[3] != 0 {
        t.Fatalf("non-maximal value picked %d times", picks[3])
    }
    if picks[1] < 350 || picks[2] < 350 {
        t.Fatalf("tie-break not roughly uniform: %v", picks)
    }
}

func TestMostFrequentValueDeterministicForSeed(t *testing.T) {
    counts := map[float64]int{1: 1, 2: 1, 3: 1}
    a := MostFrequentValue(counts, rand.New(rand.NewSource(7)))
    b := MostFrequentValue(counts, rand.New(rand.NewSource(7)))
    if a != b {
        t.Fatalf("same seed gave %v and %v", a, b)
    }
}

func TestBuildImportanceIndex(t *testing.T) {
    idx := buildImportanceIndex(5, []int{2})
    want := []int{0, 1, -1, 2, 3}
    for i := range want {
        if idx[i] != want[i] {
            t.Fatalf("index[%d] = %d, want %d", i, idx[i], want[i])
        }
    }
}
