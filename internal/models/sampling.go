package models

import "math/rand"

// Sampler draws the in-bag sample IDs for one tree and reports which
// samples stayed out-of-bag. Implementations must be deterministic for
// a given rng state.
type Sampler interface {
    Draw(rng *rand.Rand, numSamples int) (inbag, oob []int)
}

// Bootstrap samples with replacement. Fraction defaults to 1.0.
type Bootstrap struct {
    Fraction float64
}

func (b Bootstrap) Draw(rng *rand.Rand, numSamples int) ([]int, []int) {
    frac := b.Fraction
    if frac <= 0 {
        frac = 1.0
    }
    n := int(frac * float64(numSamples))
    counts := make([]int, numSamples)
    inbag := make([]int, 0, n)
    for i := 0; i < n; i++ {
        s := rng.Intn(numSamples)
        inbag = append(inbag, s)
        counts[s]++
    }
    oob := make([]int, 0, numSamples/3)
    for s, c := range counts {
        if c == 0 {
            oob = append(oob, s)
        }
    }
    return inbag, oob
}

// Subsample samples without replacement. Fraction defaults to 0.632,
// matching the expected unique fraction of a full bootstrap.
type Subsample struct {
    Fraction float64
}

func (s Subsample) Draw(rng *rand.Rand, numSamples int) ([]int, []int) {
    frac := s.Fraction
    if frac <= 0 {
        frac = 0.632
    }
    n := int(frac * float64(numSamples))
    if n > numSamples {
        n = numSamples
    }
    perm := rng.Perm(numSamples)
    inbag := make([]int, n)
    copy(inbag, perm[:n])
    oob := make([]int, 0, numSamples-n)
    inbagSet := make([]bool, numSamples)
    for _, id := range inbag {
        inbagSet[id] = true
    }
    for id := 0; id < numSamples; id++ {
        if !inbagSet[id] {
            oob = append(oob, id)
        }
    }
    return inbag, oob
}
