package models

import (
    "fmt"
    "math"
    "math/rand"
    "runtime"
    "sync"

    "go.uber.org/zap"

    "arbor/internal/data"
)

const DefaultMinNodeSize = 1

// Forest owns the ensemble: the shared class encoding, the per-tree
// draws, the thread partition and the aggregated outputs. Configure the
// exported fields after NewForest, then call Init and Grow.
type Forest struct {
    NumTrees       int
    Mtry           int
    MinNodeSize    int
    NumThreads     int
    Seed           int64
    DependentVarID int
    ImportanceMode ImportanceMode
    Sampler        Sampler
    Logger         *zap.Logger

    Trees       []*Tree
    ClassValues []float64

    // accumulated per-variable Gini decrease, dependent variable excluded
    VariableImportance []float64

    // OOB outputs, valid after ComputePredictionError
    Predictions            []float64
    OverallPredictionError float64
    Confusion              map[[2]float64]int

    data             data.Dataset
    numVariables     int
    responseClassIDs []int
    possibleVarIDs   []int
    importanceIndex  []int
    rng              *rand.Rand
}

func NewForest(d data.Dataset, dependentVarID int) *Forest {
    return &Forest{
        NumTrees:       500,
        DependentVarID: dependentVarID,
        data:           d,
        Sampler:        Bootstrap{},
    }
}

// Init builds the shared class encoding and fills in defaults. Must be
// called once before Grow.
func (f *Forest) Init() error {
    if f.data == nil {
        return fmt.Errorf("forest has no dataset")
    }
    f.numVariables = f.data.NumVariables()
    if f.DependentVarID < 0 || f.DependentVarID >= f.numVariables {
        return fmt.Errorf("dependent variable ID %d out of range [0, %d)", f.DependentVarID, f.numVariables)
    }
    if f.NumTrees <= 0 {
        return fmt.Errorf("number of trees must be positive, got %d", f.NumTrees)
    }
    if f.Mtry == 0 {
        m := int(math.Sqrt(float64(f.numVariables - 1)))
        if m < 1 {
            m = 1
        }
        f.Mtry = m
    }
    if f.MinNodeSize == 0 {
        f.MinNodeSize = DefaultMinNodeSize
    }
    if f.NumThreads <= 0 {
        f.NumThreads = runtime.NumCPU()
    }
    if f.Sampler == nil {
        f.Sampler = Bootstrap{}
    }
    if f.Logger == nil {
        f.Logger = zap.NewNop()
    }
    f.rng = rand.New(rand.NewSource(f.Seed))

    noSplitVarIDs := []int{f.DependentVarID}
    f.possibleVarIDs = make([]int, 0, f.numVariables-1)
    for varID := 0; varID < f.numVariables; varID++ {
        if varID != f.DependentVarID {
            f.possibleVarIDs = append(f.possibleVarIDs, varID)
        }
    }
    f.importanceIndex = buildImportanceIndex(f.numVariables, noSplitVarIDs)

    // Class encoding: compact IDs in first-seen order over the full
    // response column, shared by every tree.
    numSamples := f.data.NumSamples()
    f.ClassValues = f.ClassValues[:0]
    f.responseClassIDs = make([]int, 0, numSamples)
    for sampleID := 0; sampleID < numSamples; sampleID++ {
        value := f.data.Get(sampleID, f.DependentVarID)
        classID := len(f.ClassValues)
        for i, v := range f.ClassValues {
            if v == value {
                classID = i
                break
            }
        }
        if classID == len(f.ClassValues) {
            f.ClassValues = append(f.ClassValues, value)
        }
        f.responseClassIDs = append(f.responseClassIDs, classID)
    }

    f.VariableImportance = make([]float64, f.numVariables-1)
    return nil
}

// Grow trains all trees. Each worker goroutine owns a static contiguous
// range of tree indices; trees only read shared state, so growth needs
// no locking. Per-tree importance is merged after the join.
func (f *Forest) Grow() {
    f.Trees = make([]*Tree, f.NumTrees)
    for i := range f.Trees {
        // Seeded by tree index, not by goroutine: results do not depend
        // on NumThreads.
        f.Trees[i] = newTree(f, f.Seed+31*int64(i))
    }

    f.Logger.Info("growing forest",
        zap.Int("trees", f.NumTrees),
        zap.Int("mtry", f.Mtry),
        zap.Int("min_node_size", f.MinNodeSize),
        zap.Int("threads", f.NumThreads))

    f.forEachTree(func(i int) { f.Trees[i].Grow() })

    for _, tree := range f.Trees {
        for i, imp := range tree.importance {
            f.VariableImportance[i] += imp
        }
    }
    f.Logger.Info("forest grown", zap.Int("trees", len(f.Trees)))
}

// forEachTree runs fn over all trees, partitioned into contiguous
// near-equal index ranges across NumThreads workers.
func (f *Forest) forEachTree(fn func(treeIdx int)) {
    bounds := equalSplit(0, len(f.Trees)-1, f.NumThreads)
    var wg sync.WaitGroup
    for k := 0; k+1 < len(bounds); k++ {
        lo, hi := bounds[k], bounds[k+1]
        if lo >= hi {
            continue
        }
        wg.Add(1)
        go func(lo, hi int) {
            defer wg.Done()
            for i := lo; i < hi; i++ {
                fn(i)
            }
        }(lo, hi)
    }
    wg.Wait()
}

// equalSplit returns parts+1 boundaries over [start, end]; chunk k is
// [bounds[k], bounds[k+1]).
func equalSplit(start, end, parts int) []int {
    n := end - start + 1
    if parts < 1 {
        parts = 1
    }
    bounds := make([]int, 0, parts+1)
    for i := 0; i <= parts; i++ {
        bounds = append(bounds, start+i*n/parts)
    }
    return bounds
}

// Predict aggregates a majority vote over all trees for every sample of
// d, random tie-break.
func (f *Forest) Predict(d data.Dataset) ([]float64, error) {
    if len(f.Trees) == 0 {
        return nil, fmt.Errorf("forest has no trees")
    }
    required := f.requiredVariables()
    if d.NumVariables() < required {
        return nil, fmt.Errorf("dataset has %d variables, model needs at least %d", d.NumVariables(), required)
    }

    numSamples := d.NumSamples()
    sampleIDs := make([]int, numSamples)
    for i := range sampleIDs {
        sampleIDs[i] = i
    }

    treePredictions := make([][]float64, len(f.Trees))
    f.forEachTree(func(i int) {
        treePredictions[i] = f.Trees[i].Predict(d, sampleIDs)
    })

    rng := f.rng
    if rng == nil {
        rng = rand.New(rand.NewSource(f.Seed))
    }
    predictions := make([]float64, numSamples)
    for sampleIdx := 0; sampleIdx < numSamples; sampleIdx++ {
        classCount := make(map[float64]int)
        for _, preds := range treePredictions {
            classCount[preds[sampleIdx]]++
        }
        predictions[sampleIdx] = MostFrequentValue(classCount, rng)
    }
    return predictions, nil
}

// ComputePredictionError aggregates per-sample OOB votes into the OOB
// prediction vector, the confusion table and the overall
// misclassification fraction. Samples never OOB get the NaN sentinel
// and stay out of both the tally and the confusion table.
func (f *Forest) ComputePredictionError() {
    numSamples := f.data.NumSamples()

    oobPredictions := make([][]float64, len(f.Trees))
    f.forEachTree(func(i int) {
        tree := f.Trees[i]
        oobPredictions[i] = tree.Predict(f.data, tree.oobSampleIDs)
    })

    classCounts := make([]map[float64]int, numSamples)
    for i, tree := range f.Trees {
        for j, sampleID := range tree.oobSampleIDs {
            if classCounts[sampleID] == nil {
                classCounts[sampleID] = make(map[float64]int)
            }
            classCounts[sampleID][oobPredictions[i][j]]++
        }
    }

    f.Predictions = make([]float64, numSamples)
    f.Confusion = make(map[[2]float64]int)
    miss := 0
    withVotes := 0
    for sampleID := 0; sampleID < numSamples; sampleID++ {
        if len(classCounts[sampleID]) == 0 {
            f.Predictions[sampleID] = math.NaN()
            continue
        }
        predicted := MostFrequentValue(classCounts[sampleID], f.rng)
        f.Predictions[sampleID] = predicted
        withVotes++
        real := f.data.Get(sampleID, f.DependentVarID)
        if predicted != real {
            miss++
        }
        f.Confusion[[2]float64{real, predicted}]++
    }
    // Samples without a single OOB vote carry the NaN sentinel and stay
    // out of the denominator.
    if withVotes > 0 {
        f.OverallPredictionError = float64(miss) / float64(withVotes)
    } else {
        f.OverallPredictionError = math.NaN()
    }

    f.Logger.Info("OOB prediction error computed",
        zap.Float64("error", f.OverallPredictionError))
}

// requiredVariables is the smallest variable count a prediction dataset
// must offer to cover every stored split variable.
func (f *Forest) requiredVariables() int {
    max := 0
    for _, tree := range f.Trees {
        for nodeID := range tree.SplitValues {
            if tree.ChildNodeIDs[0][nodeID] == 0 && tree.ChildNodeIDs[1][nodeID] == 0 {
                continue
            }
            if tree.SplitVarIDs[nodeID] >= max {
                max = tree.SplitVarIDs[nodeID] + 1
            }
        }
    }
    return max
}

// NumVariables reports the variable count of the training dataset, or
// of the saved model for a loaded forest.
func (f *Forest) NumVariables() int { return f.numVariables }
