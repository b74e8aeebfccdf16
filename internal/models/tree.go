package models

import (
    "math/rand"
    "sort"

    "arbor/internal/data"
)

// Tree holds one grown classification tree as parallel node arrays.
// Node 0 is the root; a node is a leaf when both child IDs are zero, and
// its SplitValues entry is then the predicted class value instead of a
// threshold. Nodes are only appended, so children always have larger
// indices than their parent.
type Tree struct {
    ChildNodeIDs [2][]int
    SplitVarIDs  []int
    SplitValues  []float64

    data           data.Dataset
    dependentVarID int
    mtry           int
    minNodeSize    int

    // shared, read-only after forest init
    classValues      []float64
    responseClassIDs []int
    possibleVarIDs   []int
    importanceIndex  []int

    importanceMode ImportanceMode
    importance     []float64

    sampler      Sampler
    rng          *rand.Rand
    sampleIDs    [][]int
    oobSampleIDs []int
}

func newTree(f *Forest, seed int64) *Tree {
    return &Tree{
        data:             f.data,
        dependentVarID:   f.DependentVarID,
        mtry:             f.Mtry,
        minNodeSize:      f.MinNodeSize,
        classValues:      f.ClassValues,
        responseClassIDs: f.responseClassIDs,
        possibleVarIDs:   f.possibleVarIDs,
        importanceIndex:  f.importanceIndex,
        importanceMode:   f.ImportanceMode,
        importance:       make([]float64, len(f.possibleVarIDs)),
        sampler:          f.Sampler,
        rng:              rand.New(rand.NewSource(seed)),
    }
}

// loadedTree rebuilds a tree from persisted arrays; no growth state.
func loadedTree(childNodeIDs [2][]int, splitVarIDs []int, splitValues []float64, classValues []float64) *Tree {
    return &Tree{
        ChildNodeIDs: childNodeIDs,
        SplitVarIDs:  splitVarIDs,
        SplitValues:  splitValues,
        classValues:  classValues,
    }
}

// Grow draws the tree's in-bag samples and splits nodes in creation
// order until every open node has become a leaf. The per-node sample
// membership is transient and released as soon as a node is finalized.
func (t *Tree) Grow() {
    inbag, oob := t.sampler.Draw(t.rng, t.data.NumSamples())
    t.oobSampleIDs = oob

    t.createEmptyNode()
    t.sampleIDs[0] = inbag
    for nodeID := 0; nodeID < len(t.SplitValues); nodeID++ {
        t.splitNode(nodeID)
    }
    t.sampleIDs = nil
}

func (t *Tree) createEmptyNode() int {
    nodeID := len(t.SplitValues)
    t.ChildNodeIDs[0] = append(t.ChildNodeIDs[0], 0)
    t.ChildNodeIDs[1] = append(t.ChildNodeIDs[1], 0)
    t.SplitVarIDs = append(t.SplitVarIDs, 0)
    t.SplitValues = append(t.SplitValues, 0)
    t.sampleIDs = append(t.sampleIDs, nil)
    return nodeID
}

func (t *Tree) splitNode(nodeID int) {
    possibleSplitVarIDs := t.drawPossibleSplitVarIDs()

    if t.splitNodeInternal(nodeID, possibleSplitVarIDs) {
        t.sampleIDs[nodeID] = nil
        return
    }

    varID := t.SplitVarIDs[nodeID]
    splitValue := t.SplitValues[nodeID]
    left := t.createEmptyNode()
    right := t.createEmptyNode()
    t.ChildNodeIDs[0][nodeID] = left
    t.ChildNodeIDs[1][nodeID] = right

    for _, sampleID := range t.sampleIDs[nodeID] {
        if t.data.Get(sampleID, varID) <= splitValue {
            t.sampleIDs[left] = append(t.sampleIDs[left], sampleID)
        } else {
            t.sampleIDs[right] = append(t.sampleIDs[right], sampleID)
        }
    }
    t.sampleIDs[nodeID] = nil
}

// splitNodeInternal applies the stopping rules and the best-split
// search. Returns true when the node was finalized as a leaf.
func (t *Tree) splitNodeInternal(nodeID int, possibleSplitVarIDs []int) bool {
    samples := t.sampleIDs[nodeID]

    // Note: <= on purpose, nodes at exactly minNodeSize become leaves.
    if len(samples) <= t.minNodeSize {
        t.SplitValues[nodeID] = t.estimate(nodeID)
        return true
    }

    pure := true
    var pureValue float64
    for i, sampleID := range samples {
        value := t.data.Get(sampleID, t.dependentVarID)
        if i != 0 && value != pureValue {
            pure = false
            break
        }
        pureValue = value
    }
    if pure {
        t.SplitValues[nodeID] = pureValue
        return true
    }

    if t.findBestSplit(nodeID, possibleSplitVarIDs) {
        t.SplitValues[nodeID] = t.estimate(nodeID)
        return true
    }
    return false
}

// estimate tallies response values over the node's samples and returns
// the most frequent one, random tie-break.
func (t *Tree) estimate(nodeID int) float64 {
    classCount := make(map[float64]int)
    for _, sampleID := range t.sampleIDs[nodeID] {
        classCount[t.data.Get(sampleID, t.dependentVarID)]++
    }
    return MostFrequentValue(classCount, t.rng)
}

// findBestSplit scores every (variable, distinct value) candidate with
// the decrease-of-impurity criterion and keeps the first maximum in
// enumeration order. Returns true when no admissible split exists.
func (t *Tree) findBestSplit(nodeID int, possibleSplitVarIDs []int) bool {
    numClasses := len(t.classValues)
    samples := t.sampleIDs[nodeID]

    bestDecrease := -1.0
    bestVarID := 0
    bestValue := 0.0

    classCountsLeft := make([]int, numClasses)
    classCountsRight := make([]int, numClasses)

    for _, varID := range possibleSplitVarIDs {
        possibleSplitValues := t.data.AllValues(samples, varID)
        if len(possibleSplitValues) < 2 {
            continue
        }

        for _, splitValue := range possibleSplitValues {
            nLeft, nRight := 0, 0
            for i := 0; i < numClasses; i++ {
                classCountsLeft[i] = 0
                classCountsRight[i] = 0
            }

            for _, sampleID := range samples {
                classID := t.responseClassIDs[sampleID]
                if t.data.Get(sampleID, varID) <= splitValue {
                    nLeft++
                    classCountsLeft[classID]++
                } else {
                    nRight++
                    classCountsRight[classID]++
                }
            }
            if nLeft == 0 || nRight == 0 {
                continue
            }

            sumLeft, sumRight := 0.0, 0.0
            for i := 0; i < numClasses; i++ {
                sumLeft += float64(classCountsLeft[i] * classCountsLeft[i])
                sumRight += float64(classCountsRight[i] * classCountsRight[i])
            }
            decrease := sumLeft/float64(nLeft) + sumRight/float64(nRight)

            if decrease > bestDecrease {
                bestValue = splitValue
                bestVarID = varID
                bestDecrease = decrease
            }
        }
    }

    if bestDecrease < 0 {
        return true
    }

    t.SplitVarIDs[nodeID] = bestVarID
    t.SplitValues[nodeID] = bestValue

    if t.importanceMode == ImportanceGini {
        t.addGiniImportance(nodeID, bestVarID, bestDecrease)
    }
    return false
}

// addGiniImportance credits the winning variable with the node's
// impurity decrease relative to the unsplit node.
func (t *Tree) addGiniImportance(nodeID, varID int, decrease float64) {
    classCounts := make([]int, len(t.classValues))
    for _, sampleID := range t.sampleIDs[nodeID] {
        classCounts[t.responseClassIDs[sampleID]]++
    }
    sumNode := 0.0
    for _, c := range classCounts {
        sumNode += float64(c * c)
    }
    bestGini := decrease - sumNode/float64(len(t.sampleIDs[nodeID]))
    t.importance[t.importanceIndex[varID]] += bestGini
}

// drawPossibleSplitVarIDs draws mtry variables without replacement from
// the splittable variables, sorted for a fixed enumeration order.
func (t *Tree) drawPossibleSplitVarIDs() []int {
    k := t.mtry
    if k > len(t.possibleVarIDs) {
        k = len(t.possibleVarIDs)
    }
    pool := make([]int, len(t.possibleVarIDs))
    copy(pool, t.possibleVarIDs)
    for i := 0; i < k; i++ {
        j := i + t.rng.Intn(len(pool)-i)
        pool[i], pool[j] = pool[j], pool[i]
    }
    drawn := pool[:k]
    sort.Ints(drawn)
    return drawn
}

// PredictSample routes one sample from the root to a leaf and returns
// the leaf value.
func (t *Tree) PredictSample(d data.Dataset, sampleID int) float64 {
    nodeID := 0
    for {
        left := t.ChildNodeIDs[0][nodeID]
        right := t.ChildNodeIDs[1][nodeID]
        if left == 0 && right == 0 {
            return t.SplitValues[nodeID]
        }
        if d.Get(sampleID, t.SplitVarIDs[nodeID]) <= t.SplitValues[nodeID] {
            nodeID = left
        } else {
            nodeID = right
        }
    }
}

// Predict returns predictions for the given samples in order.
func (t *Tree) Predict(d data.Dataset, sampleIDs []int) []float64 {
    out := make([]float64, len(sampleIDs))
    for i, sampleID := range sampleIDs {
        out[i] = t.PredictSample(d, sampleID)
    }
    return out
}

// OOBSampleIDs returns the samples held out of this tree's draw.
func (t *Tree) OOBSampleIDs() []int { return t.oobSampleIDs }

// OOBAccuracy is the fraction of this tree's out-of-bag samples whose
// traversal prediction matches the true response.
func (t *Tree) OOBAccuracy() float64 {
    if len(t.oobSampleIDs) == 0 {
        return 0
    }
    miss := 0
    for _, sampleID := range t.oobSampleIDs {
        if t.PredictSample(t.data, sampleID) != t.data.Get(sampleID, t.dependentVarID) {
            miss++
        }
    }
    return 1.0 - float64(miss)/float64(len(t.oobSampleIDs))
}

func (t *Tree) NumNodes() int { return len(t.SplitValues) }

func (t *Tree) NumLeaves() int {
    n := 0
    for i := range t.SplitValues {
        if t.ChildNodeIDs[0][i] == 0 && t.ChildNodeIDs[1][i] == 0 {
            n++
        }
    }
    return n
}

// Depth walks the stored topology and returns the longest root-to-leaf
// path, 0 for a single-leaf tree.
func (t *Tree) Depth() int {
    if len(t.SplitValues) == 0 {
        return 0
    }
    depth := make([]int, len(t.SplitValues))
    max := 0
    for nodeID := range t.SplitValues {
        left := t.ChildNodeIDs[0][nodeID]
        right := t.ChildNodeIDs[1][nodeID]
        if left == 0 && right == 0 {
            continue
        }
        depth[left] = depth[nodeID] + 1
        depth[right] = depth[nodeID] + 1
        if depth[left] > max {
            max = depth[left]
        }
    }
    return max
}
